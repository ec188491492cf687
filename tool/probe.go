package tool

import (
	"net/url"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// QuickICMPProbe sends one echo request and reports whether a reply arrived within timeout.
// Unprivileged (UDP) ping is used so no raw socket capability is needed on Linux/macOS.
func QuickICMPProbe(host string, timeout time.Duration) bool {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		DefaultLogger.Debugf("QuickICMPProbe: cannot resolve %s: %v", host, err)
		return false
	}
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = timeout
	if err := pinger.Run(); err != nil {
		DefaultLogger.Debugf("QuickICMPProbe: ping %s failed: %v", host, err)
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}

// ProbeEndpointHost probes the host part of an endpoint URL.
func ProbeEndpointHost(endpoint string, timeout time.Duration) (string, bool) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	host := u.Hostname()
	return host, QuickICMPProbe(host, timeout)
}
