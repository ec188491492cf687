package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moyoez/desqueeze-go/api"
	"github.com/moyoez/desqueeze-go/api/models"
	"github.com/moyoez/desqueeze-go/api/notifyhub"
	"github.com/moyoez/desqueeze-go/app"
	"github.com/moyoez/desqueeze-go/notify"
	"github.com/moyoez/desqueeze-go/tool"
	"github.com/moyoez/desqueeze-go/types"
)

func main() {
	cfg := tool.SetFlags()
	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	tool.ApplyFlagOverrides(&appCfg, cfg)

	// initialize logger
	tool.InitLogger()
	tool.SetLogMode(cfg.Log)

	tool.InitHTTPClients(appCfg.UploadTimeout, appCfg.InsecureSkipVerify)
	if appCfg.NotifySocket != "" {
		notify.DefaultUnixSocketPath = appCfg.NotifySocket
	}
	if cfg.SkipNotify {
		notify.SetUseNotify(false)
	}

	if cfg.UseProbe {
		if host, ok := tool.ProbeEndpointHost(appCfg.UploadURL, 2*time.Second); !ok {
			tool.DefaultLogger.Warnf("Backend host %q did not answer the ICMP probe, uploads may fail", host)
		} else {
			tool.DefaultLogger.Infof("Backend host %s is reachable", host)
		}
	}

	ctrl := app.NewController(tool.ExportSettingsFromConfig(appCfg), tool.GetHttpClient())
	ctrl.SetOutcomeHook(models.CacheOutcome)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.Files) > 0 && !cfg.Serve {
		code := runOnce(ctx, ctrl, cfg.Files)
		stop()
		os.Exit(code)
	}
	if len(cfg.Files) > 0 {
		if _, err := ctrl.SelectFiles(cfg.Files); err != nil {
			tool.DefaultLogger.Warnf("Initial selection: %v", err)
		}
	}

	hub := notifyhub.New()
	notify.SetHub(hub)
	apiServer := api.NewServer(appCfg.Port, ctrl, hub)
	go func() {
		if err := apiServer.Start(); err != nil {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	}()

	<-ctx.Done()
	tool.DefaultLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		tool.DefaultLogger.Errorf("API server shutdown failed: %v", err)
	}
}

// runOnce exports the given files without serving the API and returns the exit code.
func runOnce(ctx context.Context, ctrl *app.Controller, files []string) int {
	n, err := ctrl.SelectFiles(files)
	if err != nil {
		tool.DefaultLogger.Errorf("%v", err)
		return 2
	}
	if n == 1 {
		item, err := ctrl.ExportSelected(ctx)
		if err != nil {
			tool.DefaultLogger.Errorf("%v", err)
			return 1
		}
		if item.Status != types.ItemDone {
			tool.DefaultLogger.Errorf("%s", notify.FailureMessage(item.Outcome))
			return 1
		}
		tool.DefaultLogger.Infof("Exported %s", describeOutput(item))
		return 0
	}

	result, err := ctrl.ExportBatch(ctx)
	if err != nil {
		tool.DefaultLogger.Errorf("%v", err)
		return 1
	}
	for _, item := range ctrl.Snapshot().Files {
		if item.Status == types.ItemDone {
			tool.DefaultLogger.Infof("Exported %s", describeOutput(item))
		} else {
			tool.DefaultLogger.Warnf("%s: %s", item.Name, notify.FailureMessage(item.Outcome))
		}
	}
	if result.ArchivePath != "" {
		tool.DefaultLogger.Infof("ZIP ready: %s", result.ArchivePath)
	}
	if result.Succeeded < result.Total {
		return 1
	}
	return 0
}

func describeOutput(item types.QueueItem) string {
	switch {
	case item.OutputPath != "":
		return item.OutputPath
	case item.OutputHref != "":
		return item.OutputHref
	}
	return item.Name + " (backend returned no download link)"
}
