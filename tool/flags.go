package tool

import (
	"flag"

	"github.com/moyoez/desqueeze-go/types"
)

// SetFlags parses CLI flags and returns the override config.
// Remaining arguments are the files to export.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.StringVar(&cfg.UseUploadURL, "useUploadUrl", "", "override backend upload endpoint")
	flag.Float64Var(&cfg.UseFactor, "useFactor", 0, "override desqueeze factor (>= 1)")
	flag.Float64Var(&cfg.UseFPS, "useFps", 0, "override output frame rate, 0 keeps the source rate")
	flag.Int64Var(&cfg.UseBitrate, "useBitrate", 0, "override output bitrate in bits per second")
	flag.StringVar(&cfg.UsePhotoFormat, "usePhotoFormat", "", "photo output format: image/jpeg|image/png")
	flag.StringVar(&cfg.UseOutputDir, "useOutputDir", "", "override output folder")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override control API port")
	flag.BoolVar(&cfg.UseProbe, "useProbe", false, "ICMP probe the backend host before exporting")
	flag.BoolVar(&cfg.SkipNotify, "skipNotify", false, "do not send notifications to the Unix socket")
	flag.BoolVar(&cfg.Serve, "serve", false, "serve the control API even when files are given")
	flag.Parse()
	cfg.Files = flag.Args()
	return cfg
}

// ApplyFlagOverrides copies non-zero flag values onto the loaded config.
func ApplyFlagOverrides(appCfg *types.AppConfig, cfg types.Config) {
	if cfg.UseUploadURL != "" {
		appCfg.UploadURL = cfg.UseUploadURL
	}
	if cfg.UseFactor > 0 {
		appCfg.Factor = cfg.UseFactor
	}
	if cfg.UseFPS > 0 {
		fps := cfg.UseFPS
		appCfg.FPS = &fps
	}
	if cfg.UseBitrate > 0 {
		appCfg.Bitrate = cfg.UseBitrate
	}
	if cfg.UsePhotoFormat != "" {
		appCfg.PhotoFormat = cfg.UsePhotoFormat
	}
	if cfg.UseOutputDir != "" {
		appCfg.OutputDir = cfg.UseOutputDir
	}
	if cfg.UsePort > 0 {
		appCfg.Port = cfg.UsePort
	}
}
