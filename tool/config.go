package tool

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/desqueeze-go/types"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
	configMu      sync.RWMutex
)

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		UploadURL:    "http://localhost:3001/upload",
		Port:         53318,
		Factor:       1.33,
		FPS:          nil, // copy original
		PhotoFormat:  "image/jpeg",
		OutputDir:    "exports",
		AutoDownload: true,
		NotifySocket: "/tmp/desqueeze-notify.sock",
	}
}

func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			setCurrentConfig(cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}
	if cfg.FPS != nil && *cfg.FPS <= 0 {
		DefaultLogger.Warnf("Ignoring non-positive fps %v in config, keeping source frame rate", *cfg.FPS)
		cfg.FPS = nil
	}

	setCurrentConfig(cfg)
	return cfg, nil
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func setCurrentConfig(cfg types.AppConfig) {
	configMu.Lock()
	defer configMu.Unlock()
	CurrentConfig = cfg
}

func GetCurrentConfig() types.AppConfig {
	configMu.RLock()
	defer configMu.RUnlock()
	return CurrentConfig
}

// PersistExportSettings writes the fields named in patch, with their validated values from s,
// onto the file-loaded AppConfig and saves config.yaml. Flag overrides never reach the file.
func PersistExportSettings(patch types.ExportSettingsPatch, s types.ExportSettings) {
	configMu.Lock()
	cfg := CurrentConfig
	if patch.UploadURL != nil {
		cfg.UploadURL = s.UploadURL
	}
	if patch.Factor != nil {
		cfg.Factor = s.Factor
	}
	if patch.FPS != nil {
		cfg.FPS = s.FPS
	}
	if patch.Bitrate != nil {
		cfg.Bitrate = s.Bitrate
	}
	if patch.PhotoFormat != nil {
		cfg.PhotoFormat = s.PhotoFormat
	}
	if patch.OutputDir != nil {
		cfg.OutputDir = s.OutputDir
	}
	if patch.AutoDownload != nil {
		cfg.AutoDownload = s.AutoDownload
	}
	CurrentConfig = cfg
	configMu.Unlock()

	if err := writeDefaultConfig(ConfigPath, cfg); err != nil {
		DefaultLogger.Warnf("Failed to persist config: %v", err)
	}
}

// ExportSettingsFromConfig extracts the export parameters of an AppConfig.
func ExportSettingsFromConfig(cfg types.AppConfig) types.ExportSettings {
	return types.ExportSettings{
		UploadURL:    cfg.UploadURL,
		Factor:       cfg.Factor,
		FPS:          cfg.FPS,
		Bitrate:      cfg.Bitrate,
		PhotoFormat:  cfg.PhotoFormat,
		OutputDir:    cfg.OutputDir,
		AutoDownload: cfg.AutoDownload,
	}
}
