package types

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	UploadURL          string   `yaml:"uploadUrl"`
	Port               int      `yaml:"port"`
	Factor             float64  `yaml:"factor"`
	FPS                *float64 `yaml:"fps,omitempty"` // absent keeps the source frame rate
	Bitrate            int64    `yaml:"bitrate,omitempty"`
	PhotoFormat        string   `yaml:"photoFormat"`
	OutputDir          string   `yaml:"outputDir"`
	AutoDownload       bool     `yaml:"autoDownload"`
	InsecureSkipVerify bool     `yaml:"insecureSkipVerify,omitempty"`
	UploadTimeout      int      `yaml:"uploadTimeout,omitempty"` // seconds, 0 = no limit
	NotifySocket       string   `yaml:"notifySocket,omitempty"`
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log            string
	UseConfigPath  string
	UseUploadURL   string
	UseFactor      float64
	UseFPS         float64 // > 0 overrides, 0 keeps config
	UseBitrate     int64
	UsePhotoFormat string
	UseOutputDir   string
	UsePort        int
	UseProbe       bool // probe backend host before exporting
	SkipNotify     bool // if true, skip Unix socket notify.
	Serve          bool // serve the control API even when files are given
	Files          []string
}
