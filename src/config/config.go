package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const (
	ConfigPathEnvVar    = "SCREEN_QR_SCAN"
	defaultYAMLFileName = ".screen-qr-scan.yaml"

	DefaultHotkey            = "Ctrl+Alt+Q"
	DefaultMinSelectionPx    = 10
	DefaultDeliveryGraceMs   = 100
	DefaultDecodeDeadlineSec = 5
)

type LoadOptions struct {
	ConfigPathOverride string
}

type Config struct {
	EnableFileLogging bool
	LogLevel          string
	Hotkey            string
	MinSelectionPx    int
	DeliveryGraceMs   int
	DecodeDeadlineSec int
	CaptureDisplay    int
	DecodeTryHarder   bool
	// Source is the config file that was applied, if any.
	Source string
}

// DeliveryGrace is the bounded wait before handing a capture to an overlay that is not ready yet.
func (c *Config) DeliveryGrace() time.Duration {
	return time.Duration(c.DeliveryGraceMs) * time.Millisecond
}

func (c *Config) DecodeDeadline() time.Duration {
	return time.Duration(c.DecodeDeadlineSec) * time.Second
}

// fileConfig mirrors the environment keys for YAML config files.
type fileConfig struct {
	EnableFileLogging *bool   `yaml:"enable_file_logging"`
	LogLevel          *string `yaml:"log_level"`
	Hotkey            *string `yaml:"hotkey"`
	MinSelectionPx    *int    `yaml:"min_selection_px"`
	DeliveryGraceMs   *int    `yaml:"delivery_grace_ms"`
	DecodeDeadlineSec *int    `yaml:"decode_deadline_sec"`
	CaptureDisplay    *int    `yaml:"capture_display"`
	DecodeTryHarder   *bool   `yaml:"decode_try_harder"`
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) explicit override path
	// 2) .env in the application (executable) directory
	// 3) the file named by SCREEN_QR_SCAN
	// 4) ~/.screen-qr-scan.yaml
	// Process environment always wins over file values.
	path := resolveConfigPath(opts)

	cfg := &Config{
		LogLevel:          "info",
		Hotkey:            DefaultHotkey,
		MinSelectionPx:    DefaultMinSelectionPx,
		DeliveryGraceMs:   DefaultDeliveryGraceMs,
		DecodeDeadlineSec: DefaultDecodeDeadlineSec,
		DecodeTryHarder:   true,
		Source:            path,
	}

	if path != "" {
		if isYAML(path) {
			if err := applyYAML(cfg, path); err != nil {
				return nil, err
			}
		} else {
			_ = godotenv.Load(path)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func resolveConfigPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.ConfigPathOverride); override != "" {
		return override
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	if home, err := homedir.Dir(); err == nil {
		p := filepath.Join(home, defaultYAMLFileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func applyYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	if fc.EnableFileLogging != nil {
		cfg.EnableFileLogging = *fc.EnableFileLogging
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.Hotkey != nil && *fc.Hotkey != "" {
		cfg.Hotkey = *fc.Hotkey
	}
	if fc.MinSelectionPx != nil && *fc.MinSelectionPx > 0 {
		cfg.MinSelectionPx = *fc.MinSelectionPx
	}
	if fc.DeliveryGraceMs != nil && *fc.DeliveryGraceMs >= 0 {
		cfg.DeliveryGraceMs = *fc.DeliveryGraceMs
	}
	if fc.DecodeDeadlineSec != nil && *fc.DecodeDeadlineSec > 0 {
		cfg.DecodeDeadlineSec = *fc.DecodeDeadlineSec
	}
	if fc.CaptureDisplay != nil && *fc.CaptureDisplay >= 0 {
		cfg.CaptureDisplay = *fc.CaptureDisplay
	}
	if fc.DecodeTryHarder != nil {
		cfg.DecodeTryHarder = *fc.DecodeTryHarder
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ENABLE_FILE_LOGGING"); v != "" {
		cfg.EnableFileLogging = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.Hotkey = getEnvWithDefault("HOTKEY", cfg.Hotkey)
	if n, ok := envInt("MIN_SELECTION_PX"); ok && n > 0 {
		cfg.MinSelectionPx = n
	}
	if n, ok := envInt("DELIVERY_GRACE_MS"); ok && n >= 0 {
		cfg.DeliveryGraceMs = n
	}
	if n, ok := envInt("DECODE_DEADLINE_SEC"); ok && n > 0 {
		cfg.DecodeDeadlineSec = n
	}
	if n, ok := envInt("CAPTURE_DISPLAY"); ok && n >= 0 {
		cfg.CaptureDisplay = n
	}
	if v := os.Getenv("DECODE_TRY_HARDER"); v != "" {
		cfg.DecodeTryHarder = strings.ToLower(v) != "false"
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
