package runtimeinit

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"screen-qr-scan/src/clipboard"
	"screen-qr-scan/src/config"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(cfg *config.Config)
	// RequireClipboard makes an unusable clipboard fatal instead of a warning.
	RequireClipboard bool
	SkipClipboard    bool
	InitClipboard    func() error
}

// Bootstrap loads configuration, sets up logging and prepares the clipboard,
// in that order, for both binaries.
func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg)
	}
	if cfg.Source != "" {
		log.Printf("Config loaded from %s", cfg.Source)
	}

	if opts.SkipClipboard {
		return cfg, nil
	}
	initClipboard := opts.InitClipboard
	if initClipboard == nil {
		initClipboard = clipboard.Init
	}
	if err := initClipboard(); err != nil {
		if opts.RequireClipboard {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
		log.Warnf("Clipboard unavailable, Copy will fail: %v", err)
	}

	return cfg, nil
}
