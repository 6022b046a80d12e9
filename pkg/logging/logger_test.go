package logging

import (
	"testing"

	"github.com/devshare/devshare/pkg/config"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
	}{
		{"json format", config.LoggingConfig{Level: "INFO", Format: "json"}},
		{"text format", config.LoggingConfig{Level: "DEBUG", Format: "text"}},
		{"unknown level falls back to info", config.LoggingConfig{Level: "bogus", Format: "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := InitLogger(&tt.cfg); err != nil {
				t.Fatalf("Failed to initialize logger: %v", err)
			}
			if Logger == nil {
				t.Fatal("Logger should be set after InitLogger")
			}
		})
	}
}

func TestGetLoggerFallback(t *testing.T) {
	old := Logger
	defer func() { Logger = old }()

	Logger = nil
	if GetLogger() == nil {
		t.Error("GetLogger should never return nil")
	}
}

func TestWithComponent(t *testing.T) {
	if err := InitLogger(&config.LoggingConfig{Level: "INFO", Format: "json"}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logger := WithComponent("test-component")
	if logger == nil {
		t.Fatal("WithComponent returned nil")
	}
	// Must not panic
	logger.Info("component logger works")
}
