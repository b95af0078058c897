package client

import (
	"net/http"
	"path/filepath"

	"github.com/vctt94/bisonbotkit/logging"
)

// YanivClientConfig is the unified configuration for a client instance.
type YanivClientConfig struct {
	// ServerAddr is the base URL of the server, e.g. http://127.0.0.1:5174.
	ServerAddr string

	// Name is the display name sent when creating or joining rooms.
	Name string

	// PID is the stable player identity. A fresh one is minted when empty;
	// reuse the same value to rejoin rooms after a restart.
	PID string

	// DataDir is where client logs land. Empty keeps logging on stdout.
	DataDir string

	// Logging
	DebugLevel     string
	MaxLogFiles    int
	MaxBufferLines int

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

func (cfg *YanivClientConfig) setDefaults() {
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = "http://127.0.0.1:5174"
	}
	if cfg.Name == "" {
		cfg.Name = "Player"
	}
	if cfg.DebugLevel == "" {
		cfg.DebugLevel = "info"
	}
	if cfg.MaxLogFiles == 0 {
		cfg.MaxLogFiles = 5
	}
	if cfg.MaxBufferLines == 0 {
		cfg.MaxBufferLines = 1000
	}
}

func newLogBackend(cfg *YanivClientConfig) (*logging.LogBackend, error) {
	logFile := ""
	if cfg.DataDir != "" {
		logFile = filepath.Join(cfg.DataDir, "logs", "yanivclient.log")
	}
	return logging.NewLogBackend(logging.LogConfig{
		LogFile:        logFile,
		DebugLevel:     cfg.DebugLevel,
		MaxLogFiles:    cfg.MaxLogFiles,
		MaxBufferLines: cfg.MaxBufferLines,
	})
}
