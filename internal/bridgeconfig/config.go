// Package bridgeconfig loads the proxy's JSON configuration file (spec
// SPEC_FULL.md §3 "Config record"), merges it over built-in defaults with
// dario.cat/mergo, and watches it for live reload via fsnotify, following
// the teacher's internal/config.Load / AtomicWriteJSON conventions trimmed
// down to this proxy's much narrower knob set.
package bridgeconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/fsnotify/fsnotify"

	. "github.com/roelfdiedericks/cursor-bridge/internal/logging"
)

// Config is SPEC_FULL.md §3's config record.
type Config struct {
	BaseURL                     string `json:"baseURL"`
	APIBase                     string `json:"apiBase"`
	WorkspacePath               string `json:"workspacePath"`
	RequestTimeoutMS            int64  `json:"requestTimeoutMs"`
	HeartbeatIdleMSNoProgress   int64  `json:"heartbeatIdleMsNoProgress"`
	HeartbeatMaxBeatsNoProgress int    `json:"heartbeatMaxBeatsNoProgress"`
	HeartbeatIdleMSProgress     int64  `json:"heartbeatIdleMsProgress"`
	HeartbeatMaxBeatsProgress   int    `json:"heartbeatMaxBeatsProgress"`
	Debug                       bool   `json:"debug"`
	Timing                      bool   `json:"timing"`
	ListenAddr                  string `json:"listenAddr"`
	LogLevel                    string `json:"logLevel"`
	CredentialPath              string `json:"credentialPath"`
}

// Defaults mirrors spec §4.3/§6's literal constants and the teacher's
// "always have a sane zero-config default" convention.
func Defaults() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		BaseURL:                     "https://api2.cursor.sh",
		APIBase:                     "https://api2.cursor.sh",
		WorkspacePath:               cwd,
		RequestTimeoutMS:            120_000,
		HeartbeatIdleMSNoProgress:   180_000,
		HeartbeatMaxBeatsNoProgress: 1_000,
		HeartbeatIdleMSProgress:     120_000,
		HeartbeatMaxBeatsProgress:   1_000,
		Debug:                       false,
		Timing:                      false,
		ListenAddr:                  ":8787",
		LogLevel:                    "info",
	}
}

// Load reads path (if it exists) and merges it over Defaults() via mergo,
// matching the teacher's internal/config.go merge-over-defaults idiom. A
// missing file is not an error: the defaults alone are a usable config.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("bridgeconfig: read %s: %w", path, err)
	}
	var fromFile Config
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("bridgeconfig: parse %s: %w", path, err)
	}
	if err := mergo.Merge(&fromFile, cfg); err != nil {
		return nil, fmt.Errorf("bridgeconfig: merge defaults: %w", err)
	}
	return &fromFile, nil
}

// RequestTimeout is RequestTimeoutMS as a time.Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Watch follows the teacher's internal/config live-reload pattern: an
// fsnotify watcher on path's directory calls onReload with a freshly
// loaded Config whenever the file is written, so an operator can tune
// heartbeat thresholds or timeouts without restarting the long-lived HTTP
// server (SPEC_FULL.md §"Configuration"). The credential file is not
// watched.
func Watch(path string, onReload func(*Config)) (*fsnotify.Watcher, error) {
	if path == "" {
		return nil, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("bridgeconfig: new watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("bridgeconfig: watch %s: %w", dir, err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					L_warn("bridgeconfig: reload failed", "path", path, "error", err)
					continue
				}
				L_info("bridgeconfig: reloaded", "path", path)
				onReload(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				L_warn("bridgeconfig: watcher error", "error", err)
			}
		}
	}()
	return watcher, nil
}
