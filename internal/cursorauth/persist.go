package cursorauth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// credentialFile is the on-disk JSON shape (spec §6 "Persisted state
// layout").
type credentialFile struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	APIKey       string `json:"apiKey,omitempty"`
}

// DefaultCredentialPath resolves the per-OS credential file location (spec
// §6): Windows %APPDATA%/Cursor/auth.json, macOS ~/.cursor/auth.json,
// otherwise $XDG_CONFIG_HOME/cursor/auth.json or ~/.config/cursor/auth.json.
func DefaultCredentialPath() (string, error) {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("cursorauth: APPDATA not set")
		}
		return filepath.Join(appData, "Cursor", "auth.json"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cursorauth: home directory: %w", err)
		}
		return filepath.Join(home, ".cursor", "auth.json"), nil
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "cursor", "auth.json"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cursorauth: home directory: %w", err)
		}
		return filepath.Join(home, ".config", "cursor", "auth.json"), nil
	}
}

// FilePersister implements Persister against the JSON credential file,
// using the same temp-file-then-rename atomic write discipline the
// teacher's config package uses for its own JSON persistence.
type FilePersister struct {
	Path string
}

// NewFilePersister builds a FilePersister for the given path. Pass "" to
// use DefaultCredentialPath().
func NewFilePersister(path string) (*FilePersister, error) {
	if path == "" {
		var err error
		path, err = DefaultCredentialPath()
		if err != nil {
			return nil, err
		}
	}
	return &FilePersister{Path: path}, nil
}

func (f *FilePersister) Load() (Credentials, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Credentials{}, err
	}
	var cf credentialFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return Credentials{}, fmt.Errorf("cursorauth: decode credential file: %w", err)
	}
	refresh := cf.RefreshToken
	if cf.APIKey != "" {
		refresh = refresh + "|" + cf.APIKey
	}
	return Credentials{
		AccessToken:  cf.AccessToken,
		RefreshToken: refresh,
		APIKey:       cf.APIKey,
	}, nil
}

func (f *FilePersister) Save(creds Credentials) error {
	refresh, apiKey := SplitRefresh(creds.RefreshToken)
	if creds.APIKey != "" {
		apiKey = creds.APIKey
	}
	cf := credentialFile{
		AccessToken:  creds.AccessToken,
		RefreshToken: refresh,
		APIKey:       apiKey,
	}
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("cursorauth: marshal credential file: %w", err)
	}
	return atomicWrite(f.Path, data, 0600)
}

// atomicWrite mirrors the teacher's internal/config.AtomicWrite temp-file-
// then-rename pattern (DESIGN.md C8 grounding), trimmed to this package's
// single caller.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("cursorauth: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cursor-bridge-*.tmp")
	if err != nil {
		return fmt.Errorf("cursorauth: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("cursorauth: set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cursorauth: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("cursorauth: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cursorauth: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("cursorauth: rename temp file: %w", err)
	}
	success = true
	return nil
}
