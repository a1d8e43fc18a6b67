// Command cursor-bridge runs the OpenAI-compatible proxy that speaks
// Cursor's bidirectional Agent protocol on the server side (spec §1),
// following the teacher's cmd/goclaw kong-based command dispatch and
// internal/logging startup sequence.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/cursor-bridge/internal/bridgeconfig"
	"github.com/roelfdiedericks/cursor-bridge/internal/bridgehttp"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorauth"

	. "github.com/roelfdiedericks/cursor-bridge/internal/logging"
)

// version is set by the release process via ldflags: -X main.version=...
var version = "dev"

// Context carries the shared flags every subcommand's Run method reads,
// mirroring cmd/goclaw's Context struct.
type Context struct {
	Debug  bool
	Trace  bool
	Config string
}

// CLI is the root command set.
type CLI struct {
	Debug  bool   `help:"Enable debug logging" short:"d"`
	Trace  bool   `help:"Enable trace logging" short:"t"`
	Config string `help:"Config file path" short:"c" type:"path"`

	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Run the proxy HTTP server"`
	Auth    AuthCmd    `cmd:"" help:"Manage Cursor OAuth credentials"`
	Version VersionCmd `cmd:"" help:"Show version"`
}

// ServeCmd starts the long-lived HTTP server (spec §6, SPEC_FULL.md §4.8).
type ServeCmd struct {
	Listen string `help:"Listen address" default:""`
}

func (s *ServeCmd) Run(ctx *Context) error {
	cfg, err := bridgeconfig.Load(ctx.Config)
	if err != nil {
		return fmt.Errorf("cursor-bridge: load config: %w", err)
	}
	if s.Listen != "" {
		cfg.ListenAddr = s.Listen
	}

	persister, err := cursorauth.NewFilePersister(cfg.CredentialPath)
	if err != nil {
		return fmt.Errorf("cursor-bridge: resolve credential path: %w", err)
	}
	store := cursorauth.NewMemoryStore(persister)
	client := cursorauth.NewClient(cfg.APIBase)
	tokens := cursorauth.NewTokenProvider(store, client)

	server := bridgehttp.New(cfg, tokens)

	if ctx.Config != "" {
		watcher, err := bridgeconfig.Watch(ctx.Config, server.SetConfig)
		if err != nil {
			L_warn("cursor-bridge: config hot-reload disabled", "error", err)
		} else if watcher != nil {
			defer watcher.Close()
		}
	}

	L_info("cursor-bridge: listening", "addr", cfg.ListenAddr, "baseURL", cfg.BaseURL)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
	}
	return httpServer.ListenAndServe()
}

// AuthCmd groups the OAuth/PKCE subcommands (spec §4.6).
type AuthCmd struct {
	Login  AuthLoginCmd  `cmd:"" help:"Start a browser-based login and poll for credentials"`
	Status AuthStatusCmd `cmd:"" help:"Show the current credential status"`
	Logout AuthLogoutCmd `cmd:"" help:"Clear stored credentials"`
}

// AuthLoginCmd drives spec §4.6's PKCE start + poll flow. Opening a
// browser is spec §1's "external collaborator, interface only"; this
// subcommand prints the URL for the operator to open themselves.
type AuthLoginCmd struct{}

func (a *AuthLoginCmd) Run(ctx *Context) error {
	cfg, err := bridgeconfig.Load(ctx.Config)
	if err != nil {
		return fmt.Errorf("cursor-bridge: load config: %w", err)
	}

	pkce, err := cursorauth.StartPKCE()
	if err != nil {
		return fmt.Errorf("cursor-bridge: start PKCE: %w", err)
	}
	fmt.Printf("Open this URL to sign in:\n\n  %s\n\nWaiting for confirmation...\n", pkce.LoginURL)

	client := cursorauth.NewClient(cfg.APIBase)
	pollCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	creds, err := client.Poll(pollCtx, pkce.UUID, pkce.Verifier)
	if err != nil {
		return fmt.Errorf("cursor-bridge: poll login: %w", err)
	}
	if creds == nil {
		return fmt.Errorf("cursor-bridge: login timed out or was not completed")
	}

	persister, err := cursorauth.NewFilePersister(cfg.CredentialPath)
	if err != nil {
		return fmt.Errorf("cursor-bridge: resolve credential path: %w", err)
	}
	if err := persister.Save(*creds); err != nil {
		return fmt.Errorf("cursor-bridge: save credentials: %w", err)
	}
	fmt.Println("Login successful; credentials saved.")
	return nil
}

// AuthStatusCmd reports whether a usable, non-expired credential is
// currently stored.
type AuthStatusCmd struct{}

func (a *AuthStatusCmd) Run(ctx *Context) error {
	cfg, err := bridgeconfig.Load(ctx.Config)
	if err != nil {
		return fmt.Errorf("cursor-bridge: load config: %w", err)
	}
	persister, err := cursorauth.NewFilePersister(cfg.CredentialPath)
	if err != nil {
		return fmt.Errorf("cursor-bridge: resolve credential path: %w", err)
	}
	store := cursorauth.NewMemoryStore(persister)
	creds := store.GetAll()
	if creds.AccessToken == "" {
		fmt.Println("not logged in")
		return nil
	}
	if creds.IsExpired(time.Now().UnixMilli()) {
		fmt.Println("logged in, but access token is expired or near expiry (will refresh on next use)")
		return nil
	}
	fmt.Println("logged in")
	return nil
}

// AuthLogoutCmd clears the on-disk credential file.
type AuthLogoutCmd struct{}

func (a *AuthLogoutCmd) Run(ctx *Context) error {
	cfg, err := bridgeconfig.Load(ctx.Config)
	if err != nil {
		return fmt.Errorf("cursor-bridge: load config: %w", err)
	}
	persister, err := cursorauth.NewFilePersister(cfg.CredentialPath)
	if err != nil {
		return fmt.Errorf("cursor-bridge: resolve credential path: %w", err)
	}
	store := cursorauth.NewMemoryStore(persister)
	store.Clear()
	fmt.Println("credentials cleared")
	return nil
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (v *VersionCmd) Run(ctx *Context) error {
	fmt.Println("cursor-bridge " + version)
	return nil
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("cursor-bridge"),
		kong.Description("OpenAI-compatible proxy for Cursor's Agent protocol"),
		kong.UsageOnError(),
	)

	level := LevelInfo
	if cli.Trace {
		level = LevelTrace
	} else if cli.Debug {
		level = LevelDebug
	}
	Init(&Config{Level: level, ShowCaller: true})

	err := kctx.Run(&Context{Debug: cli.Debug, Trace: cli.Trace, Config: cli.Config})
	if err != nil {
		L_fatal("command failed", "error", err)
		os.Exit(1)
	}
}
