// Package bridgehttp hosts the OpenAI Chat Completions surface this proxy
// exposes to editors/CLIs (spec §6), translating each inbound request into
// a fresh Cursor AgentService session (C5) via the OpenAI adapter (C7),
// the tool bridge (C6), and the auth core (C8). It is deliberately thin:
// spec §1 treats the inbound HTTP framework as an external collaborator,
// so this package exists to host C1-C9 end to end, not to replace them.
package bridgehttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/roelfdiedericks/cursor-bridge/internal/bridgeconfig"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorauth"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursormodels"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorproto"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorsession"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursortransport"
	"github.com/roelfdiedericks/cursor-bridge/internal/openaiadapter"

	. "github.com/roelfdiedericks/cursor-bridge/internal/logging"
)

// Server wires together the credential core, model registry, and session
// machinery behind net/http handlers. The config pointer is guarded by
// cfgMu and swapped whole on config reload (bridgeconfig.Watch), so each
// request reads one consistent snapshot, matching the teacher's
// single-owner-performs-refresh/readers-observe-swap discipline already
// used by cursorauth (spec §5).
type Server struct {
	cfgMu sync.RWMutex
	cfg   *bridgeconfig.Config

	tokens *cursorauth.TokenProvider
	mux    *http.ServeMux
}

// New builds a Server bound to cfg and a token provider. The returned
// Server's Handler() is ready to pass to http.Server.
func New(cfg *bridgeconfig.Config, tokens *cursorauth.TokenProvider) *Server {
	s := &Server{cfg: cfg, tokens: tokens}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	s.mux.HandleFunc("/v1/models", s.handleListModels)
	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler { return s.mux }

// SetConfig atomically swaps the live config, called by bridgeconfig.Watch
// on file change so in-flight requests are unaffected and new ones pick up
// the new heartbeat/timeout knobs immediately.
func (s *Server) SetConfig(cfg *bridgeconfig.Config) {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

func (s *Server) config() *bridgeconfig.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleListModels serves a minimal OpenAI-shaped /v1/models listing built
// from the Cursor model registry (C9) — most OpenAI-compatible clients
// probe this endpoint before their first chat-completion call.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	cfg := s.config()
	ctx, cancel := context.WithTimeout(r.Context(), cfg.RequestTimeout())
	defer cancel()

	token, err := s.tokens.Get(ctx)
	if err != nil {
		writeOpenAIError(w, http.StatusUnauthorized, err)
		return
	}
	transport := cursortransport.New(cfg.BaseURL, token)
	cursorModels, err := transport.GetUsableModels(ctx)
	if err != nil {
		L_warn("bridgehttp: GetUsableModels failed", "error", err)
		writeOpenAIError(w, http.StatusBadGateway, err)
		return
	}

	type modelEntry struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	}
	data := make([]modelEntry, 0, len(cursorModels))
	for _, m := range cursorModels {
		data = append(data, modelEntry{ID: m.ModelID, Object: "model", OwnedBy: "cursor"})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
}

// handleChatCompletions is the core inbound surface (spec §6): it opens a
// fresh Cursor session per request (spec §9), drains its event stream
// through the OpenAI adapter (C7), and returns either SSE chunks or one
// aggregated JSON body depending on the request's stream flag.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOpenAIError(w, http.StatusBadRequest, fmt.Errorf("bridgehttp: decode request: %w", err))
		return
	}

	cfg := s.config()
	ctx, cancel := context.WithTimeout(r.Context(), cfg.RequestTimeout())
	defer cancel()

	token, err := s.tokens.Get(ctx)
	if err != nil {
		writeOpenAIError(w, http.StatusUnauthorized, err)
		return
	}

	run, err := buildRunRequest(cfg, req)
	if err != nil {
		writeOpenAIError(w, http.StatusBadRequest, err)
		return
	}

	transport := cursortransport.NewRefreshing(cfg.BaseURL, s.tokens, token)
	policy := cursorsession.HeartbeatPolicy{
		IdleMsNoProgress:   time.Duration(cfg.HeartbeatIdleMSNoProgress) * time.Millisecond,
		MaxBeatsNoProgress: cfg.HeartbeatMaxBeatsNoProgress,
		IdleMsProgress:     time.Duration(cfg.HeartbeatIdleMSProgress) * time.Millisecond,
		MaxBeatsProgress:   cfg.HeartbeatMaxBeatsProgress,
	}
	sess := cursorsession.New(transport, policy, cfg.RequestTimeout(), "")

	body, err := sess.Start(ctx, run)
	if err != nil {
		L_error("bridgehttp: session start failed", "error", err)
		writeOpenAIError(w, http.StatusBadGateway, err)
		return
	}
	events := sess.Run(ctx, body)

	model := cursormodels.Lookup(req.Model).Canonical
	if model == "" {
		model = req.Model
	}

	if req.Stream {
		writer, err := openaiadapter.NewChunkWriter(w, "chatcmpl-"+sess.ID, model)
		if err != nil {
			writeOpenAIError(w, http.StatusInternalServerError, err)
			return
		}
		outcome := openaiadapter.Translate(sess.ID, events, writer)
		if outcome.Err != nil {
			L_warn("bridgehttp: stream ended with error", "session", sess.ID, "error", outcome.Err)
		}
		return
	}

	resp, err := openaiadapter.Aggregate(sess.ID, model, events)
	if err != nil {
		L_warn("bridgehttp: aggregate ended with error", "session", sess.ID, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// buildRunRequest translates one OpenAI request into the initial
// AgentRunRequest (spec §4.2, §4.5): flattened prompt, tool definitions,
// and workspace/environment metadata.
func buildRunRequest(cfg *bridgeconfig.Config, req openai.ChatCompletionRequest) (*cursorproto.AgentRunRequest, error) {
	prompt := openaiadapter.FlattenPrompt(req.Messages)
	tools, err := openaiadapter.BuildMcpTools(req.Tools)
	if err != nil {
		return nil, err
	}

	mode := cursorproto.ModeAgent
	if len(tools) == 0 {
		mode = cursorproto.ModeAsk
	}

	return &cursorproto.AgentRunRequest{
		Action: &cursorproto.UserMessageAction{
			UserMessage: cursorproto.UserMessage{Text: prompt, Mode: mode},
			RequestContext: &cursorproto.RequestContext{
				Env: &cursorproto.EnvDescriptor{
					OS:            "linux",
					WorkspacePath: cfg.WorkspacePath,
					Shell:         "/bin/bash",
					Timezone:      time.Local.String(),
				},
				McpTools: tools,
			},
		},
		McpFileSystemOptions: &cursorproto.McpFileSystemOptions{
			Enabled:             true,
			WorkspaceProjectDir: cfg.WorkspacePath,
		},
	}, nil
}

func writeOpenAIError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": err.Error(), "type": "cursor_bridge_error"},
	})
}
