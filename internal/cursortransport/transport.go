// Package cursortransport implements the real HTTP wiring for the two
// Cursor AgentService calls cursorsession.Transport needs (spec §4.3,
// §6): the streaming RunSSE call and the repeated unary BidiAppend calls,
// plus the JSON Connect passthrough calls (GetUsableModels,
// GetDefaultModelForCli) and the shared header set spec §4.6 requires on
// every Cursor call.
package cursortransport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/roelfdiedericks/cursor-bridge/internal/cursorauth"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorframe"
	"github.com/roelfdiedericks/cursor-bridge/internal/cursorproto"
)

// DefaultBaseURL is spec §6's default Cursor AgentService host.
const DefaultBaseURL = "https://api2.cursor.sh"

// ClientVersion/ClientType are the static values this proxy advertises to
// Cursor (spec §4.6). The x-cursor-timezone header carries the process's
// local zone name.
const (
	ClientVersion = "cursor-bridge/1.0.0"
	ClientType    = "cli"
)

// HTTPTransport implements cursorsession.Transport against the real
// Cursor endpoints, and additionally exposes the sidecar JSON RPCs
// (GetUsableModels, GetDefaultModelForCli) spec §6 lists alongside them.
type HTTPTransport struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
}

// New builds a transport bound to one access token. A fresh HTTPTransport
// is cheap; callers typically build one per inbound OpenAI request (spec
// §9 "fresh session per inbound request").
func New(baseURL, token string) *HTTPTransport {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPTransport{
		HTTPClient: &http.Client{Timeout: 0}, // streaming call manages its own deadline via ctx
		BaseURL:    baseURL,
		Token:      token,
	}
}

// Checksum derives the x-cursor-checksum header value (spec §4.6 "derived",
// resolved as a DESIGN.md Open Question): two SHA-256 digests, one of the
// access token and one of the token with "cursor" appended, each
// hex-encoded and joined with '/'.
func Checksum(token string) string {
	first := sha256.Sum256([]byte(token))
	second := sha256.Sum256([]byte(token + "cursor"))
	return hex.EncodeToString(first[:]) + "/" + hex.EncodeToString(second[:])
}

func (t *HTTPTransport) setCommonHeaders(req *http.Request, requestID string) {
	req.Header.Set("authorization", "Bearer "+t.Token)
	req.Header.Set("x-cursor-checksum", Checksum(t.Token))
	req.Header.Set("x-cursor-client-version", ClientVersion)
	req.Header.Set("x-cursor-client-type", ClientType)
	req.Header.Set("x-cursor-timezone", time.Local.String())
	req.Header.Set("x-ghost-mode", "false")
	req.Header.Set("x-cursor-streaming", "true")
	req.Header.Set("x-request-id", requestID)
}

// OpenInboundStream issues the RunSSE streaming call (spec §4.3).
func (t *HTTPTransport) OpenInboundStream(ctx context.Context, requestID string) (io.ReadCloser, error) {
	body := cursorproto.BidiRequestId{RequestID: requestID}.Marshal()
	framed := cursorframe.EncodeFrame(body)

	url := t.BaseURL + "/agent.v1.AgentService/RunSSE"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(framed))
	if err != nil {
		return nil, fmt.Errorf("cursortransport: build RunSSE request: %w", err)
	}
	req.Header.Set("content-type", "application/grpc-web+proto")
	t.setCommonHeaders(req, requestID)

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cursortransport: RunSSE request: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("cursortransport: RunSSE status %d: %s", resp.StatusCode, data)
	}
	return resp.Body, nil
}

// Append issues one BidiAppend unary call (spec §4.3). payload is already
// frame-encoded by the caller (cursorsession.Session.send).
func (t *HTTPTransport) Append(ctx context.Context, requestID string, seqno int64, payload []byte) error {
	url := t.BaseURL + "/aiserver.v1.BidiService/BidiAppend"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("cursortransport: build BidiAppend request: %w", err)
	}
	req.Header.Set("content-type", "application/grpc-web+proto")
	t.setCommonHeaders(req, requestID)

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("cursortransport: BidiAppend seqno %d: %w", seqno, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cursortransport: BidiAppend seqno %d status %d", seqno, resp.StatusCode)
	}
	return nil
}

// ErrUnauthorized is spec §7's Unauthorized error kind: a 401 on any call.
// Callers retry once after a token refresh, per policy.
var ErrUnauthorized = fmt.Errorf("cursortransport: unauthorized")

// ModelInfo is one entry of GetUsableModels' response (spec §6).
type ModelInfo struct {
	ModelID          string   `json:"modelId"`
	DisplayModelID   string   `json:"displayModelId,omitempty"`
	Aliases          []string `json:"aliases,omitempty"`
	DisplayName      string   `json:"displayName,omitempty"`
	DisplayNameShort string   `json:"displayNameShort,omitempty"`
}

type usableModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// GetUsableModels proxies Cursor's JSON Connect model-list endpoint (spec
// §6), used by the supplemented GetUsableModels passthrough handler.
func (t *HTTPTransport) GetUsableModels(ctx context.Context) ([]ModelInfo, error) {
	var out usableModelsResponse
	if err := t.connectJSON(ctx, "/aiserver.v1.AiService/GetUsableModels", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

type defaultModelResponse struct {
	ModelID string `json:"modelId"`
}

// GetDefaultModelForCli proxies Cursor's JSON Connect default-model
// endpoint (spec §6).
func (t *HTTPTransport) GetDefaultModelForCli(ctx context.Context) (string, error) {
	var out defaultModelResponse
	if err := t.connectJSON(ctx, "/aiserver.v1.AiService/GetDefaultModelForCli", nil, &out); err != nil {
		return "", err
	}
	return out.ModelID, nil
}

// connectJSON issues one JSON Connect RPC (spec §4.6's "sidecar JSON RPCs"
// header set: application/json + connect-protocol-version).
func (t *HTTPTransport) connectJSON(ctx context.Context, path string, reqBody any, out any) error {
	var bodyReader io.Reader = http.NoBody
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("cursortransport: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("cursortransport: build request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("connect-protocol-version", "1")
	t.setCommonHeaders(req, uuid.NewString())

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("cursortransport: %s request: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cursortransport: read %s response: %w", path, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cursortransport: %s status %d: %s", path, resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("cursortransport: decode %s response: %w", path, err)
	}
	return nil
}

// RefreshingTransport wraps an HTTPTransport with spec §7's Unauthorized
// policy: on a 401 from either call, force one token refresh and retry the
// call once; a second 401 escalates to the caller as an auth error.
type RefreshingTransport struct {
	inner  *HTTPTransport
	tokens *cursorauth.TokenProvider
}

// NewRefreshing builds a RefreshingTransport bound to baseURL and tokens.
// The wrapped HTTPTransport's Token field is updated in place after a
// forced refresh, so callers never see the stale token again.
func NewRefreshing(baseURL string, tokens *cursorauth.TokenProvider, initialToken string) *RefreshingTransport {
	return &RefreshingTransport{inner: New(baseURL, initialToken), tokens: tokens}
}

func (t *RefreshingTransport) refreshToken(ctx context.Context) error {
	fresh, err := t.tokens.ForceRefresh(ctx)
	if err != nil {
		return fmt.Errorf("cursortransport: refresh after 401: %w", err)
	}
	t.inner.Token = fresh
	return nil
}

// OpenInboundStream implements cursorsession.Transport.
func (t *RefreshingTransport) OpenInboundStream(ctx context.Context, requestID string) (io.ReadCloser, error) {
	body, err := t.inner.OpenInboundStream(ctx, requestID)
	if err != ErrUnauthorized {
		return body, err
	}
	if refreshErr := t.refreshToken(ctx); refreshErr != nil {
		return nil, refreshErr
	}
	return t.inner.OpenInboundStream(ctx, requestID)
}

// Append implements cursorsession.Transport.
func (t *RefreshingTransport) Append(ctx context.Context, requestID string, seqno int64, payload []byte) error {
	err := t.inner.Append(ctx, requestID, seqno, payload)
	if err != ErrUnauthorized {
		return err
	}
	if refreshErr := t.refreshToken(ctx); refreshErr != nil {
		return refreshErr
	}
	return t.inner.Append(ctx, requestID, seqno, payload)
}
