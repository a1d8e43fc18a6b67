package cursorauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAPIBase is the Cursor sidecar JSON-RPC host (spec §6).
const DefaultAPIBase = "https://api2.cursor.sh"

// pollBase/pollFactor/pollCap/maxAttempts are spec §4.6's literal poll
// backoff constants.
const (
	pollBase        = time.Second
	pollFactor      = 1.2
	pollCap         = 10 * time.Second
	maxPollAttempts = 150
)

// tokenResponse is the JSON shape returned by poll/refresh/exchange (spec
// §4.6).
type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Client speaks the three Cursor sidecar auth endpoints over plain JSON
// (spec §4.6, §6). One Client per process is typical.
type Client struct {
	HTTPClient *http.Client
	APIBase    string
}

// NewClient returns a Client with sane defaults.
func NewClient(apiBase string) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{HTTPClient: &http.Client{Timeout: 30 * time.Second}, APIBase: apiBase}
}

// Poll implements spec §4.6's "Poll" step: gentle exponential backoff
// (1s base, 1.2x per attempt, capped at 10s) up to 150 attempts. A 404
// response means "still pending" and the loop continues; three consecutive
// non-404 failures, or exhausting every attempt, returns (nil, nil) per the
// spec's "Three consecutive non-404 failures or timeout → null."
func (c *Client) Poll(ctx context.Context, uuid, verifier string) (*Credentials, error) {
	u := fmt.Sprintf("%s/auth/poll?uuid=%s&verifier=%s", c.APIBase, url.QueryEscape(uuid), url.QueryEscape(verifier))

	consecutiveFailures := 0
	delay := pollBase
	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("cursorauth: build poll request: %w", err)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			consecutiveFailures++
			if consecutiveFailures >= 3 {
				return nil, nil
			}
			if !sleep(ctx, nextDelay(&delay)) {
				return nil, nil
			}
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			consecutiveFailures = 0
			if !sleep(ctx, nextDelay(&delay)) {
				return nil, nil
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			consecutiveFailures++
			if consecutiveFailures >= 3 {
				return nil, nil
			}
			if !sleep(ctx, nextDelay(&delay)) {
				return nil, nil
			}
			continue
		}

		var tr tokenResponse
		if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
			consecutiveFailures++
			if consecutiveFailures >= 3 {
				return nil, nil
			}
			if !sleep(ctx, nextDelay(&delay)) {
				return nil, nil
			}
			continue
		}

		return credsFromTokenResponse(tr), nil
	}
	return nil, nil
}

func nextDelay(delay *time.Duration) time.Duration {
	d := *delay
	next := time.Duration(math.Min(float64(pollCap), float64(*delay)*pollFactor))
	*delay = next
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ExchangeAPIKey implements spec §4.6's "API-key exchange" step.
func (c *Client) ExchangeAPIKey(ctx context.Context, apiKey string) (*Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBase+"/auth/exchange_user_api_key", nil)
	if err != nil {
		return nil, fmt.Errorf("cursorauth: build exchange request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cursorauth: exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cursorauth: read exchange response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cursorauth: exchange failed: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("cursorauth: decode exchange response: %w", err)
	}
	creds := credsFromTokenResponse(tr)
	creds.APIKey = apiKey
	return creds, nil
}

// Refresh implements spec §4.6's "Refresh" step: exchanges the refresh
// token for a fresh access token, then parses the new token's exp claim
// (without signature verification — tokens are opaque to this core per
// spec §1 Non-goals) to set ExpiresAtMs.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBase+"/auth/refresh", nil)
	if err != nil {
		return nil, fmt.Errorf("cursorauth: build refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cursorauth: refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cursorauth: read refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		return nil, fmt.Errorf("cursorauth: refresh failed: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return nil, fmt.Errorf("cursorauth: decode refresh response: %w", err)
	}

	creds := &Credentials{
		AccessToken:  tr.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAtMs:  expiryFromJWT(tr.AccessToken),
	}
	if tr.RefreshToken != "" {
		creds.RefreshToken = tr.RefreshToken
	}
	return creds, nil
}

// defaultRefreshLifetime is spec §4.6's fallback when a refreshed access
// token's exp claim can't be parsed.
const defaultRefreshLifetime = time.Hour

// expiryFromJWT parses the unverified exp claim out of a JWT access token,
// defaulting to now+1h if the token can't be parsed (spec §4.6).
func expiryFromJWT(token string) int64 {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	_, _, err := parser.ParseUnverified(token, claims)
	if err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.UnixMilli()
		}
	}
	return time.Now().Add(defaultRefreshLifetime).UnixMilli()
}

func credsFromTokenResponse(tr tokenResponse) *Credentials {
	return &Credentials{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAtMs:  expiryFromJWT(tr.AccessToken),
	}
}
