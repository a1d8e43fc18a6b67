package cursorauth

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	. "github.com/roelfdiedericks/cursor-bridge/internal/logging"
)

// TokenProvider serves a valid access token to every Cursor call, refreshing
// it on demand and coalescing concurrent refreshers behind a single in-
// flight HTTP call (spec §4.6, §5, §9 "Concurrent refresh").
type TokenProvider struct {
	store  Store
	client *Client
	sf     singleflight.Group
}

// NewTokenProvider builds a provider bound to the given credential store
// and auth client.
func NewTokenProvider(store Store, client *Client) *TokenProvider {
	return &TokenProvider{store: store, client: client}
}

// Get returns a non-expired access token, refreshing first if needed.
// Concurrent callers that observe an expired token all await the same
// in-flight refresh (spec §5 "only one HTTP refresh call fires per expiry
// event").
func (p *TokenProvider) Get(ctx context.Context) (string, error) {
	all := p.store.GetAll()
	if !all.IsExpired(nowMs()) {
		return all.AccessToken, nil
	}
	return p.doRefresh(ctx, false)
}

// ForceRefresh refreshes the access token unconditionally, even if the
// cached one isn't yet considered expired. Callers use this once after
// observing a 401 from Cursor (spec §7 Unauthorized: "trigger refresh
// once; retry; escalate to auth error on second failure"). Concurrent
// forced refreshes coalesce behind the same single-flight key as Get.
func (p *TokenProvider) ForceRefresh(ctx context.Context) (string, error) {
	return p.doRefresh(ctx, true)
}

func (p *TokenProvider) doRefresh(ctx context.Context, force bool) (string, error) {
	v, err, _ := p.sf.Do("refresh", func() (any, error) {
		current := p.store.GetAll()
		if !force && !current.IsExpired(nowMs()) {
			return current.AccessToken, nil
		}
		if current.RefreshToken == "" {
			return "", fmt.Errorf("cursorauth: no refresh token available")
		}

		refresh, apiKey := SplitRefresh(current.RefreshToken)
		fresh, err := p.client.Refresh(ctx, refresh)
		if err != nil {
			L_warn("cursorauth: refresh failed, continuing with existing token", "error", err)
			if current.AccessToken != "" {
				return current.AccessToken, nil
			}
			return "", err
		}

		storedRefresh := fresh.RefreshToken
		if apiKey != "" {
			storedRefresh = storedRefresh + "|" + apiKey
		}
		p.store.SetAuth(fresh.AccessToken, storedRefresh, apiKey)
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
