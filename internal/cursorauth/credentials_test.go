package cursorauth

import "testing"

func TestIsExpired(t *testing.T) {
	now := int64(1_000_000)
	cases := []struct {
		name string
		c    *Credentials
		want bool
	}{
		{"nil", nil, true},
		{"no access token", &Credentials{ExpiresAtMs: now + 1_000_000}, true},
		{"far future", &Credentials{AccessToken: "a", ExpiresAtMs: now + 1_000_000}, false},
		{"within buffer", &Credentials{AccessToken: "a", ExpiresAtMs: now + 30_000}, true},
		{"already past", &Credentials{AccessToken: "a", ExpiresAtMs: now - 1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.IsExpired(now); got != tc.want {
				t.Errorf("IsExpired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSplitRefresh(t *testing.T) {
	refresh, apiKey := SplitRefresh("rtok|key123")
	if refresh != "rtok" || apiKey != "key123" {
		t.Fatalf("got (%q, %q)", refresh, apiKey)
	}

	refresh, apiKey = SplitRefresh("plainrefresh")
	if refresh != "plainrefresh" || apiKey != "" {
		t.Fatalf("got (%q, %q)", refresh, apiKey)
	}
}

func TestMemoryStoreSetAuthRoundTrip(t *testing.T) {
	s := NewMemoryStore(nil)
	s.SetAuth("access1", "refresh1", "")
	if s.GetAccess() != "access1" || s.GetRefresh() != "refresh1" {
		t.Fatalf("unexpected store state: %+v", s.GetAll())
	}
	// Access-only update preserves the existing refresh token.
	s.SetAuth("access2", "", "")
	if s.GetAccess() != "access2" || s.GetRefresh() != "refresh1" {
		t.Fatalf("unexpected store state after partial update: %+v", s.GetAll())
	}
}
