package cursorauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// PKCE holds the verifier/challenge pair and poll handle for one login
// attempt (spec §4.6 "PKCE start").
type PKCE struct {
	UUID     string
	Verifier string
	LoginURL string
}

// StartPKCE generates a fresh verifier/challenge pair and builds the login
// URL the user opens in a browser (spec §4.6).
func StartPKCE() (PKCE, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return PKCE{}, fmt.Errorf("cursorauth: generate verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)

	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	id := uuid.NewString()
	loginURL := fmt.Sprintf(
		"https://cursor.com/loginDeepControl?challenge=%s&uuid=%s&mode=login&redirectTarget=cli",
		challenge, id,
	)

	return PKCE{UUID: id, Verifier: verifier, LoginURL: loginURL}, nil
}
