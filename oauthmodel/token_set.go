package oauthmodel

import "time"

const (
	// DefaultAccessTTL applies when the provider omits expires_in.
	DefaultAccessTTL = 3599 * time.Second
	// MinAccessTTL keeps a freshly issued access cookie from being born expired.
	MinAccessTTL = 1 * time.Second
)

// TokenSet is the result of a code exchange or a refresh.
// The server hands it to the browser as cookies and does not keep it.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string

	// ExpiresIn is the provider reported lifetime in seconds, 0 when absent.
	ExpiresIn int64
	Expiry    time.Time
}

// AccessTTL is the lifetime to give the access token cookie.
func (t *TokenSet) AccessTTL() time.Duration {
	if t == nil || t.ExpiresIn == 0 {
		return DefaultAccessTTL
	}
	ttl := time.Duration(t.ExpiresIn) * time.Second
	if ttl < MinAccessTTL {
		return MinAccessTTL
	}
	return ttl
}

// HasRefreshToken reports whether the provider issued a refresh token.
func (t *TokenSet) HasRefreshToken() bool {
	return t != nil && t.RefreshToken != ""
}
