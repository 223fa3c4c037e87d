package auth

import (
	"context"
	"fmt"

	"github.com/jrsteele09/sse-forum/oauthmodel"
)

// CallbackResult is what the callback handler turns into cookies.
type CallbackResult struct {
	SessionID string
	Tokens    *oauthmodel.TokenSet
	Identity  *oauthmodel.UserIdentity
}

// Callback completes the authorization code flow. The session named by state
// is consumed before the exchange, so a state value can only be used once.
func (g *Gatekeeper) Callback(ctx context.Context, state, code string) (*CallbackResult, error) {
	if state == "" || code == "" {
		return nil, oauthmodel.ErrMissingCode
	}

	session, err := g.sessions.Consume(state)
	if err != nil {
		return nil, fmt.Errorf("[auth Callback] %w: %w", oauthmodel.ErrInvalidSession, err)
	}
	if session.Provider != "" && session.Provider != g.provider.Name() {
		return nil, fmt.Errorf("[auth Callback] session issued for %q: %w", session.Provider, oauthmodel.ErrInvalidSession)
	}

	tokens, err := g.provider.Exchange(ctx, code, session.CodeVerifier)
	if err != nil {
		return nil, fmt.Errorf("[auth Callback] code exchange failed: %w", err)
	}

	identity, err := g.provider.FetchIdentity(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("[auth Callback] identity lookup failed: %w", err)
	}

	g.logger.Info().
		Str("session", state).
		Str("user", identity.ID).
		Bool("refresh_token", tokens.HasRefreshToken()).
		Msg("User signed in")

	return &CallbackResult{SessionID: state, Tokens: tokens, Identity: identity}, nil
}
