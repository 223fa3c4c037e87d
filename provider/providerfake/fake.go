// Package providerfake is an in-memory provider.Provider for tests.
package providerfake

import (
	"context"
	"net/url"
	"sync"

	"github.com/jrsteele09/sse-forum/oauthmodel"
	"github.com/jrsteele09/sse-forum/pkce"
	"github.com/jrsteele09/sse-forum/provider"
)

type ExchangeCall struct {
	Code     string
	Verifier string
}

// Provider issues tokens for the codes and refresh tokens registered on it.
type Provider struct {
	mu sync.Mutex

	ProviderName string
	BaseURL      string
	PKCE         bool

	Codes         map[string]*oauthmodel.TokenSet
	RefreshTokens map[string]*oauthmodel.TokenSet
	Identity      *oauthmodel.UserIdentity

	// Err, when set, is returned by every network operation.
	Err error

	Verifiers     []string
	ExchangeCalls []ExchangeCall
	RefreshCalls  []string
}

var _ provider.Provider = (*Provider)(nil)

func New() *Provider {
	return &Provider{
		ProviderName:  "google",
		BaseURL:       "https://idp.example.com/authorize",
		PKCE:          true,
		Codes:         map[string]*oauthmodel.TokenSet{},
		RefreshTokens: map[string]*oauthmodel.TokenSet{},
	}
}

func (p *Provider) Name() string {
	return p.ProviderName
}

func (p *Provider) AuthURL() (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	q := url.Values{"client_id": {"fake-client"}, "response_type": {"code"}}
	var verifier string
	if p.PKCE {
		pair, err := pkce.NewPair()
		if err != nil {
			return "", "", err
		}
		verifier = pair.Verifier
		q.Set("code_challenge", pair.Challenge)
		q.Set("code_challenge_method", pair.Method)
		p.Verifiers = append(p.Verifiers, verifier)
	}
	return p.BaseURL + "?" + q.Encode(), verifier, nil
}

func (p *Provider) Exchange(_ context.Context, code, verifier string) (*oauthmodel.TokenSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ExchangeCalls = append(p.ExchangeCalls, ExchangeCall{Code: code, Verifier: verifier})
	if p.Err != nil {
		return nil, p.Err
	}
	ts, ok := p.Codes[code]
	if !ok {
		return nil, &oauthmodel.ProviderError{Op: "exchange", Code: "invalid_grant", StatusCode: 400}
	}
	cp := *ts
	return &cp, nil
}

func (p *Provider) Refresh(_ context.Context, refreshToken string) (*oauthmodel.TokenSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.RefreshCalls = append(p.RefreshCalls, refreshToken)
	if p.Err != nil {
		return nil, p.Err
	}
	ts, ok := p.RefreshTokens[refreshToken]
	if !ok {
		return nil, &oauthmodel.ProviderError{Op: "refresh", Code: "invalid_grant", StatusCode: 400}
	}
	cp := *ts
	return &cp, nil
}

func (p *Provider) FetchIdentity(_ context.Context, tokens *oauthmodel.TokenSet) (*oauthmodel.UserIdentity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	if tokens == nil || tokens.AccessToken == "" {
		return nil, oauthmodel.ErrEmptyToken
	}
	if p.Identity == nil {
		return &oauthmodel.UserIdentity{}, nil
	}
	cp := *p.Identity
	return &cp, nil
}

// LastVerifier is the verifier handed out by the most recent AuthURL call.
func (p *Provider) LastVerifier() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Verifiers) == 0 {
		return ""
	}
	return p.Verifiers[len(p.Verifiers)-1]
}

func (p *Provider) Exchanges() []ExchangeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ExchangeCall(nil), p.ExchangeCalls...)
}

func (p *Provider) Refreshes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.RefreshCalls...)
}
