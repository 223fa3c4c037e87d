package provider

import (
	"github.com/jrsteele09/sse-forum/pkce"
	"golang.org/x/oauth2"
)

// Flow is the authorization-code variant: plain or PKCE.
type Flow interface {
	Name() string
	// AuthCodeOptions returns the extra authorization URL parameters and the
	// verifier that must accompany the later exchange.
	AuthCodeOptions() ([]oauth2.AuthCodeOption, string, error)
	ExchangeOptions(verifier string) []oauth2.AuthCodeOption
}

type CodeFlow struct{}

func (CodeFlow) Name() string { return "code" }

func (CodeFlow) AuthCodeOptions() ([]oauth2.AuthCodeOption, string, error) {
	return nil, "", nil
}

func (CodeFlow) ExchangeOptions(string) []oauth2.AuthCodeOption {
	return nil
}

type PKCEFlow struct{}

func (PKCEFlow) Name() string { return "pkce" }

func (PKCEFlow) AuthCodeOptions() ([]oauth2.AuthCodeOption, string, error) {
	pair, err := pkce.NewPair()
	if err != nil {
		return nil, "", err
	}
	return []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", pair.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pair.Method),
	}, pair.Verifier, nil
}

func (PKCEFlow) ExchangeOptions(verifier string) []oauth2.AuthCodeOption {
	if verifier == "" {
		return nil
	}
	return []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("code_verifier", verifier)}
}
