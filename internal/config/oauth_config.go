package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"

	FlowPKCE = "pkce"
	FlowCode = "code"
)

type OAuthConfig interface {
	GetProviderName() string
	GetRequirePKCE() bool
	GetProviderCredentials() ProviderCredentials
	GetProviderTimeout() time.Duration
}

// ProviderCredentials are the client registration values for one provider.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type OAuth struct {
	Provider        string        `env:"OAUTH_PROVIDER" default:"google"`
	Flow            string        `env:"OAUTH_FLOW" default:"pkce"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" default:"10s"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURI  string `env:"GITHUB_REDIRECT_URI"`
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetProviderName() string {
	return strings.ToLower(strings.TrimSpace(o.Provider))
}

func (o OAuth) GetRequirePKCE() bool {
	return strings.ToLower(strings.TrimSpace(o.Flow)) != FlowCode
}

func (o OAuth) GetProviderCredentials() ProviderCredentials {
	switch o.GetProviderName() {
	case ProviderGitHub:
		return ProviderCredentials{ClientID: o.GitHubClientID, ClientSecret: o.GitHubClientSecret, RedirectURL: o.GitHubRedirectURI}
	default:
		return ProviderCredentials{ClientID: o.GoogleClientID, ClientSecret: o.GoogleClientSecret, RedirectURL: o.GoogleRedirectURI}
	}
}

func (o OAuth) GetProviderTimeout() time.Duration {
	if o.ProviderTimeout <= 0 {
		return 10 * time.Second
	}
	return o.ProviderTimeout
}

func (o OAuth) validate() error {
	switch o.GetProviderName() {
	case ProviderGoogle, ProviderGitHub:
	default:
		return fmt.Errorf("unsupported OAUTH_PROVIDER %q", o.Provider)
	}
	switch strings.ToLower(strings.TrimSpace(o.Flow)) {
	case FlowPKCE, FlowCode:
	default:
		return fmt.Errorf("unsupported OAUTH_FLOW %q", o.Flow)
	}
	creds := o.GetProviderCredentials()
	if creds.ClientID == "" || creds.RedirectURL == "" {
		return fmt.Errorf("client id and redirect uri are required for provider %q", o.GetProviderName())
	}
	return nil
}
