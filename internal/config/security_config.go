package config

import "time"

type SecurityConfig interface {
	GetMaxSessionAge() time.Duration
	GetSessionSweepInterval() time.Duration
	GetCookieSecure() bool
	GetIdentityCookieTTL() time.Duration
	GetRefreshCookieTTL() time.Duration
	GetIdentitySecret() string
	GetTrustQueryIdentity() bool
}

type Security struct {
	SessionMaxAge        time.Duration `env:"SESSION_MAX_AGE" default:"10m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"1m"`
	CookieSecure         bool          `env:"COOKIE_SECURE" default:"true"`
	IdentityCookieTTL    time.Duration `env:"IDENTITY_COOKIE_TTL" default:"15m"`
	RefreshCookieTTL     time.Duration `env:"REFRESH_COOKIE_TTL" default:"8760h"`
	IdentitySecret       string        `env:"IDENTITY_SECRET"`
	TrustQueryIdentity   bool          `env:"HUB_TRUST_QUERY_IDENTITY" default:"true"`
}

var _ SecurityConfig = Security{}

func (s Security) GetMaxSessionAge() time.Duration {
	if s.SessionMaxAge <= 0 {
		return 10 * time.Minute
	}
	return s.SessionMaxAge
}

func (s Security) GetSessionSweepInterval() time.Duration {
	if s.SessionSweepInterval <= 0 {
		return time.Minute
	}
	return s.SessionSweepInterval
}

func (s Security) GetCookieSecure() bool {
	return s.CookieSecure
}

func (s Security) GetIdentityCookieTTL() time.Duration {
	if s.IdentityCookieTTL <= 0 {
		return 15 * time.Minute
	}
	return s.IdentityCookieTTL
}

func (s Security) GetRefreshCookieTTL() time.Duration {
	if s.RefreshCookieTTL <= 0 {
		return 365 * 24 * time.Hour
	}
	return s.RefreshCookieTTL
}

// GetIdentitySecret may be empty, in which case a per-process key is used.
func (s Security) GetIdentitySecret() string {
	return s.IdentitySecret
}

func (s Security) GetTrustQueryIdentity() bool {
	return s.TrustQueryIdentity
}
