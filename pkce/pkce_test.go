package pkce_test

import (
	"testing"

	"github.com/jrsteele09/sse-forum/pkce"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGenerateVerifier(t *testing.T) {
	t.Run("length and alphabet", func(t *testing.T) {
		v, err := pkce.GenerateVerifier()
		require.NoError(t, err)
		require.Len(t, v, 43)
		require.Regexp(t, `^[A-Za-z0-9_-]+$`, v)
	})

	t.Run("unique", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			v, err := pkce.GenerateVerifier()
			require.NoError(t, err)
			_, dup := seen[v]
			require.False(t, dup)
			seen[v] = struct{}{}
		}
	})
}

func TestDeriveChallenge(t *testing.T) {
	t.Run("RFC 7636 appendix B", func(t *testing.T) {
		got := pkce.DeriveChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")
		require.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", got)
	})

	t.Run("deterministic", func(t *testing.T) {
		v, err := pkce.GenerateVerifier()
		require.NoError(t, err)
		require.Equal(t, pkce.DeriveChallenge(v), pkce.DeriveChallenge(v))
	})

	t.Run("matches x/oauth2", func(t *testing.T) {
		v := oauth2.GenerateVerifier()
		require.Equal(t, oauth2.S256ChallengeFromVerifier(v), pkce.DeriveChallenge(v))
	})

	t.Run("no padding", func(t *testing.T) {
		require.NotContains(t, pkce.DeriveChallenge("x"), "=")
	})
}

func TestNewPair(t *testing.T) {
	p, err := pkce.NewPair()
	require.NoError(t, err)
	require.Equal(t, "S256", p.Method)
	require.Equal(t, pkce.ChallengeMethod(), p.Method)
	require.Equal(t, pkce.DeriveChallenge(p.Verifier), p.Challenge)
}
