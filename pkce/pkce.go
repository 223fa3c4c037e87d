// Package pkce implements the client side of Proof Key for Code Exchange
// (RFC 7636): a random code verifier and its S256 code challenge.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// MethodS256 is the only challenge method this package produces.
const MethodS256 = "S256"

// verifierBytes of entropy gives a 43 character verifier, the RFC minimum.
const verifierBytes = 32

// Pair holds a verifier together with the challenge derived from it.
type Pair struct {
	Verifier  string
	Challenge string
	Method    string
}

// GenerateVerifier returns a base64url encoded verifier carrying 256 bits of entropy.
func GenerateVerifier() (string, error) {
	b := make([]byte, verifierBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("[pkce GenerateVerifier] failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DeriveChallenge creates the S256 code challenge for a verifier.
func DeriveChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// ChallengeMethod returns the method name sent as code_challenge_method.
func ChallengeMethod() string {
	return MethodS256
}

// NewPair generates a verifier and derives its challenge.
func NewPair() (Pair, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Verifier:  verifier,
		Challenge: DeriveChallenge(verifier),
		Method:    ChallengeMethod(),
	}, nil
}
