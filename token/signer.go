package token

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	keySize      = 32
	identityInfo = "sse-forum identity cookie v1"
)

// Signer is an interface for signing and verifying JWT tokens
type Signer interface {
	// Sign creates a signed JWT token from claims
	Sign(claims jwt.Claims) (string, error)

	// GetVerificationKey returns the key used to check a parsed token's signature
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod returns the JWT signing method used
	GetSigningMethod() jwt.SigningMethod
}

// HMACsigner implements Signer using symmetric HMAC-SHA256
type HMACsigner struct {
	secret []byte
}

var _ Signer = (*HMACsigner)(nil)

// NewHMACSigner derives the signing key from secret with HKDF-SHA256.
// An empty secret yields a random per-process key.
func NewHMACSigner(secret string) (*HMACsigner, error) {
	ikm := []byte(secret)
	if len(ikm) == 0 {
		ikm = make([]byte, keySize)
		if _, err := rand.Read(ikm); err != nil {
			return nil, fmt.Errorf("[token NewHMACSigner] failed to generate secret: %w", err)
		}
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, []byte(identityInfo)), key); err != nil {
		return nil, fmt.Errorf("[token NewHMACSigner] failed to derive key: %w", err)
	}
	return &HMACsigner{secret: key}, nil
}

func (h *HMACsigner) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with HMAC: %w", err)
	}
	return signedToken, nil
}

func (h *HMACsigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACsigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}
