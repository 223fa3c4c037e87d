package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/sse-forum/internal/errors"
	"github.com/jrsteele09/sse-forum/oauthmodel"
)

// IdentityClaims is the payload of the identity cookie the hub trusts in
// hardened mode.
type IdentityClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IdentityIssuer signs and verifies identity cookies.
type IdentityIssuer struct {
	signer  Signer
	nowFunc func() time.Time
}

type IssuerOption func(*IdentityIssuer)

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *IdentityIssuer) {
		i.nowFunc = now
	}
}

func NewIdentityIssuer(signer Signer, options ...IssuerOption) *IdentityIssuer {
	i := &IdentityIssuer{signer: signer, nowFunc: time.Now}
	for _, opt := range options {
		opt(i)
	}
	return i
}

func (i *IdentityIssuer) Issue(identity *oauthmodel.UserIdentity, ttl time.Duration) (string, error) {
	now := i.nowFunc()
	claims := IdentityClaims{
		Name:  identity.DisplayName(),
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("[token Issue] %w", err)
	}
	return signed, nil
}

// Verify returns ErrTokenExpired for a well-signed but stale cookie and
// ErrInvalidToken for anything else that fails validation.
func (i *IdentityIssuer) Verify(raw string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, i.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.nowFunc),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperrors.Wrapf(apperrors.ErrTokenExpired, "[token Verify] %v", err)
	default:
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "[token Verify] %v", err)
	}
}
