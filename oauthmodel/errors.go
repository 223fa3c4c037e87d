package oauthmodel

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSession  = errors.New("invalid session")
	ErrInvalidGrant    = errors.New("invalid grant")
	ErrMissingCode     = errors.New("missing code or state parameter")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNoRefreshToken  = errors.New("no refresh token")
	ErrEmptyToken      = errors.New("token response missing access_token")
)

// ProviderError is an explicit rejection reported by the identity provider,
// e.g. {"error":"invalid_grant"} from the token endpoint.
type ProviderError struct {
	Op          string
	Code        string
	Description string
	StatusCode  int
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: provider rejected request: %s - %s", e.Op, e.Code, e.Description)
	}
	return fmt.Sprintf("%s: provider rejected request: %s (status %d)", e.Op, e.Code, e.StatusCode)
}

// Is lets callers test a rejection with errors.Is(err, ErrInvalidGrant).
func (e *ProviderError) Is(target error) bool {
	return target == ErrInvalidGrant && e.Code == "invalid_grant"
}

// NetworkError covers an unreachable provider or a response that could not be parsed.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err carries a provider rejection.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsNetworkError reports whether err is a transport or parsing failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
