package errors

import (
	"errors"
	"fmt"
)

// Errors shared between the gatekeeper and the forum hub.
var (
	// Hub errors
	ErrHubClosed        = errors.New("hub closed")
	ErrQueueFull        = errors.New("broadcast queue full")
	ErrConnectionClosed = errors.New("connection closed")

	// Identity errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
