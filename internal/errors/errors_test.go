package errors_test

import (
	"testing"

	apperrors "github.com/jrsteele09/sse-forum/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "ignored"))

	err := apperrors.Wrapf(apperrors.ErrQueueFull, "[hub %s] enqueue", "Broadcast")
	require.EqualError(t, err, "[hub Broadcast] enqueue: broadcast queue full")
	require.True(t, apperrors.Is(err, apperrors.ErrQueueFull))
	require.False(t, apperrors.Is(err, apperrors.ErrHubClosed))
}
