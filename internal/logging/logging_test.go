package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/sse-forum/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		require.Equal(t, want, logging.ParseLevel(in), in)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Service: "forum", Env: "PROD", Level: "info"}, &buf)

	logger.Debug().Msg("hidden")
	require.Zero(t, buf.Len())

	logger.Info().Str("conn", "abc").Msg("joined")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "forum", line["service"])
	require.Equal(t, "abc", line["conn"])
	require.Equal(t, "joined", line["message"])
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Service: "forum", Env: "dev"}, &buf)
	logger.Info().Msg("hello")
	require.Contains(t, buf.String(), "hello")
	require.False(t, json.Valid(buf.Bytes()))
}
