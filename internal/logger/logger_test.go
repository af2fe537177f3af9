package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestInitWithWriter_DefaultsToInfoConsole(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	assert.Equal(t, zerolog.InfoLevel, Logger.GetLevel())
	assert.Equal(t, zerolog.InfoLevel, zlog.Logger.GetLevel())

	Logger.Debug().Msg("hidden")
	Logger.Info().Msg("hello")
	out := strings.TrimSpace(buf.String())
	assert.False(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, "hello")
	assert.NotContains(t, out, "hidden")
}

func TestInitWithWriter_InvalidLevelFallsBack(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("LOG_FORMAT", "console")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	assert.Equal(t, zerolog.InfoLevel, Logger.GetLevel())
}

func TestInitWithWriter_JSON(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	Logger.Debug().Str("booking_id", "b1").Msg("created")
	out := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"booking_id":"b1"`)
	assert.Contains(t, out, `"service":"event-booking"`)
	assert.Contains(t, out, `"message":"created"`)
}
