package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"warn level upper case", "WARN", zerolog.WarnLevel},
		{"default info", "", zerolog.InfoLevel},
		{"unknown falls back to info", "loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewWithWriter(&bytes.Buffer{}, tt.level, "json")
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")

	logger.Info().Str("booking_id", "b-1").Msg("booking created")
	logger.Debug().Msg("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "booking created", line["message"])
	assert.Equal(t, "b-1", line["booking_id"])
	assert.Contains(t, line, "time")
}
