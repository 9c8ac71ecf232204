package logutil_test

import (
	"bytes"
	"testing"

	"github.com/andyle182810/ussdadmin/logutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected zerolog.Level
	}{
		{
			name:     "trace level",
			input:    "trace",
			expected: zerolog.TraceLevel,
		},
		{
			name:     "debug level",
			input:    "debug",
			expected: zerolog.DebugLevel,
		},
		{
			name:     "info level",
			input:    "info",
			expected: zerolog.InfoLevel,
		},
		{
			name:     "warn level",
			input:    "warn",
			expected: zerolog.WarnLevel,
		},
		{
			name:     "error level",
			input:    "error",
			expected: zerolog.ErrorLevel,
		},
		{
			name:     "fatal level",
			input:    "fatal",
			expected: zerolog.FatalLevel,
		},
		{
			name:     "panic level",
			input:    "panic",
			expected: zerolog.PanicLevel,
		},
		{
			name:     "upper case and padding",
			input:    " DEBUG ",
			expected: zerolog.DebugLevel,
		},
		{
			name:     "disabled",
			input:    "off",
			expected: zerolog.Disabled,
		},
		{
			name:     "unknown level defaults to info",
			input:    "unknown",
			expected: zerolog.InfoLevel,
		},
		{
			name:     "empty string defaults to info",
			input:    "",
			expected: zerolog.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := logutil.ParseZerologLevel(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

//nolint:paralleltest // mutates the global logger
func TestSetup(t *testing.T) {
	previousLevel := zerolog.GlobalLevel()

	t.Cleanup(func() { zerolog.SetGlobalLevel(previousLevel) })

	var buf bytes.Buffer

	logutil.Setup(&buf, "warn", false)

	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
