package logutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func ParseZerologLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Setup sets the global level and points the global logger at out. Pretty
// output is meant for a terminal; the default is JSON lines.
func Setup(out io.Writer, level string, pretty bool) {
	if out == nil {
		out = os.Stderr
	}

	zerolog.SetGlobalLevel(ParseZerologLevel(level))

	if pretty {
		out = zerolog.ConsoleWriter{ //nolint:exhaustruct
			Out:        out,
			TimeFormat: time.Kitchen,
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
