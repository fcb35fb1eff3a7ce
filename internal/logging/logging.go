package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global console logger on stderr
func Init(debug bool) {
	SetOutput(os.Stderr, debug)
}

// SetOutput redirects the global logger to w
func SetOutput(w io.Writer, debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// For returns a logger tagged with the component name
func For(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
