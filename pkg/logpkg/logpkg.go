// Package logpkg provides logger construction for the server and its sessions.
package logpkg

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/go-maxim/linebank/pkg/configpkg"
)

// CreateLogger returns the application logger configured for the given environment.
func CreateLogger(config configpkg.Config) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var (
		output   io.Writer = os.Stderr
		logLevel           = zerolog.InfoLevel // default to INFO
	)

	log := zerolog.New(output).
		Level(logLevel).
		With().
		Timestamp().
		Logger()

	if config.Environment == "development" {
		log = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(zerolog.TraceLevel).
			With().
			Caller().
			Logger()
	}

	return log
}

// WithSession decorates the logger with per-connection identifiers.
func WithSession(logger zerolog.Logger, sessionID, remoteAddr string) zerolog.Logger {
	return logger.With().
		Str("session_id", sessionID).
		Str("remote_addr", remoteAddr).
		Logger()
}
