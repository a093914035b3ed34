// Package logger configures the process-wide zerolog logger.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init sets the global logger: JSON to stdout in production, console
// output otherwise, tagged with the service name.
func Init(service, env, level string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if !strings.EqualFold(env, "prod") && !strings.EqualFold(env, "production") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return Configure(out, service, level)
}

// Configure is Init with an explicit writer.
func Configure(out io.Writer, service, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zlog.Logger = zerolog.New(out).With().Timestamp().Str("service", service).Logger()
	zerolog.DefaultContextLogger = &zlog.Logger
	return zlog.Logger
}

// Ctx returns the logger attached to ctx, falling back to the global one.
func Ctx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// With returns a copy of ctx carrying l.
func With(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}
