// Package logging builds zap loggers from a level and an output format.
// There is no package-level global: callers construct a logger once and
// pass it down, the way Config is passed down rather than read from a
// singleton. The sqaaas-server binary does not import this package;
// cmd/sqaaas-server/serve builds its own logger and injects it into every
// gateway and the orchestrator.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is "json" or "console".
	Format string
}

// New builds a *zap.Logger for the given options, defaulting to an
// info-level JSON logger when Options is the zero value.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("logging: invalid level %q: %w", opts.Level, err)
		}
	}

	var encoder zapcore.Encoder
	switch opts.Format {
	case "console":
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	default:
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), level)
	return zap.New(core, zap.AddCaller()), nil
}

// UpstreamFields builds the upstream_status and upstream_reason field
// pair, matching the UpstreamError body shape from the error handling
// design.
func UpstreamFields(status int, reason string) []zap.Field {
	return []zap.Field{
		zap.Int("upstream_status", status),
		zap.String("upstream_reason", reason),
	}
}
