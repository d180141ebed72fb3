package serve

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alvarolopez/sqaaas-api-server/internal/config"
)

// buildLogger mirrors the teacher's centralized-logging level/encoder
// selection (cmd/monitoring/centralized_logging.go), collapsed to the two
// knobs the orchestration engine's config exposes: level and format. The
// returned AtomicLevel lets a config reload adjust verbosity without
// rebuilding the logger (and without touching the already-constructed
// gateways, which is why log level is the one Config field the watch
// loop in internal/config.Manager is safe to apply live).
func buildLogger(cfg config.Config) (*zap.Logger, zap.AtomicLevel, error) {
	atomicLevel := zap.NewAtomicLevel()
	setLevel(&atomicLevel, cfg.LogLevel)

	var encoder zapcore.Encoder
	if cfg.LogFormat == "console" {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), atomicLevel)
	return zap.New(core, zap.AddCaller()), atomicLevel, nil
}

func setLevel(atomicLevel *zap.AtomicLevel, raw string) {
	level, err := zapcore.ParseLevel(raw)
	if err != nil {
		level = zapcore.InfoLevel
	}
	atomicLevel.SetLevel(level)
}
