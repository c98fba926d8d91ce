// Package logging wraps go.uber.org/zap for the solver facade and the
// cmd/dpllt driver: solver.New accepts an injected *zap.Logger (made
// nil-safe via Safe) instead of fmt.Println debug scaffolding; the kernel,
// theory, aggregate, and definition packages take no logger. Grounded on
// theRebelliousNerd-codenerd's zap-everywhere convention (its cmd/nerd
// builds a zap.ProductionConfig gated by a verbose flag, mirrored here by
// NewFromVerbosity's 0..10 scale).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// nop is the package-level no-op default so callers can pass a nil
// *zap.Logger anywhere in this module without a nil check at every call
// site.
var nop = zap.NewNop()

// Safe returns l if non-nil, otherwise the shared no-op logger.
func Safe(l *zap.Logger) *zap.Logger {
	if l == nil {
		return nop
	}
	return l
}

// NewFromVerbosity builds a development-style zap.Logger whose level is
// derived from the solver's verbosity option (spec §6: "verbosity: int —
// log level 0..10"). 0 maps to zap's Warn level (quiet by default); 1-4 to
// Info; 5 and above to Debug, so the most expensive trace lines (full
// trail/model dumps) are gated behind the upper half of the scale.
func NewFromVerbosity(verbosity int) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	switch {
	case verbosity <= 0:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case verbosity < 5:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// Fields is a convenience alias so calling packages don't need their own
// zap import purely to build field slices.
type Fields = []zap.Field

// Int, Str, and Bool re-export the zap field constructors calling
// packages reach for most often, avoiding an extra zap import for the
// common case while leaving zap.Any and friends directly accessible
// through the *zap.Logger itself.
func Int(key string, val int) zap.Field    { return zap.Int(key, val) }
func Str(key string, val string) zap.Field { return zap.String(key, val) }
func Bool(key string, val bool) zap.Field  { return zap.Bool(key, val) }
