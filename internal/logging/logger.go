package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

// LogLevelEnvVar selects the log level when no level is passed to
// Initialize: "debug", "info", "warn" or "error". Unset means silent.
const LogLevelEnvVar = "ICSNEO_LOG_LEVEL"

// LogFormatEnvVar switches the encoder to "json" for log collectors.
const LogFormatEnvVar = "ICSNEO_LOG_FORMAT"

// maxDump bounds the bytes rendered by the dump helpers.
const maxDump = 256

// Initialize replaces the global logger. An empty level falls back to
// ICSNEO_LOG_LEVEL; with neither set, logging stays silent.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" {
		logger.Store(zap.NewNop())
		return nil
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	if os.Getenv(LogFormatEnvVar) == "json" {
		config.Encoding = "json"
		config.EncoderConfig = zap.NewProductionEncoderConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Store(l)
	return nil
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	nop := zap.NewNop()
	logger.CompareAndSwap(nil, nop)
	return logger.Load()
}

// Named returns a child of the global logger for one component.
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

// Info logs at info level on the global logger.
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs at debug level on the global logger.
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// LogTransport logs a transport lifecycle event
func LogTransport(name string, event string) {
	Info("Transport event",
		zap.String("transport", name),
		zap.String("event", event),
	)
}

// LogPacket logs a framed packet
func LogPacket(label string, network string, payload []byte) {
	Debug(label,
		zap.String("network", network),
		zap.Int("length", len(payload)),
		zap.String("hex", hexDump(payload)),
	)
}

// LogRawBytes logs raw bytes (useful for debugging framing issues)
func LogRawBytes(label string, data []byte) {
	Debug(label,
		zap.Int("length", len(data)),
		zap.String("hex", hexDump(data)),
		zap.String("ascii", asciiDump(data)),
	)
}

// HexField is a zap field holding a bounded hex dump.
func HexField(key string, data []byte) zap.Field {
	return zap.String(key, hexDump(data))
}

func clamp(data []byte) ([]byte, string) {
	if len(data) > maxDump {
		return data[:maxDump], "..."
	}
	return data, ""
}

func hexDump(data []byte) string {
	data, more := clamp(data)
	return hex.EncodeToString(data) + more
}

func asciiDump(data []byte) string {
	data, more := clamp(data)
	out := make([]byte, len(data))
	for i, b := range data {
		if b < ' ' || b > '~' {
			b = '.'
		}
		out[i] = b
	}
	return string(out) + more
}

// Sync flushes any buffered log entries
func Sync() {
	if l := logger.Load(); l != nil {
		_ = l.Sync()
	}
}
