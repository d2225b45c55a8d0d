// Package logger configures the process-wide slog logger and a few attribute helpers.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("logger",
	fx.Provide(
		NewLogger,
		NewHTTPLogger,
		NewZapLogger,
	),
)

// NewLogger builds the application logger from LOG_LEVEL and GO_ENV.
// Production uses the JSON handler, everything else the text handler.
func NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}

	var handler slog.Handler
	if os.Getenv("GO_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewZapLogger returns a zap logger at the same level as the slog logger.
// The migration runner logs through zap.
func NewZapLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if os.Getenv("GO_ENV") != "production" {
		cfg = zap.NewDevelopmentConfig()
	}

	var lvl zapcore.Level
	switch parseLevel(os.Getenv("LOG_LEVEL")) {
	case slog.LevelDebug:
		lvl = zapcore.DebugLevel
	case slog.LevelWarn:
		lvl = zapcore.WarnLevel
	case slog.LevelError:
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// Scope tags log lines with the component that produced them.
func Scope(name string) slog.Attr {
	return slog.String("scope", name)
}

// Error wraps an error as a log attribute.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// HTTPLogger writes one access-log line per request.
// When HTTP_LOG_PATH is empty, lines are discarded.
type HTTPLogger struct {
	log *slog.Logger
}

// NewHTTPLogger opens the access log sink.
func NewHTTPLogger(lc fx.Lifecycle) (*HTTPLogger, error) {
	path := os.Getenv("HTTP_LOG_PATH")
	if path == "" {
		return &HTTPLogger{log: slog.New(slog.NewJSONHandler(io.Discard, nil))}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if lc != nil {
		lc.Append(fx.StopHook(f.Close))
	}

	return &HTTPLogger{log: slog.New(slog.NewJSONHandler(f, nil))}, nil
}

// LogRequest records a finished request.
func (l *HTTPLogger) LogRequest(ip, method, uri string, status int, latency time.Duration, userAgent, requestID string) {
	l.log.Info("http",
		slog.String("ip", ip),
		slog.String("method", method),
		slog.String("uri", uri),
		slog.Int("status", status),
		slog.Duration("latency", latency),
		slog.String("user_agent", userAgent),
		slog.String("request_id", requestID),
	)
}
