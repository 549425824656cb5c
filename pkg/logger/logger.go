// Package logger wraps log/slog with the request-scoped logger used by every
// handler and the output wiring (stdout, rotating file, MongoDB) chosen at boot.
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order placed", "order_id", order.ID)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/shashiranjanraj/panaya/config"
)

var L *slog.Logger

func init() {
	L = slog.New(newHandler(os.Stdout, config.IsProduction()))
	slog.SetDefault(L)
}

func newHandler(w io.Writer, production bool) slog.Handler {
	if production {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// Options selects the sinks Setup wires. Zero values disable a sink.
type Options struct {
	Production bool
	File       string // rotated by lumberjack
	MongoURI   string
	MongoDB    string
}

// OptionsFromConfig reads LOG_FILE, LOG_MONGO_URI and LOG_MONGO_DB.
func OptionsFromConfig() Options {
	return Options{
		Production: config.IsProduction(),
		File:       config.Get("LOG_FILE", ""),
		MongoURI:   config.Get("LOG_MONGO_URI", ""),
		MongoDB:    config.Get("LOG_MONGO_DB", "panaya"),
	}
}

// Setup replaces L with a logger fanning out to every configured sink.
// The returned func flushes and closes the sinks.
func Setup(opts Options) (func(), error) {
	var closers []func()
	var out io.Writer = os.Stdout

	if opts.File != "" {
		rot := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    64, // MB
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rot)
		closers = append(closers, func() { _ = rot.Close() })
	}

	handlers := []slog.Handler{newHandler(out, opts.Production)}

	if opts.MongoURI != "" {
		sink, err := NewMongoHandler(opts.MongoURI, opts.MongoDB, "logs")
		if err != nil {
			for _, c := range closers {
				c()
			}
			return func() {}, err
		}
		handlers = append(handlers, sink)
		closers = append(closers, sink.Close)
	}

	var h slog.Handler = handlers[0]
	if len(handlers) > 1 {
		h = NewMultiHandler(handlers...)
	}
	L = slog.New(h)
	slog.SetDefault(L)

	return func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

type ctxKey struct{}

// WithCtx returns the logger stored by InjectLogger (tagged with request_id),
// or the base logger.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores log into ctx. Called by the request logger middleware.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
