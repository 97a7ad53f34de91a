package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance
var Log *slog.Logger

type Options struct {
	IsDev     bool
	SentryDSN string

	// File, when set, receives JSON logs in addition to stdout and is rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Init sets the global logger and returns a func that flushes and closes its sinks.
// Development: text on stdout at debug level. Production: JSON at info level.
// Errors also go to Sentry when a DSN is configured.
func Init(opts Options) func() {
	level := slog.LevelInfo
	if opts.IsDev {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if opts.IsDev {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(os.Stdout, handlerOpts))
	}

	var closers []io.Closer
	if opts.File != "" {
		file := newFileWriter(opts)
		closers = append(closers, file)
		handlers = append(handlers, slog.NewJSONHandler(file, handlerOpts))
	}

	sentryEnabled := false
	if opts.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              opts.SentryDSN,
			TracesSampleRate: 1.0,
		})
		if err == nil {
			sentryEnabled = true
			handlers = append(handlers, slogsentry.Option{
				Level: slog.LevelError,
			}.NewSentryHandler())
		}
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = slogmulti.Fanout(handlers...)
	} else {
		handler = handlers[0]
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)

	return func() {
		if sentryEnabled {
			sentry.Flush(2 * time.Second)
		}
		for _, c := range closers {
			_ = c.Close()
		}
	}
}

func newFileWriter(opts Options) *lumberjack.Logger {
	name := opts.File
	if !strings.HasSuffix(name, ".log") {
		name += ".log"
	}
	return &lumberjack.Logger{
		Filename:   name,
		MaxSize:    opts.MaxSizeMB, // megabytes
		MaxBackups: opts.MaxBackups,
		LocalTime:  false, // UTC
		Compress:   true,
	}
}
