// Package logger builds the JSON logrus logger shared by every component and
// stamps entries with the OpenTelemetry trace of the request they belong to.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the logging surface components depend on. *logrus.Logger and
// *logrus.Entry both satisfy it, and WithContext is how TraceHook sees the span.
type Logger interface {
	logrus.FieldLogger
	WithContext(ctx context.Context) *logrus.Entry
}

type Options struct {
	Level  string
	Output io.Writer
}

func New(opts Options) *logrus.Logger {
	log := logrus.New()
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout
	if opts.Output != nil {
		log.Out = opts.Output
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.Level = level
	log.AddHook(TraceHook{})
	return log
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

// TraceHook copies trace and span ids from the entry's context, if any.
type TraceHook struct{}

func (TraceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (TraceHook) Fire(entry *logrus.Entry) error {
	if entry.Context == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(entry.Context)
	if !sc.IsValid() {
		return nil
	}
	entry.Data["trace_id"] = sc.TraceID().String()
	entry.Data["span_id"] = sc.SpanID().String()
	return nil
}
