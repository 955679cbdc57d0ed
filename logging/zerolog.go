package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on top of zerolog.
// Debug/Info/Warn/Error go to the configured writer; Fatal logs and exits.
type ZerologLogger struct {
	logger zerolog.Logger
	level  Level
}

// NewDefaultLogger creates a console logger writing to stderr at info level
func NewDefaultLogger() *ZerologLogger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return NewZerologLogger(writer, InfoLevel)
}

// NewJSONLogger creates a logger that emits one JSON object per line to w
func NewJSONLogger(w io.Writer, level Level) *ZerologLogger {
	return NewZerologLogger(w, level)
}

// NewZerologLogger creates a logger writing to w with the given minimum level
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	logger := zerolog.New(w).
		Level(toZerologLevel(level)).
		With().
		Timestamp().
		Logger()

	return &ZerologLogger{logger: logger, level: level}
}

func toZerologLevel(level Level) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func mergeFields(fields []Fields) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	merged := make(map[string]any)
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return merged
}

func (z *ZerologLogger) emit(event *zerolog.Event, msg string, fields []Fields) {
	if merged := mergeFields(fields); merged != nil {
		event = event.Fields(merged)
	}
	event.Msg(msg)
}

func (z *ZerologLogger) Debug(msg string, fields ...Fields) {
	z.emit(z.logger.Debug(), msg, fields)
}

func (z *ZerologLogger) Info(msg string, fields ...Fields) {
	z.emit(z.logger.Info(), msg, fields)
}

func (z *ZerologLogger) Warn(msg string, fields ...Fields) {
	z.emit(z.logger.Warn(), msg, fields)
}

func (z *ZerologLogger) Error(err error, msg string, fields ...Fields) {
	z.emit(z.logger.Error().Err(err), msg, fields)
}

// Fatal logs at fatal level; zerolog terminates the process after writing
func (z *ZerologLogger) Fatal(err error, msg string, fields ...Fields) {
	z.emit(z.logger.Fatal().Err(err), msg, fields)
}

func (z *ZerologLogger) WithFields(fields Fields) Logger {
	return &ZerologLogger{
		logger: z.logger.With().Fields(map[string]any(fields)).Logger(),
		level:  z.level,
	}
}

func (z *ZerologLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return z.WithFields(fields)
	}
	return z
}

func (z *ZerologLogger) SetLevel(level Level) {
	z.level = level
	z.logger = z.logger.Level(toZerologLevel(level))
}
