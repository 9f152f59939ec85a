package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/armapper/arm/utils"
)

type slogLogger struct {
	Logger        *slog.Logger
	LogLevel      LogLevel
	SlowThreshold time.Duration
	Parameterized bool
}

// NewSlogLogger creates a new logger on top of log/slog
func NewSlogLogger(logger *slog.Logger, config Config) Interface {
	return &slogLogger{
		Logger:        logger,
		LogLevel:      config.LogLevel,
		SlowThreshold: config.SlowThreshold,
		Parameterized: config.ParameterizedQueries,
	}
}

func (l *slogLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *slogLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.log(ctx, slog.LevelInfo, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.log(ctx, slog.LevelWarn, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.log(ctx, slog.LevelError, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	t := traceStatement(l.LogLevel, l.SlowThreshold, begin, fc, err)
	if t.outcome == traceSkipped {
		return
	}

	attrs := []slog.Attr{slog.String("duration", t.duration()), slog.String("sql", t.sql)}
	if t.rowsKnown() {
		attrs = append(attrs, slog.Int64("rows", t.rows))
	}

	level := slog.LevelInfo
	switch t.outcome {
	case traceFailed:
		level = slog.LevelError
		attrs = append(attrs, slog.String("error", t.err.Error()))
	case traceSlow:
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("slow_threshold", l.SlowThreshold.String()))
	}
	l.log(ctx, level, t.message(), slog.Attr{Key: "trace", Value: slog.GroupValue(attrs...)})
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !l.Logger.Enabled(ctx, level) {
		return
	}

	r := slog.NewRecord(time.Now(), level, msg, utils.CallerFrame().PC)
	r.Add(args...)
	_ = l.Logger.Handler().Handle(ctx, r)
}

// ParamsFilter filter params
func (l *slogLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	return filterParams(l.Parameterized, sql, params)
}
