package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Severity levels for security events.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// Logger interface untuk structured logging
type Logger interface {
	Info(ctx context.Context, message string, fields map[string]interface{})
	Error(ctx context.Context, message string, err error, fields map[string]interface{})
	Warn(ctx context.Context, message string, fields map[string]interface{})
	Debug(ctx context.Context, message string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
}

type (
	correlationIDKey struct{}
	clientIPKey      struct{}
)

// WithCorrelationID menyimpan correlation ID ke dalam context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// WithClientIP menyimpan IP client ke dalam context
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIP(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// LoggerConfig configuration untuk logger
type LoggerConfig struct {
	Level       string
	Format      string
	ServiceName string
	Output      io.Writer
	// Caller adds file:line of the call site to every entry.
	Caller bool
}

// structuredLogger implementasi Logger dengan logrus
type structuredLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
	caller bool
}

// NewStructuredLogger membuat instance baru dari structured logger
func NewStructuredLogger(config LoggerConfig) Logger {
	logrusLogger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrusLogger.SetLevel(level)

	if config.Format == "text" {
		logrusLogger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		})
	} else {
		logrusLogger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	logrusLogger.SetOutput(out)

	l := NewWithLogrus(logrusLogger, config.ServiceName).(*structuredLogger)
	l.caller = config.Caller
	return l
}

// NewWithLogrus wraps an existing logrus logger, e.g. one from
// logrus/hooks/test in unit tests.
func NewWithLogrus(l *logrus.Logger, serviceName string) Logger {
	fields := logrus.Fields{}
	if serviceName != "" {
		fields["service"] = serviceName
	}
	return &structuredLogger{
		logger: l,
		fields: fields,
	}
}

// NewNopLogger discards everything.
func NewNopLogger() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewWithLogrus(l, "")
}

func (l *structuredLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Info(message)
}

func (l *structuredLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	l.entry(ctx, err, fields).Error(message)
}

func (l *structuredLogger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Warn(message)
}

func (l *structuredLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Debug(message)
}

// WithFields membuat logger baru dengan additional fields
func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	newFields := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &structuredLogger{
		logger: l.logger,
		fields: newFields,
		caller: l.caller,
	}
}

func (l *structuredLogger) entry(ctx context.Context, err error, fields map[string]interface{}) *logrus.Entry {
	all := make(logrus.Fields, len(l.fields)+len(fields)+3)
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}

	if cid := CorrelationID(ctx); cid != "" {
		all["correlation_id"] = cid
	}
	if err != nil {
		all[logrus.ErrorKey] = err.Error()
	}
	if l.caller {
		if _, file, line, ok := runtime.Caller(2); ok {
			all["caller"] = fmt.Sprintf("%s:%d", file, line)
		}
	}

	return l.logger.WithFields(all)
}

// Helper functions untuk common logging scenarios

// LogAuthEvent untuk authentication events
func LogAuthEvent(ctx context.Context, logger Logger, event string, username, ip string, success bool, fields map[string]interface{}) {
	f := copyFields(fields)
	f["event_type"] = "auth"
	f["auth_event"] = event
	f["username"] = username
	f["ip"] = ip
	f["success"] = success

	if success {
		logger.Info(ctx, fmt.Sprintf("Auth event: %s", event), f)
		return
	}
	logger.Warn(ctx, fmt.Sprintf("Auth event failed: %s", event), f)
}

// LogSecurityEvent untuk security events
func LogSecurityEvent(ctx context.Context, logger Logger, event string, severity string, fields map[string]interface{}) {
	f := copyFields(fields)
	f["event_type"] = "security"
	f["security_event"] = event
	f["severity"] = severity

	message := fmt.Sprintf("Security event: %s", event)

	switch severity {
	case SeverityHigh:
		logger.Error(ctx, message, nil, f)
	case SeverityMedium:
		logger.Warn(ctx, message, f)
	default:
		logger.Info(ctx, message, f)
	}
}

// LogPerformance untuk performance metrics
func LogPerformance(ctx context.Context, logger Logger, operation string, duration time.Duration, fields map[string]interface{}) {
	f := copyFields(fields)
	f["event_type"] = "performance"
	f["operation"] = operation
	f["duration_ms"] = duration.Milliseconds()

	logger.Info(ctx, fmt.Sprintf("Performance: %s took %s", operation, duration), f)
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	f := make(map[string]interface{}, len(fields)+5)
	for k, v := range fields {
		f[k] = v
	}
	return f
}
