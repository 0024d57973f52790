// Package logging builds the process logger and the notifiers that surface
// short user-facing messages.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-client/internal/domain"
)

// Redacted replaces the value of a sensitive log field.
const Redacted = "[REDACTED]"

// DefaultSensitiveFields are field names whose values never reach the log.
var DefaultSensitiveFields = []string{"patient_id", "vcf_content", "authorization"}

// NewLogger creates a logrus logger from cfg writing to out. A nil out
// writes to stderr. Unknown levels fall back to info.
func NewLogger(cfg domain.LoggingConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	logger.AddHook(NewRedactHook(DefaultSensitiveFields...))
	return logger
}

// RedactHook masks the values of sensitive fields before an entry is
// formatted. Field names match case-insensitively by substring.
type RedactHook struct {
	fields []string
}

// NewRedactHook creates a hook masking the named fields.
func NewRedactHook(fields ...string) *RedactHook {
	lowered := make([]string, 0, len(fields))
	for _, f := range fields {
		lowered = append(lowered, strings.ToLower(f))
	}
	return &RedactHook{fields: lowered}
}

// Levels implements logrus.Hook.
func (h *RedactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *RedactHook) Fire(entry *logrus.Entry) error {
	for key := range entry.Data {
		if h.sensitive(key) {
			entry.Data[key] = Redacted
		}
	}
	return nil
}

func (h *RedactHook) sensitive(field string) bool {
	field = strings.ToLower(field)
	for _, s := range h.fields {
		if strings.Contains(field, s) {
			return true
		}
	}
	return false
}
