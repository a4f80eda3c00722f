// internal/infra/logger/logger.go
package logger

import (
	"io"
	"os"

	"payment_batch_service/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. Components take entries from it via Component.
var Log = logrus.New()

// Init applies the configured level and format to Log.
func Init(cfg *config.AppConfig) {
	Configure(Log, cfg, os.Stdout)
	Log.WithFields(logrus.Fields{
		"level":       Log.GetLevel().String(),
		"environment": cfg.Environment,
	}).Debug("Logger configured")
}

// Configure sets level, formatter and output on l. Deployed environments get
// JSON lines; anything else gets human readable text.
func Configure(l *logrus.Logger, cfg *config.AppConfig, out io.Writer) {
	l.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.Warnf("Invalid log level '%s', defaulting to 'info'", cfg.LogLevel)
	} else {
		l.SetLevel(level)
	}

	switch cfg.Environment {
	case "production", "staging":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// Discard returns an entry that drops everything. Used by tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
