package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. It is usable before Init with logrus defaults.
var Logger = logrus.New()

// Init configures the logger for the given environment. Production gets JSON lines,
// everything else gets human readable text with full timestamps.
func Init(env string) {
	Logger.SetOutput(os.Stdout)

	if env == "production" {
		Logger.SetFormatter(&logrus.JSONFormatter{})
		Logger.SetLevel(logrus.InfoLevel)
		return
	}

	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	Logger.SetLevel(logrus.DebugLevel)
}

// WithUser returns an entry tagged with the portal user id.
func WithUser(userID string) *logrus.Entry {
	return Logger.WithField("user_id", userID)
}
