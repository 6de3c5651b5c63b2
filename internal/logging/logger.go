package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is re-exported so callers don't import logrus directly.
type Fields = logrus.Fields

// New creates a JSON logger tagged with the service name. Level comes from
// LOG_LEVEL and defaults to info.
func New(service string) *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger.WithField("service", service)
}
