package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a text logger on stdout. An unknown level falls back to
// info.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	log.Out = os.Stdout
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		log.WithField("level", level).Warn("unknown log level, using info")
	}
	log.Level = lvl
	return log
}
