package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to stdout, and to logFile as well when set.
func New(debug bool, logFile string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Warnf("Failed to log to file %s, using stdout only: %v", logFile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, file))
		}
	}
	return log
}
