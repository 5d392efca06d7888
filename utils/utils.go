package utils

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// NewLog returns a logger writing to dir/name.log, one file per component.
func NewLog(dir, name string) (*logrus.Entry, error) {
	fileName := filepath.Join(dir, name+".log")
	file, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "open log %s", fileName)
	}
	logger := logrus.New()
	logger.SetOutput(file)
	logger.SetLevel(logrus.GetLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000000",
		DisableColors:   true,
	})
	return logger.WithField("type", name), nil
}

// SetLevel sets the level of the standard logger and of every logger
// created by NewLog afterwards. Unknown levels fall back to info.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
