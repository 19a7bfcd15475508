package config

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a logger from c. With a file set, output goes to a
// rotating log instead of stderr; close the returned closer on exit.
func (c LogConfig) NewLogger() (*logrus.Logger, io.Closer, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, nil, err
	}

	log := logrus.New()
	log.SetLevel(level)
	if c.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if c.File == "" {
		log.SetOutput(os.Stderr)
		return log, nopCloser{}, nil
	}
	rotate := &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
	}
	log.SetOutput(rotate)
	return log, rotate, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
