// Package logger initializes the process-wide logrus logger from config.
package logger

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Conf holds logging configuration.
type Conf struct {
	// Level sets the verbosity (e.g. DEBUG, INFO, WARN, ERROR).
	Level string `yaml:"level"`
	// Dir, when set, appends logs to steward.log in that directory.
	Dir string `yaml:"dir"`
	// StdErr additionally (or, without Dir, exclusively) logs to stderr.
	StdErr bool `yaml:"stderr"`
}

// Init configures the global logrus logger.
func Init(conf Conf) {
	level, err := log.ParseLevel(conf.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(
		&log.TextFormatter{
			FullTimestamp: true,
		},
	)

	var outputs []io.Writer
	if conf.Dir != "" {
		f, err := os.OpenFile(
			filepath.Join(conf.Dir, "steward.log"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644,
		)
		if err != nil {
			log.WithError(err).Error("could not open log file, falling back to stderr")
		} else {
			outputs = append(outputs, f)
		}
	}
	if conf.StdErr || len(outputs) == 0 {
		outputs = append(outputs, os.Stderr)
	}
	log.SetOutput(io.MultiWriter(outputs...))
}
