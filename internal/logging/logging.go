// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup configures logrus.StandardLogger from level ("debug", "info", ...)
// and format ("text" or "json") and returns the root entry.
func Setup(level, format string) *logrus.Entry {
	return configure(logrus.StandardLogger(), os.Stderr, level, format)
}

func configure(l *logrus.Logger, out io.Writer, level, format string) *logrus.Entry {
	l.SetOutput(out)
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	entry := logrus.NewEntry(l).WithField("app", "crazyaces")
	if err != nil && level != "" {
		entry.Warnf("Unknown log level %q, using info", level)
	}
	return entry
}

// Component returns a child entry tagged with the component name.
func Component(root *logrus.Entry, name string) *logrus.Entry {
	return root.WithField("component", name)
}
