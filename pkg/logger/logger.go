// Package logger provides the structured logger shared by every component of
// the layout service. It is a thin layer over logrus so callers can attach
// fields (store_id, module_id, trace_id) without caring about output format.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls level, encoding and destination of log output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePrefix string `yaml:"file_prefix"`
}

// Logger embeds a logrus logger so the full logrus API (WithField,
// WithError, Infof, ...) is available to callers.
type Logger struct {
	*logrus.Logger
	closer io.Closer
}

// New builds a logger from cfg. Invalid settings fall back to sane defaults
// rather than failing; a logger must always be available.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	l := &Logger{Logger: base}
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "stderr":
		base.SetOutput(os.Stderr)
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "layout"
		}
		path := fmt.Sprintf("%s-layout.log", prefix)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			base.SetOutput(os.Stdout)
			base.WithError(err).Warnf("open log file %s; falling back to stdout", path)
		} else {
			base.SetOutput(f)
			l.closer = f
		}
	default:
		base.SetOutput(os.Stdout)
	}
	return l
}

// NewDefault returns an info level text logger tagged with the component name.
func NewDefault(component string) *Logger {
	l := New(LoggingConfig{Level: "info", Format: "text"})
	if component != "" {
		l.AddHook(componentHook{component: component})
	}
	return l
}

// NewWithWriter is used by tests to capture output.
func NewWithWriter(w io.Writer, level string) *Logger {
	l := New(LoggingConfig{Level: level, Format: "json"})
	l.SetOutput(w)
	return l
}

// Close releases the log file when file output is configured.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

type componentHook struct {
	component string
}

func (h componentHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h componentHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["component"]; !ok {
		entry.Data["component"] = h.component
	}
	return nil
}
