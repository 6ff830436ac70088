package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// plainLogFormatter renders entries as "[ts] [LEVEL] <component> message k=v".
type plainLogFormatter struct{}

func (plainLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.UTC().Format(time.RFC3339)
	level := strings.ToUpper(entry.Level.String())

	parts := make([]string, 0, 5)
	parts = append(parts, fmt.Sprintf("[%s]", timestamp), fmt.Sprintf("[%s]", level))
	if component, ok := entry.Data["component"].(string); ok && component != "" {
		parts = append(parts, fmt.Sprintf("<%s>", component))
	}
	parts = append(parts, entry.Message)
	if fields := formatLogFields(entry.Data); fields != "" {
		parts = append(parts, fields)
	}
	return []byte(strings.Join(parts, " ") + "\n"), nil
}

func formatLogFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "component" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

// logComponent returns an entry tagged with the originating component name.
func logComponent(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// setupLogging applies the configured level and optional file output. The
// returned closer is non-nil only when a log file was opened.
func setupLogging(cfg *LogConfig) (io.Closer, error) {
	logrus.SetFormatter(plainLogFormatter{})

	level := logrus.InfoLevel
	if cfg != nil && cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if envEnabled("TESS_PROXY_DEBUG") {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	if cfg == nil || cfg.File == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logrus.SetOutput(f)
	return f, nil
}
