package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func configHome() string {
	if v := strings.TrimSpace(os.Getenv("TESS_PROXY_CONFIG_HOME")); v != "" {
		return filepath.Clean(v)
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "tess-proxy")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "tess-proxy")
}

func stateHome() string {
	if v := strings.TrimSpace(os.Getenv("TESS_PROXY_STATE_HOME")); v != "" {
		return filepath.Clean(v)
	}
	return filepath.Join(configHome(), ".state")
}

// requireHomePath resolves target and rejects anything outside home.
func requireHomePath(home, target string) (string, error) {
	if strings.TrimSpace(home) == "" {
		return "", errors.New("empty home path")
	}
	absHome, err := filepath.Abs(home)
	if err != nil {
		return "", err
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absHome, absTarget)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("path escapes configured home")
	}
	return absTarget, nil
}

func mkdirAllUnder(home, target string) (string, error) {
	path, err := requireHomePath(home, target)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func envEnabled(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
