package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// catalogSnapshotWriter persists the most recent upstream tool catalog so
// operators can inspect what the proxy relayed without replaying a session.
// Every write is best effort; relaying never fails because a snapshot did.
type catalogSnapshotWriter struct {
	home    string
	path    string
	history int
	log     *logrus.Entry
}

func newCatalogSnapshotWriter(cfg *ManifestConfig) *catalogSnapshotWriter {
	if cfg == nil || cfg.CatalogSnapshotPath == "" {
		return nil
	}
	home := stateHome()
	path := cfg.CatalogSnapshotPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(home, path)
	}
	return &catalogSnapshotWriter{
		home:    home,
		path:    path,
		history: cfg.CatalogSnapshotHistory,
		log:     logComponent("snapshots"),
	}
}

// record writes one snapshot of a catalog body that was relayed with a 200.
func (w *catalogSnapshotWriter) record(sessionID, catalogBody string) {
	if w == nil {
		return
	}
	var catalog toolCatalog
	if err := json.Unmarshal([]byte(catalogBody), &catalog); err != nil {
		w.log.Warnf("skipping snapshot of unparseable catalog: %v", err)
		return
	}
	payload := map[string]any{
		"generatedAt":   time.Now().UTC().Format(time.RFC3339Nano),
		"source":        "upstream",
		"sessionDigest": sessionDigest(sessionID),
		"toolCount":     len(catalog.Tools),
		"tools":         catalog.Tools,
	}
	if _, err := writeSnapshotWithHistory(w.home, w.path, payload, w.history, time.Time{}); err != nil {
		w.log.Warnf("snapshot write failed: %v", err)
		return
	}
	w.log.Debugf("snapshot recorded with %d tools", len(catalog.Tools))
}

// sessionDigest identifies a session in snapshots without storing the raw id.
func sessionDigest(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])[:12]
}

func writeSnapshotWithHistory(home, basePath string, payload any, historyCount int, stamp time.Time) (string, error) {
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}
	resolvedBase, err := mkdirAllUnder(home, basePath)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	data = append(data, '\n')
	if err := writeAtomic(resolvedBase, data); err != nil {
		return "", err
	}
	if historyCount > 0 {
		ts := stamp.UTC().Format("20060102-150405")
		stamped := fmt.Sprintf("%s.%s.json", strings.TrimSuffix(resolvedBase, ".json"), ts)
		if stampedPath, err := mkdirAllUnder(home, stamped); err == nil {
			_ = writeAtomic(stampedPath, data)
		}
		_ = pruneHistory(resolvedBase, historyCount)
	}
	return resolvedBase, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func pruneHistory(basePath string, keep int) error {
	if keep < 0 {
		return nil
	}
	dir := filepath.Dir(basePath)
	prefix := strings.TrimSuffix(filepath.Base(basePath), ".json") + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	history := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		full := filepath.Join(dir, name)
		if full == basePath {
			continue
		}
		history = append(history, full)
	}
	if len(history) <= keep {
		return nil
	}
	sort.Strings(history)
	for i := 0; i < len(history)-keep; i++ {
		_ = os.Remove(history[i])
	}
	return nil
}
