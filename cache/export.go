package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ZaguanLabs/autotrans"
)

// SnapshotVersion is written into every exported snapshot.
const SnapshotVersion = "1"

// Snapshot is the on-disk form of a cache, used to warm a fresh client or
// server cache from a previous run.
type Snapshot struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Entries    []SnapshotEntry   `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SnapshotEntry is one cached translation.
type SnapshotEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Exporter writes snapshots of a cache.
type Exporter struct {
	cache Snapshotter
	now   func() time.Time
}

// NewExporter creates an exporter for cache.
func NewExporter(cache Snapshotter) *Exporter {
	return &Exporter{cache: cache, now: time.Now}
}

// Export writes the cache as indented JSON. Entries are sorted by key so
// that snapshots of equal caches are byte-identical.
func (e *Exporter) Export(w io.Writer, metadata map[string]string) error {
	data := e.cache.Entries()
	entries := make([]SnapshotEntry, 0, len(data))
	for k, v := range data {
		entries = append(entries, SnapshotEntry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err := enc.Encode(Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: e.now().UTC(),
		Entries:    entries,
		Metadata:   metadata,
	})
	if err != nil {
		return &autotrans.CacheError{Message: "encoding snapshot", Cause: err}
	}
	return nil
}

// ExportToFile writes the snapshot to path atomically.
func (e *Exporter) ExportToFile(path string, metadata map[string]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".autotrans-cache-*")
	if err != nil {
		return &autotrans.CacheError{Message: "creating snapshot", Cause: err}
	}
	defer os.Remove(tmp.Name())

	if err := e.Export(tmp, metadata); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return &autotrans.CacheError{Message: "writing snapshot", Cause: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &autotrans.CacheError{Message: "writing snapshot", Cause: err}
	}
	return nil
}

// ImportResult reports what an import did.
type ImportResult struct {
	Version  string
	Metadata map[string]string
	Imported int
	Failed   int
}

// Importer loads snapshots into a cache.
type Importer struct {
	cache autotrans.TranslationCache
}

// NewImporter creates an importer writing into cache.
func NewImporter(cache autotrans.TranslationCache) *Importer {
	return &Importer{cache: cache}
}

// Import reads a snapshot. Entries the cache refuses are counted as failed.
func (i *Importer) Import(r io.Reader) (*ImportResult, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, &autotrans.CacheError{Message: "decoding snapshot", Cause: err}
	}
	if snap.Version != SnapshotVersion {
		return nil, &autotrans.CacheError{Message: fmt.Sprintf("unsupported snapshot version %q", snap.Version)}
	}

	result := &ImportResult{Version: snap.Version, Metadata: snap.Metadata}
	for _, entry := range snap.Entries {
		if entry.Key == "" {
			result.Failed++
			continue
		}
		if err := i.cache.Set(entry.Key, entry.Value); err != nil {
			result.Failed++
			continue
		}
		result.Imported++
	}
	return result, nil
}

// ImportFromFile imports the snapshot at path. A missing file is not an
// error: the result is empty.
func (i *Importer) ImportFromFile(path string) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from configuration
	if os.IsNotExist(err) {
		return &ImportResult{}, nil
	}
	if err != nil {
		return nil, &autotrans.CacheError{Message: "opening snapshot", Cause: err}
	}
	defer f.Close()

	return i.Import(f)
}
