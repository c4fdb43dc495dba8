package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZaguanLabs/autotrans"
)

func TestExporter_Export(t *testing.T) {
	c := NewInMemoryCache()
	c.Set("k2", "दो")
	c.Set("k1", "एक")

	exporter := NewExporter(c)
	exporter.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	var buf bytes.Buffer
	if err := exporter.Export(&buf, map[string]string{"target": "hi"}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(buf.Bytes(), &snap); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if snap.Version != SnapshotVersion {
		t.Errorf("version = %q", snap.Version)
	}
	if len(snap.Entries) != 2 || snap.Entries[0].Key != "k1" {
		t.Errorf("expected entries sorted by key, got %+v", snap.Entries)
	}
	if snap.Metadata["target"] != "hi" {
		t.Errorf("metadata lost: %v", snap.Metadata)
	}
	if !snap.ExportedAt.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("exported_at = %v", snap.ExportedAt)
	}
}

func TestImporter_Import(t *testing.T) {
	input := `{
		"version": "1",
		"exported_at": "2026-03-01T00:00:00Z",
		"entries": [
			{"key": "k1", "value": "एक"},
			{"key": "", "value": "orphan"},
			{"key": "k2", "value": "दो"}
		]
	}`

	c := NewInMemoryCache()
	result, err := NewImporter(c).Import(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Imported != 2 || result.Failed != 1 {
		t.Errorf("imported=%d failed=%d, want 2 and 1", result.Imported, result.Failed)
	}
	if v, _ := c.Get("k2"); v != "दो" {
		t.Errorf("k2 = %q", v)
	}
}

func TestImporter_RejectsBadSnapshots(t *testing.T) {
	for name, input := range map[string]string{
		"invalid json": "{not json",
		"wrong version": `{"version": "9", "entries": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewImporter(NewInMemoryCache()).Import(strings.NewReader(input))
			var cacheErr *autotrans.CacheError
			if !errors.As(err, &cacheErr) {
				t.Errorf("expected CacheError, got %v", err)
			}
		})
	}
}

func TestExportImport_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	src := NewInMemoryCache()
	src.Set(autotrans.CacheKey("Submit", "en", "kn"), "ಸಲ್ಲಿಸು")
	if err := NewExporter(src).ExportToFile(path, nil); err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}

	dst := NewInMemoryCache()
	result, err := NewImporter(dst).ImportFromFile(path)
	if err != nil {
		t.Fatalf("ImportFromFile failed: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("expected 1 imported entry, got %d", result.Imported)
	}
	if v, ok := dst.Get(autotrans.CacheKey("Submit", "en", "kn")); !ok || v != "ಸಲ್ಲಿಸು" {
		t.Errorf("warm cache lookup = %q, %v", v, ok)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".autotrans-cache-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestImporter_MissingFile(t *testing.T) {
	result, err := NewImporter(NewInMemoryCache()).ImportFromFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing snapshot should not fail: %v", err)
	}
	if result.Imported != 0 {
		t.Errorf("expected nothing imported, got %d", result.Imported)
	}
	if _, err := os.Stat(filepath.Join(t.TempDir(), "nope.json")); !os.IsNotExist(err) {
		t.Error("ImportFromFile must not create the file")
	}
}
