package operations

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestCompressOldTranscripts(t *testing.T) {
	logDir := t.TempDir()
	old := filepath.Join(logDir, "2026-08-26.log")
	current := filepath.Join(logDir, "2026-08-27.log")
	content := []byte("yesterday's transcript\n")

	os.WriteFile(old, content, 0o644)
	os.WriteFile(current, []byte("today's transcript\n"), 0o644)

	if err := CompressOldTranscripts(logDir, current); err != nil {
		t.Fatalf("CompressOldTranscripts returned error: %v", err)
	}

	if _, err := os.Stat(old); err == nil {
		t.Errorf("old transcript should be replaced by its .zst")
	}
	if _, err := os.Stat(current); err != nil {
		t.Errorf("current transcript must be left alone: %v", err)
	}

	compressed, err := os.ReadFile(old + ".zst")
	if err != nil {
		t.Fatalf("compressed transcript missing: %v", err)
	}
	r, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(r.IOReadCloser()); err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(out.Bytes(), content) {
		t.Errorf("round trip mismatch: %q", out.String())
	}
}

func TestCompressOldTranscripts_SkipsNonLogs(t *testing.T) {
	logDir := t.TempDir()
	other := filepath.Join(logDir, "notes.txt")
	os.WriteFile(other, []byte("keep me"), 0o644)

	if err := CompressOldTranscripts(logDir, filepath.Join(logDir, "2026-08-27.log")); err != nil {
		t.Fatalf("CompressOldTranscripts returned error: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("non-log file was touched: %v", err)
	}
}
