package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTempFileReleaseIsIdempotent(t *testing.T) {
	d, err := NewDownloads(filepath.Join(t.TempDir(), "dl"))
	if err != nil {
		t.Fatalf("new downloads: %v", err)
	}
	tf, err := d.Create("../../etc/report.pdf")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Dir(tf.Path()) != d.Dir() {
		t.Fatalf("file escaped download dir: %s", tf.Path())
	}
	if !strings.HasSuffix(tf.Path(), "_report.pdf") {
		t.Fatalf("unexpected name %s", tf.Path())
	}
	if _, err := tf.WriteString("data"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := tf.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := tf.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if _, err := os.Stat(tf.Path()); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
}

func TestSweepRemovesOnlyStaleFiles(t *testing.T) {
	d, err := NewDownloads(t.TempDir())
	if err != nil {
		t.Fatalf("new downloads: %v", err)
	}
	stale := filepath.Join(d.Dir(), "stale.bin")
	fresh := filepath.Join(d.Dir(), "fresh.bin")
	for _, p := range []string{stale, fresh} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	n, err := d.Sweep(time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 removal, got %d", n)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale file kept")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh file removed: %v", err)
	}
}
