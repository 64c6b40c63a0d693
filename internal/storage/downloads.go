package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTempFileTTL             = time.Hour
	DefaultTempFileCleanupInterval = 15 * time.Minute
)

// Downloads is the directory attachments are materialized into while a
// handler works on them.
type Downloads struct {
	dir string
}

func NewDownloads(dir string) (*Downloads, error) {
	if dir == "" {
		dir = "downloads"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve download dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	return &Downloads{dir: abs}, nil
}

func (d *Downloads) Dir() string { return d.dir }

// Create opens a new empty file for name. The caller owns the returned guard
// and must Release it; deferring Release right after Create covers every exit path.
func (d *Downloads) Create(name string) (*TempFile, error) {
	base := sanitizeName(name)
	path := filepath.Join(d.dir, uuid.NewString()+"_"+base)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &TempFile{File: f, path: path}, nil
}

func sanitizeName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "file"
	}
	return base
}

// TempFile is a downloaded attachment that is removed on Release.
type TempFile struct {
	*os.File
	path string
	once sync.Once
	err  error
}

func (t *TempFile) Path() string { return t.path }

// Release closes and deletes the file. It is safe to call more than once.
func (t *TempFile) Release() error {
	t.once.Do(func() {
		_ = t.File.Close()
		if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
			t.err = err
			log.Printf("remove temp file %s failed: %v", t.path, err)
		}
	})
	return t.err
}

// StartCleaner removes files older than ttl left behind by a crashed process.
func (d *Downloads) StartCleaner(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = DefaultTempFileCleanupInterval
	}
	if ttl <= 0 {
		ttl = DefaultTempFileTTL
	}
	go d.cleanupLoop(ctx, interval, ttl)
}

func (d *Downloads) cleanupLoop(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := d.Sweep(ttl); err != nil {
				log.Printf("cleanup temp files error: %v", err)
			} else if n > 0 {
				log.Printf("cleanup removed %d stale temp files", n)
			}
		}
	}
}

// Sweep deletes regular files whose modification time is older than ttl.
func (d *Downloads) Sweep(ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(d.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove temp file %s failed: %v", path, err)
			continue
		}
		removed++
	}
	return removed, nil
}
