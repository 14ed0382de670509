package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrOutsideRoot is returned for names that would escape the storage root.
var ErrOutsideRoot = errors.New("path escapes storage root")

// Disk keeps generated export files under a root directory.
type Disk struct {
	root string
}

// NewDisk creates root when missing.
func NewDisk(root string) (*Disk, error) {
	if root == "" {
		root = "./exports"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Disk{root: abs}, nil
}

// Root returns the absolute storage directory.
func (d *Disk) Root() string { return d.root }

// Save writes data to name (relative to root) and returns the cleaned relative name.
func (d *Disk) Save(name string, data []byte) (string, error) {
	path, rel, err := d.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare %s: %w", rel, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit %s: %w", rel, err)
	}
	return rel, nil
}

// Open opens a stored file for reading.
func (d *Disk) Open(name string) (*os.File, error) {
	path, rel, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rel, err)
	}
	return f, nil
}

// Delete removes a stored file; missing files are ignored.
func (d *Disk) Delete(name string) error {
	path, rel, err := d.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", rel, err)
	}
	return nil
}

// Prune deletes files last modified before now-ttl and returns their relative names.
func (d *Disk) Prune(ttl time.Duration, now time.Time) ([]string, error) {
	cutoff := now.Add(-ttl)
	var removed []string
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		rel, _ := filepath.Rel(d.root, path)
		removed = append(removed, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("prune exports: %w", err)
	}
	return removed, nil
}

func (d *Disk) resolve(name string) (string, string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(name)))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %q", ErrOutsideRoot, name)
	}
	return filepath.Join(d.root, clean), filepath.ToSlash(clean), nil
}
