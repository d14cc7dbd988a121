package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Repository persists ledger entries between runs.
type Repository interface {
	LoadAll() ([]Entry, error)
	SaveAll(entries []Entry) error
}

// FileRepository stores the ledger as one JSON array.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	return &FileRepository{path: path}, nil
}

// LoadAll returns the stored entries. A missing or empty file is nothing to
// load, not an error.
func (r *FileRepository) LoadAll() ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	var entries []Entry
	dec := json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		if err == io.EOF {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return entries, nil
}

// SaveAll replaces the file contents. It writes to a temp file first so a
// crash mid-write never truncates the previous ledger.
func (r *FileRepository) SaveAll(entries []Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entries == nil {
		entries = []Entry{}
	}
	tmp := r.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open write: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
