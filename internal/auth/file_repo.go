package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileRepository stores moderators as a JSON array.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("touch file: %w", err)
	}
	_ = f.Close()
	return &FileRepository{path: path}, nil
}

func (r *FileRepository) LoadAll() ([]Moderator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnlocked()
}

func (r *FileRepository) Upsert(m Moderator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	mods, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	for i, x := range mods {
		if x.ID == m.ID {
			mods[i] = m
			return r.saveUnlocked(mods)
		}
	}
	return r.saveUnlocked(append(mods, m))
}

func (r *FileRepository) Remove(userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	mods, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	out := mods[:0]
	for _, m := range mods {
		if m.ID != userID {
			out = append(out, m)
		}
	}
	return r.saveUnlocked(out)
}

// loadUnlocked treats an empty file as no moderators.
func (r *FileRepository) loadUnlocked() ([]Moderator, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	var mods []Moderator
	if err := json.NewDecoder(f).Decode(&mods); err != nil {
		if err == io.EOF {
			return []Moderator{}, nil
		}
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return mods, nil
}

func (r *FileRepository) saveUnlocked(mods []Moderator) error {
	f, err := os.OpenFile(r.path, os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(mods)
}
