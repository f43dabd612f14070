package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a KV backend persisted as a single JSON document on disk. Every
// mutation rewrites the whole file, matching the whole-value-replace rule
// of the port. A file that cannot be parsed on open is treated as absent:
// the store starts empty and the caller's rehydration path surfaces the
// data loss.
type File struct {
	path string

	mu    sync.RWMutex
	items map[string]string
}

// NewFile opens (or creates on first write) the JSON store at path.
func NewFile(path string) (*File, error) {
	f := &File{path: path, items: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("read storage file: %w", err)
	}

	if err = json.Unmarshal(data, &f.items); err != nil {
		// Corrupt state resets to empty rather than aborting startup.
		f.items = make(map[string]string)
	}

	return f, nil
}

func (f *File) Get(_ context.Context, key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	value, ok := f.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	previous, had := f.items[key]
	f.items[key] = value

	if err := f.persistLocked(); err != nil {
		if had {
			f.items[key] = previous
		} else {
			delete(f.items, key)
		}
		return err
	}
	return nil
}

func (f *File) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	previous, had := f.items[key]
	if !had {
		return nil
	}
	delete(f.items, key)

	if err := f.persistLocked(); err != nil {
		f.items[key] = previous
		return err
	}
	return nil
}

func (f *File) Usage(_ context.Context) (Usage, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var used int64
	for k, v := range f.items {
		used += entrySize(k, v)
	}
	return Usage{UsedBytes: used}, nil
}

func (f *File) persistLocked() error {
	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}

	payload, err := json.MarshalIndent(f.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode storage state: %w", err)
	}

	if err = os.WriteFile(f.path, payload, 0o600); err != nil {
		return fmt.Errorf("write storage file: %w", err)
	}
	return nil
}
