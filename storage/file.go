package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const fileName = "derive.json"

// FileStore keeps the record as a pretty printed JSON document.
type FileStore struct {
	path string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, fileName)}
}

func (f *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	var raw struct {
		Hash *string `json:"hash"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, f.path, err)
	}
	if raw.Hash == nil {
		return nil, fmt.Errorf("%w: %s: missing hash", ErrMalformedRecord, f.path)
	}

	return &Record{Hash: *raw.Hash}, nil
}

// Save replaces the record atomically.
func (f *FileStore) Save(r *Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, fileName+".*")
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save record: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Size() (int64, error) {
	fi, err := os.Stat(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return fi.Size(), nil
}

func (f *FileStore) Close() error {
	return nil
}
