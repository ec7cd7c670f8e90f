package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

type diskStorage struct {
	BaseDir string
}

// NewDiskStorage stores every key as a file below baseDir.
func NewDiskStorage(baseDir string) *diskStorage {
	return &diskStorage{BaseDir: baseDir}
}

func (ds *diskStorage) path(key string) string {
	return filepath.Join(ds.BaseDir, filepath.FromSlash(key))
}

func (ds *diskStorage) GetKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var matchedFiles []string

	err := filepath.WalkDir(ds.BaseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == ds.BaseDir {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(ds.BaseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			matchedFiles = append(matchedFiles, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "can not list %s", ds.BaseDir)
	}
	sort.Strings(matchedFiles)

	return matchedFiles, nil
}

type diskStreamWriter struct {
	file *os.File
}

func (m *diskStreamWriter) Write(data []byte) (int, error) {
	return m.file.Write(data)
}

func (m *diskStreamWriter) Close() error {
	return m.file.Close()
}

func (ds *diskStorage) BeginStream(ctx context.Context, key string) (StreamWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filePath := ds.path(key)
	if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "can not create stream directory")
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "can not open stream")
	}

	return &diskStreamWriter{file: file}, nil
}

// Write writes data to a file for a given key
func (ds *diskStorage) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath := ds.path(key)
	if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
		return errors.Wrap(err, "can not create directory")
	}

	return os.WriteFile(filePath, data, 0644)
}

// Read reads data from a file for a given key
func (ds *diskStorage) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(ds.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(ErrDoesNotExist, "key %s", key)
	}
	if err != nil {
		return nil, errors.Wrap(err, "can not read file")
	}
	return data, nil
}

// Delete deletes a file for a given key
func (ds *diskStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(ds.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // Ignore file not found errors
		}
		return err
	}
	return nil
}
