package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Store persists the memory document and the processed-notification set.
// Loading a document that was never saved returns its default value.
type Store interface {
	LoadMemory(ctx context.Context) (*Memory, error)
	SaveMemory(ctx context.Context, m *Memory) error
	LoadProcessed(ctx context.Context) (ProcessedSet, error)
	SaveProcessed(ctx context.Context, s ProcessedSet) error
	Close() error
}

// FileStore keeps both documents as pretty-printed JSON files, each
// overwritten wholesale on save.
type FileStore struct {
	memoryPath    string
	processedPath string
	log           *slog.Logger
}

// NewFileStore creates a FileStore. Parent directories are created on the
// first save.
func NewFileStore(memoryPath, processedPath string, log *slog.Logger) *FileStore {
	if log == nil {
		log = slog.Default()
	}
	return &FileStore{
		memoryPath:    memoryPath,
		processedPath: processedPath,
		log:           log.With("component", "file_store"),
	}
}

// LoadMemory reads the memory file, returning the default memory when the
// file does not exist.
func (s *FileStore) LoadMemory(ctx context.Context) (*Memory, error) {
	m := NewMemory()
	exists, err := readJSON(s.memoryPath, m)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}
	if !exists {
		s.log.InfoContext(ctx, "No memory file found, starting fresh", "path", s.memoryPath)
		return NewMemory(), nil
	}
	m.Normalize()
	s.log.DebugContext(ctx, "Loaded memory", "path", s.memoryPath, "posts", len(m.Posts), "next_id", m.NextID)
	return m, nil
}

// SaveMemory overwrites the memory file.
func (s *FileStore) SaveMemory(_ context.Context, m *Memory) error {
	if err := writeJSON(s.memoryPath, m); err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// LoadProcessed reads the processed-notification file, returning an empty
// set when the file does not exist.
func (s *FileStore) LoadProcessed(ctx context.Context) (ProcessedSet, error) {
	set := ProcessedSet{}
	exists, err := readJSON(s.processedPath, &set)
	if err != nil {
		return nil, fmt.Errorf("failed to load processed set: %w", err)
	}
	if !exists {
		s.log.InfoContext(ctx, "No processed notifications file found, starting fresh", "path", s.processedPath)
		return ProcessedSet{}, nil
	}
	return set, nil
}

// SaveProcessed overwrites the processed-notification file.
func (s *FileStore) SaveProcessed(_ context.Context, set ProcessedSet) error {
	if err := writeJSON(s.processedPath, set); err != nil {
		return fmt.Errorf("failed to save processed set: %w", err)
	}
	return nil
}

// Close is a no-op; FileStore holds no open handles.
func (s *FileStore) Close() error {
	return nil
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data, 0o644)
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it into place, so readers never observe a partial document.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
