package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// blob is the on-disk layout of FileStore: one JSON document holding every
// identity.
type blob struct {
	Version int               `json:"version"`
	Records map[string]Record `json:"records"`
}

// FileStore keeps all records in a single JSON file.
// This is suitable for single-instance deployments.
type FileStore struct {
	mu       sync.Mutex
	filePath string
}

// NewFileStore creates a file-backed store. The file is created on first write.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}
	return &FileStore{filePath: filePath}, nil
}

// load reads the blob. A missing file is an empty ledger; an unreadable or
// unparsable one is logged and also treated as empty.
func (s *FileStore) load() (map[string]Record, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Record), nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		slog.Warn("ledger file is corrupt, starting empty", "path", s.filePath, "error", err)
		return make(map[string]Record), nil
	}
	if b.Version != SchemaVersion {
		slog.Warn("ledger file has unsupported schema version, starting empty",
			"path", s.filePath, "version", b.Version)
		return make(map[string]Record), nil
	}
	if b.Records == nil {
		b.Records = make(map[string]Record)
	}
	return b.Records, nil
}

func (s *FileStore) save(records map[string]Record) error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	data, err := json.MarshalIndent(blob{Version: SchemaVersion, Records: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	// Write atomically using temp file + rename
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename ledger file: %w", err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, identity string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := records[identity]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) Put(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[rec.Identity] = *rec
	return s.save(records)
}

func (s *FileStore) Update(_ context.Context, identity string, fn UpdateFunc) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	var current *Record
	if rec, ok := records[identity]; ok {
		current = &rec
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}

	records[identity] = *next
	if err := s.save(records); err != nil {
		return nil, err
	}
	out := *next
	return &out, nil
}

func (s *FileStore) List(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
