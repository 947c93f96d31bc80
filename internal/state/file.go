package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"quakewatch/internal/types"
)

// stateDocument is the on-disk JSON shape.
type stateDocument struct {
	SeenIDs   []string `json:"seen_ids"`
	LastCheck string   `json:"last_check,omitempty"` // RFC 3339
}

// FileStore persists MonitorState as a small JSON document. Writes go to a
// temp file in the same directory followed by a rename, so a crash mid-write
// never truncates the previous state.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path. The parent directory
// must exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the state file. A missing file yields an empty state. A file
// that exists but cannot be parsed is an error; the caller decides whether
// to continue with volatile state.
func (f *FileStore) Load(_ context.Context) (*types.MonitorState, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.NewMonitorState(), nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalState, "reading state file", err)
	}

	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalState, "parsing state file", err)
	}

	s := types.NewMonitorState()
	for _, id := range doc.SeenIDs {
		s.MarkSeen(id)
	}
	if doc.LastCheck != "" {
		t, err := time.Parse(time.RFC3339, doc.LastCheck)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalState, "parsing last_check timestamp", err)
		}
		s.LastCheck = &t
	}
	return s, nil
}

// Save writes the state atomically (temp file + rename).
func (f *FileStore) Save(_ context.Context, s *types.MonitorState) error {
	doc := stateDocument{SeenIDs: make([]string, 0, len(s.SeenIDs))}
	for id := range s.SeenIDs {
		doc.SeenIDs = append(doc.SeenIDs, id)
	}
	if s.LastCheck != nil {
		doc.LastCheck = s.LastCheck.UTC().Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalState, "encoding state", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalState, "creating temp state file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return types.NewAppError(types.ErrCodeInternalState, "writing temp state file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return types.NewAppError(types.ErrCodeInternalState, "closing temp state file", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return types.NewAppError(types.ErrCodeInternalState, fmt.Sprintf("replacing state file %s", f.path), err)
	}
	return nil
}
