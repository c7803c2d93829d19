package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/joelkehle/bizcase/internal/businesscase"
)

// persistedState is the on-disk layout of a FileStore.
type persistedState struct {
	Reports map[string]businesscase.ReportData `json:"reports"`
}

// FileStore keeps every report in one JSON file, rewritten atomically on each
// change. It suits single-user installs where SQLite is unavailable.
type FileStore struct {
	path  string
	mu    sync.Mutex
	state persistedState
}

func NewFileStore(path string) (*FileStore, error) {
	state, err := loadState(path)
	if err != nil {
		return nil, eris.Wrapf(err, "load %s", path)
	}
	return &FileStore{path: path, state: state}, nil
}

func loadState(path string) (persistedState, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return persistedState{Reports: map[string]businesscase.ReportData{}}, nil
		}
		return persistedState{}, err
	}
	var state persistedState
	if err := json.Unmarshal(blob, &state); err != nil {
		return persistedState{}, err
	}
	if state.Reports == nil {
		state.Reports = map[string]businesscase.ReportData{}
	}
	return state, nil
}

func saveState(path string, state persistedState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) Save(_ context.Context, r businesscase.ReportData) error {
	if err := checkID(r.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.state.Reports[r.ID]
	s.state.Reports[r.ID] = r
	if err := saveState(s.path, s.state); err != nil {
		if had {
			s.state.Reports[r.ID] = prev
		} else {
			delete(s.state.Reports, r.ID)
		}
		return eris.Wrapf(err, "save report %s", r.ID)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, id string) (businesscase.ReportData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.Reports[id]
	if !ok {
		return businesscase.ReportData{}, ErrNotFound
	}
	return r, nil
}

func (s *FileStore) List(_ context.Context, limit int) ([]Summary, error) {
	s.mu.Lock()
	list := make([]Summary, 0, len(s.state.Reports))
	for _, r := range s.state.Reports {
		list = append(list, Summarize(r))
	}
	s.mu.Unlock()
	return newestFirst(list, limit), nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.Reports[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.state.Reports, id)
	if err := saveState(s.path, s.state); err != nil {
		s.state.Reports[id] = r
		return eris.Wrapf(err, "delete report %s", id)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
