package reviewstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"document-reconciliation-service/internal/models"
	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps review states in a JSON file. The whole file is loaded
// on open and rewritten on every change, so it suits a single reviewer
// working from the command line.
type FileStore struct {
	mu     sync.Mutex
	path   string
	states map[string]models.ReviewState
	log    logger.Logger
}

// NewFileStore opens path, which may not exist yet
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		states: map[string]models.ReviewState{},
		log:    logger.WithComponent("review_store").WithField("backend", BackendFile),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.log.WithField("path", path).Debug("Review state file does not exist yet")
		return s, nil
	case err != nil:
		return nil, errors.StoreError(errors.CodeStoreRead, BackendFile, err).WithContext("path", path)
	}

	var states []models.ReviewState
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &states); err != nil {
			return nil, errors.ParseError(errors.CodeInvalidJSON, path, 0, "", err)
		}
	}
	for _, st := range states {
		st.DocNo = strings.TrimSpace(st.DocNo)
		if st.DocNo != "" {
			s.states[st.DocNo] = st
		}
	}

	s.log.WithFields(logger.Fields{"path": path, "states": len(s.states)}).Debug("Loaded review states")
	return s, nil
}

func (s *FileStore) Get(_ context.Context, docNo string) (models.ReviewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[strings.TrimSpace(docNo)]
	if !ok {
		return models.ReviewState{}, ErrNotFound
	}
	return st, nil
}

func (s *FileStore) GetMany(_ context.Context, docNos []string) (map[string]models.ReviewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.ReviewState)
	for _, d := range uniqueDocNos(docNos) {
		if st, ok := s.states[d]; ok {
			out[d] = st
		}
	}
	return out, nil
}

func (s *FileStore) Put(_ context.Context, state models.ReviewState) error {
	state, err := prepare(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.states[state.DocNo]
	s.states[state.DocNo] = state
	if err := s.flush(); err != nil {
		if existed {
			s.states[state.DocNo] = previous
		} else {
			delete(s.states, state.DocNo)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, docNo string) error {
	docNo = strings.TrimSpace(docNo)

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.states[docNo]
	if !ok {
		return nil
	}
	delete(s.states, docNo)
	if err := s.flush(); err != nil {
		s.states[docNo] = previous
		return err
	}
	return nil
}

func (s *FileStore) List(_ context.Context) ([]models.ReviewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(), nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) sorted() []models.ReviewState {
	out := make([]models.ReviewState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	sortStates(out)
	return out
}

// flush writes to a temporary file and renames it over the target, so a
// failed write never leaves a truncated file behind. Callers hold mu.
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.sorted(), "", "  ")
	if err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "encoding review states", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".review-*.json")
	if err != nil {
		return errors.StoreError(errors.CodeStoreWrite, BackendFile, err).WithContext("path", s.path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return errors.StoreError(errors.CodeStoreWrite, BackendFile, err).WithContext("path", s.path)
	}
	if err := tmp.Close(); err != nil {
		return errors.StoreError(errors.CodeStoreWrite, BackendFile, err).WithContext("path", s.path)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.StoreError(errors.CodeStoreWrite, BackendFile, err).WithContext("path", s.path)
	}
	return nil
}
