// Package sessionfile persists the authentication session as a single JSON
// file and broadcasts changes to it, both to subscribers in this process and
// to other processes sharing the same file.
package sessionfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ismaelcontreras07/proyecto-programacion/internal/core/domain"
)

const sessionFileMode = 0o600

// Store reads and writes the session record at a fixed path. Any content
// that fails to parse or lacks the required fields is reported as
// domain.ErrNoSession; corrupt or foreign data never surfaces as a session.
type Store struct {
	path string

	mu        sync.Mutex
	cachedRaw []byte
	cached    *domain.Session
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the persisted record.
func (s *Store) Path() string { return s.path }

// Read returns the persisted session. The last decoded value is cached keyed
// by the raw payload, so repeated reads of an unchanged file skip the JSON
// decode.
func (s *Store) Read() (*domain.Session, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, domain.ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && bytes.Equal(raw, s.cachedRaw) {
		return cloneSession(s.cached), nil
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, domain.ErrNoSession
	}
	if !sess.Valid() {
		return nil, domain.ErrNoSession
	}

	s.cachedRaw = raw
	s.cached = cloneSession(&sess)
	return &sess, nil
}

// Write persists the session. The payload lands in a temp file first and is
// renamed into place, so a concurrent reader sees either the old record or
// the new one, never a torn write.
func (s *Store) Write(sess *domain.Session) error {
	if !sess.Valid() {
		return domain.ErrNoSession
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(sessionFileMode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}

	s.mu.Lock()
	s.cachedRaw = raw
	s.cached = cloneSession(sess)
	s.mu.Unlock()
	return nil
}

// Clear removes the persisted record. A missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	s.mu.Lock()
	s.cachedRaw = nil
	s.cached = nil
	s.mu.Unlock()
	return nil
}

// cloneSession copies the session so callers cannot mutate the cache.
func cloneSession(in *domain.Session) *domain.Session {
	if in == nil {
		return nil
	}
	out := *in
	if in.User != nil {
		user := *in.User
		out.User = &user
	}
	return &out
}
