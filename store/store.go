/*
   Copyright layoutdist authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package store persists the client's trusted metadata documents, one file
// per role under a fixed local directory. Commits are atomic: a crash mid
// commit leaves the previous document readable.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tuf-in-toto/layoutdist/metadata"
)

// ErrNotFound reports that no document has been committed for a role.
var ErrNotFound = errors.New("no trusted metadata for role")

// ErrAlreadyBootstrapped reports an attempt to seed a store that already
// holds a root document.
var ErrAlreadyBootstrapped = errors.New("trust store already holds a root")

// CorruptStoreError reports that a persisted document no longer parses.
// This indicates local tampering or a bug; callers must not silently
// re-bootstrap over it.
type CorruptStoreError struct {
	Role string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("trusted %s metadata is corrupt: %v", e.Role, e.Err)
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}

type Store struct {
	dir string
}

// New opens (creating if necessary) a trusted metadata store rooted at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Load returns the trusted document for role, ErrNotFound if the role has
// never been committed, or CorruptStoreError if the persisted bytes fail to
// parse.
func (s *Store) Load(role string) (*metadata.Document, error) {
	path, err := s.path(role)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w %q", ErrNotFound, role)
		}
		return nil, fmt.Errorf("failed to read trusted %s metadata: %w", role, err)
	}
	doc, err := metadata.Parse(data)
	if err != nil {
		return nil, &CorruptStoreError{Role: role, Err: err}
	}
	return doc, nil
}

// Commit atomically replaces the trusted document for role. The document is
// written to a temporary file in the store directory and renamed into place,
// so a partially written document is never observable.
func (s *Store) Commit(role string, doc *metadata.Document) error {
	path, err := s.path(role)
	if err != nil {
		return err
	}
	data, err := doc.Bytes()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".%s-*.tmp", role))
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s metadata: %w", role, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s metadata: %w", role, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s metadata: %w", role, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to commit %s metadata: %w", role, err)
	}
	return nil
}

// BootstrapRoot seeds the store with an initial root document. It is only
// permitted while no root exists; re-pinning decisions belong to the caller.
func (s *Store) BootstrapRoot(doc *metadata.Document) error {
	_, err := s.Load(metadata.RoleRoot)
	if err == nil {
		return ErrAlreadyBootstrapped
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.Commit(metadata.RoleRoot, doc)
}

func (s *Store) path(role string) (string, error) {
	if role == "" || strings.ContainsAny(role, `/\`) || strings.Contains(role, "..") {
		return "", fmt.Errorf("invalid role name %q", role)
	}
	return filepath.Join(s.dir, metadata.Filename(role)), nil
}
