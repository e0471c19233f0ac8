package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	fileDirPermissions = 0750
	filePermissions    = 0600
)

// FileStore keeps identity records in a YAML file holding a single
// sequence of {name, identifier} mappings. The file is read once when
// opened and rewritten in full on every append.
//
// An append is durable once it returns: the new content is written to a
// temp file that is fsynced, renamed over the old file, and the directory
// is fsynced so the rename itself survives power loss.
//
// Thread Safety: safe for concurrent use; appends are serialised.
type FileStore struct {
	path    string
	mu      sync.Mutex
	records []Record

	// syncDir makes the rename durable.
	syncDir func(dir string) error
}

// OpenFileStore loads the file at path. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, syncDir: syncDirectory}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// List returns a copy of every record in file order.
func (s *FileStore) List(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

// ByName returns the records for name in file order.
func (s *FileStore) ByName(_ context.Context, name string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, rec := range s.records {
		if rec.Name == name {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Append adds rec and rewrites the file. On a write failure the record
// is discarded so memory matches what is on disk. If the file was
// replaced but the directory could not be synced, the record is kept and
// the error is still returned: the write is visible but not yet durable.
func (s *FileStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(s.records[:len(s.records):len(s.records)], rec)
	if err := s.write(next); err != nil {
		return err
	}
	s.records = next

	if err := s.syncDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("syncing identity directory: %w", err)
	}
	return nil
}

// write replaces the file with records via a synced temp file and rename.
func (s *FileStore) write(records []Record) error {
	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding identity file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, fileDirPermissions); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp identity file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // Gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("writing identity file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("syncing identity file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing identity file: %w", err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		return fmt.Errorf("setting identity file permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing identity file: %w", err)
	}
	return nil
}

// syncDirectory fsyncs dir so a completed rename survives power loss.
func syncDirectory(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		d.Close() //nolint:errcheck // Already failing
		return err
	}
	return d.Close()
}
