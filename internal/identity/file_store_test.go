package identity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "controllers.yaml"))
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	all, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("List() = %+v, want empty", all)
	}
}

func TestFileStore_AppendPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "controllers.yaml")
	ctx := context.Background()

	s, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	if err := s.Append(ctx, Record{Name: "PadX", Identifier: "a"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Append(ctx, Record{Name: "PadX", Identifier: "b"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	got, err := reopened.ByName(ctx, "PadX")
	if err != nil {
		t.Fatalf("ByName() error = %v", err)
	}
	if len(got) != 2 || got[0].Identifier != "a" || got[1].Identifier != "b" {
		t.Errorf("ByName() after reopen = %+v, want [a b]", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != filePermissions {
		t.Errorf("file mode = %o, want %o", perm, filePermissions)
	}
}

func TestFileStore_ReadsSequenceFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controllers.yaml")
	content := `
- name: Xbox Wireless Controller
  identifier: 7d1f
- name: PadX
  identifier: 9c2e
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	all, _ := s.List(context.Background()) //nolint:errcheck // In-memory
	if len(all) != 2 || all[0].Name != "Xbox Wireless Controller" {
		t.Errorf("List() = %+v", all)
	}
}

func TestFileStore_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controllers.yaml")
	if err := os.WriteFile(path, []byte("name: [unterminated"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := OpenFileStore(path); err == nil {
		t.Error("OpenFileStore() expected error for invalid YAML")
	}
}

func TestFileStore_FailedWriteIsDiscarded(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "ids")
	s, err := OpenFileStore(filepath.Join(parent, "controllers.yaml"))
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}

	// A regular file in place of the parent directory makes every write fail.
	if err := os.WriteFile(parent, nil, 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	ctx := context.Background()

	if err := s.Append(ctx, Record{Name: "PadX", Identifier: "a"}); err == nil {
		t.Fatal("Append() expected error when the directory cannot be created")
	}
	all, _ := s.List(ctx) //nolint:errcheck // In-memory
	if len(all) != 0 {
		t.Errorf("List() = %+v, failed append should not be kept", all)
	}
}

func TestFileStore_AppendSyncsDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controllers.yaml")
	s, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	var synced []string
	s.syncDir = func(dir string) error {
		synced = append(synced, dir)
		return nil
	}

	if err := s.Append(context.Background(), Record{Name: "PadX", Identifier: "a"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(synced) != 1 || synced[0] != filepath.Dir(path) {
		t.Errorf("synced dirs = %v, want [%s]", synced, filepath.Dir(path))
	}
}

func TestFileStore_DirectorySyncFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controllers.yaml")
	s, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	s.syncDir = func(string) error { return errors.New("fsync: input/output error") }
	ctx := context.Background()

	if err := s.Append(ctx, Record{Name: "PadX", Identifier: "a"}); err == nil {
		t.Fatal("Append() expected error when the directory sync fails")
	}
	// The file was replaced, so the record stays visible.
	got, _ := s.ByName(ctx, "PadX") //nolint:errcheck // In-memory
	if len(got) != 1 || got[0].Identifier != "a" {
		t.Errorf("ByName() = %+v, want the renamed record kept", got)
	}
}

func TestSyncDirectory(t *testing.T) {
	if err := syncDirectory(t.TempDir()); err != nil {
		t.Errorf("syncDirectory() error = %v", err)
	}
	if err := syncDirectory(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("syncDirectory() expected error for a missing directory")
	}
}

func TestFileStore_List_ReturnsCopy(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "controllers.yaml"))
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	ctx := context.Background()
	if err := s.Append(ctx, Record{Name: "PadX", Identifier: "a"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	all, _ := s.List(ctx) //nolint:errcheck // In-memory
	all[0].Identifier = "mutated"

	again, _ := s.List(ctx) //nolint:errcheck // In-memory
	if again[0].Identifier != "a" {
		t.Error("mutating List() result changed the store")
	}
}
