package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-tracker/internal/catalog"
)

const validCatalog = `
topics:
  - topicName: Arrays
    position: 1
    questions:
      - problem: Two sum
        urls: ["https://example.com/two-sum"]
      - problem: Rotate array
  - topicName: Graphs
    position: 2
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, open storeOpener, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd(open)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func memoryOpener(store catalog.Store) storeOpener {
	return func(context.Context) (catalog.Store, func(), error) {
		return store, func() {}, nil
	}
}

func failingOpener(context.Context) (catalog.Store, func(), error) {
	return nil, nil, errors.New("database down")
}

func TestValidate(t *testing.T) {
	path := writeCatalog(t, validCatalog)

	out, _, err := run(t, failingOpener, "validate", path)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(out, "2 topics, 2 questions OK") {
		t.Errorf("output = %q, want topic and question counts", out)
	}
}

func TestValidate_Invalid(t *testing.T) {
	path := writeCatalog(t, "topics:\n  - topicName: Arrays\n    position: 1\n    questions:\n      - problem: x\n        urls:\n          - not-a-url\n")

	_, stderr, err := run(t, failingOpener, "validate", path)
	if err == nil {
		t.Fatal("validate should fail for an invalid URL")
	}
	if !strings.Contains(stderr, "Arrays") {
		t.Errorf("stderr = %q, want the offending topic", stderr)
	}
}

func TestValidate_Args(t *testing.T) {
	if _, _, err := run(t, failingOpener, "validate"); err == nil {
		t.Error("validate without a path should fail")
	}
}

func TestImport(t *testing.T) {
	path := writeCatalog(t, validCatalog)
	store := catalog.NewMemoryStore()

	out, _, err := run(t, memoryOpener(store), "import", path)
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if !strings.Contains(out, "added 2, skipped 0") {
		t.Errorf("output = %q, want two added", out)
	}

	out, _, err = run(t, memoryOpener(store), "import", path)
	if err != nil {
		t.Fatalf("second import error = %v", err)
	}
	if !strings.Contains(out, "added 0, skipped 2") {
		t.Errorf("output = %q, want two skipped", out)
	}

	topics, _ := store.Topics(context.Background())
	if len(topics) != 2 {
		t.Errorf("Topics() = %d, want 2", len(topics))
	}
}

func TestImport_StoreUnavailable(t *testing.T) {
	path := writeCatalog(t, validCatalog)

	if _, _, err := run(t, failingOpener, "import", path); err == nil {
		t.Fatal("import should fail when the store cannot be opened")
	}
}
