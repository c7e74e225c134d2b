// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TempDir creates a temporary directory matching pattern that is removed when
// the test finishes.
func TempDir(t testing.TB, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

// CorpusDir returns the absolute path of the fixture corpus.
//
// The fixture is a small OCSF corpus with a self-referencing object
// (process.parent_process), a two-object cycle (user and group), an acyclic
// chain (metadata, product, feature), a free-form object, an abstract
// intermediate event (finding) and two concrete events: Incident Finding
// (2005) and Process Activity (1007).
func CorpusDir(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to locate testutil source")
	}
	return filepath.Join(filepath.Dir(file), "testdata", "corpus")
}

// WriteFiles writes files (relative path -> content) under root, creating
// directories as needed.
func WriteFiles(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
}
