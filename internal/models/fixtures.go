package models

import (
	"os"
	"path/filepath"
	"testing"
)

// GetFixturePath returns the absolute path of a file under the repository's
// testdata directory. It walks up from the working directory until it finds go.mod.
func GetFixturePath(t testing.TB, name string) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			path := filepath.Join(dir, "testdata", name)
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("fixture %s not found: %v", name, err)
			}
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not locate go.mod above working directory")
		}
		dir = parent
	}
}
