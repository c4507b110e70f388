package binary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// zipEntry describes one entry of a test archive.
type zipEntry struct {
	name    string
	content string
	mode    os.FileMode
}

// createTestZip writes a zip archive with the given entries and returns its
// path. Names ending in "/" become directory entries.
func createTestZip(t *testing.T, entries []zipEntry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		mode := e.mode
		if mode == 0 {
			mode = 0644
		}
		if e.name[len(e.name)-1] == '/' {
			mode = os.ModeDir | 0755
		}
		header.SetMode(mode)

		fw, err := w.CreateHeader(header)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.content)); err != nil {
			t.Fatalf("write zip entry %s: %v", e.name, err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return path
}

// pocketbaseZip returns the bytes of a minimal release-shaped archive.
func pocketbaseZip(t *testing.T) []byte {
	t.Helper()

	path := createTestZip(t, []zipEntry{
		{name: "pocketbase", content: "#!/bin/sh\necho pocketbase\n", mode: 0644},
		{name: "CHANGELOG.md", content: "# changes\n"},
		{name: "LICENSE.md", content: "MIT\n"},
	})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	return data
}
