package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCappedFileWriterTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := newCappedFileWriter(path, 1)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()
	w.cap = 64

	line := bytes.Repeat([]byte("x"), 40)
	if _, err := w.Write(line); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := w.Write(line); err != nil {
		t.Fatalf("second write: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != int64(len(line)) {
		t.Fatalf("expected file truncated to one line (%d bytes), got %d", len(line), info.Size())
	}
}
