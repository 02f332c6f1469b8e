package filex

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadLimited(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")
	if err := os.WriteFile(path, []byte("12345"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ReadLimited(path, 5)
	if err != nil || string(got) != "12345" {
		t.Fatalf("ReadLimited = %q, %v", got, err)
	}

	got, err = ReadLimited(path, 0)
	if err != nil || string(got) != "12345" {
		t.Fatalf("unlimited ReadLimited = %q, %v", got, err)
	}

	if _, err := ReadLimited(path, 4); err == nil {
		t.Fatal("expected size error")
	}

	if _, err := ReadLimited(filepath.Join(dir, "missing"), 0); err == nil {
		t.Fatal("expected open error")
	}
}
