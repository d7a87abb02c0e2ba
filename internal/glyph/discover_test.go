package glyph

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindPrefersEarlierName(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a", "Second.ttf"))
	touch(t, filepath.Join(dir, "b", "deep", "first.TTF"))

	got, err := Find([]string{"First.ttf", "Second.ttf"}, []string{dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(got) != "first.TTF" {
		t.Errorf("expected first.TTF, got %s", got)
	}
}

func TestFindAcrossDirs(t *testing.T) {
	one, two := t.TempDir(), t.TempDir()
	touch(t, filepath.Join(two, "Second.ttf"))

	got, err := Find([]string{"First.ttf", "Second.ttf"}, []string{one, "/nonexistent", two})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(got) != "Second.ttf" {
		t.Errorf("expected Second.ttf, got %s", got)
	}
}

func TestFindNotFound(t *testing.T) {
	_, err := Find([]string{"Missing.ttf"}, []string{t.TempDir()})
	if !errors.Is(err, ErrFontNotFound) {
		t.Errorf("expected ErrFontNotFound, got %v", err)
	}
}
