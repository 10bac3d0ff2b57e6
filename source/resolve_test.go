package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
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

func TestResolvePlainPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stb.xls")
	touch(t, path)

	got, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 || got[0] != path {
		t.Errorf("Resolve = %v, want [%s]", got, path)
	}
}

func TestResolveMissingPath(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "missing.xls"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(errors.GetAllHints(err)) == 0 {
		t.Error("expected a configuration hint")
	}
}

func TestResolveDirectory(t *testing.T) {
	if _, err := Resolve(t.TempDir()); err == nil {
		t.Error("expected error for a directory")
	}
}

func TestResolveGlob(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b", "stb_2.xlsx"))
	touch(t, filepath.Join(dir, "a", "stb_1.xlsx"))
	touch(t, filepath.Join(dir, "a", "notes.txt"))

	got, err := Resolve(filepath.Join(dir, "**", "*.xlsx"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a", "stb_1.xlsx"),
		filepath.Join(dir, "b", "stb_2.xlsx"),
	}
	if len(got) != len(want) {
		t.Fatalf("Resolve = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Resolve[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestResolveGlobNoMatch(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "*.xls"))
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		pattern, path string
		want          bool
	}{
		{"data/stb.xls", "data/stb.xls", true},
		{"data/stb.xls", "./data/stb.xls", true},
		{"data/stb.xls", "data/other.xls", false},
		{"data/**/*.xlsx", "data/2014/stb.xlsx", true},
		{"data/*.xlsx", "data/stb.xls", false},
	}
	for _, tt := range tests {
		if got := Matches(tt.pattern, tt.path); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}
