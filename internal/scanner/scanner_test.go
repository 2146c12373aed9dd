package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files []string) {
	t.Helper()
	for _, path := range files {
		fullPath := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte("int main(void) { return 0; }"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}
}

func paths(results []FileInfo) []string {
	out := make([]string, len(results))
	for i, f := range results {
		out[i] = f.Path
	}
	return out
}

func assertPaths(t *testing.T, got []FileInfo, want []string) {
	t.Helper()
	gotPaths := paths(got)
	if len(gotPaths) != len(want) {
		t.Fatalf("Scan() = %v, want %v", gotPaths, want)
	}
	for i := range want {
		if gotPaths[i] != want[i] {
			t.Errorf("Scan()[%d] = %s, want %s", i, gotPaths[i], want[i])
		}
	}
}

// scanDefault scans root with DefaultOptions.
func scanDefault(root string) ([]FileInfo, error) {
	s, err := New(DefaultOptions())
	if err != nil {
		return nil, err
	}
	return s.Scan(root)
}

func TestScannerScan(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{
		"main.c",
		"util/list.c",
		"util/list.h",
		"pre/unit.i",
		"README.md",
		".hidden/secret.c",
		"build/gen.c",
		".git/hooks/x.c",
	})

	results, err := scanDefault(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// Headers and docs are not included; hidden and build directories are skipped.
	assertPaths(t, results, []string{"main.c", "pre/unit.i", "util/list.c"})

	for _, f := range results {
		if !filepath.IsAbs(f.FullPath) {
			t.Errorf("FullPath %s is not absolute", f.FullPath)
		}
		if f.Size == 0 {
			t.Errorf("Size of %s is zero", f.Path)
		}
	}
}

func TestScannerWithIgnoreFile(t *testing.T) {
	tmpDir := t.TempDir()
	ignore := `# generated sources
*_gen.c
# fixtures
fixtures/
!fixtures/keep.c
/top.c
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".pgraphignore"), []byte(ignore), 0644); err != nil {
		t.Fatalf("Failed to create .pgraphignore: %v", err)
	}
	writeTree(t, tmpDir, []string{
		"a.c",
		"parser_gen.c",
		"deep/lexer_gen.c",
		"fixtures/one.c",
		"fixtures/keep.c",
		"top.c",
		"sub/top.c",
	})

	results, err := scanDefault(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// fixtures/ is pruned as a directory, so the negation never sees keep.c.
	assertPaths(t, results, []string{"a.c", "sub/top.c"})
}

func TestScannerNestedIgnoreFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{
		"lib/a.c",
		"lib/skip.c",
		"lib/inner/skip.c",
		"skip.c",
	})
	if err := os.WriteFile(filepath.Join(tmpDir, "lib", ".pgraphignore"), []byte("skip.c\n"), 0644); err != nil {
		t.Fatal(err)
	}

	results, err := scanDefault(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	assertPaths(t, results, []string{"lib/a.c", "skip.c"})
}

func TestScannerIncludeExclude(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{
		"src/a.c",
		"src/test/a_test.c",
		"tools/gen.c",
	})

	opts := DefaultOptions()
	opts.Include = []string{"src/**"}
	opts.Exclude = []string{"**/test/**"}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	results, err := s.Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	assertPaths(t, results, []string{"src/a.c"})
}

func TestScannerEmptyIncludeSelectsAll(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{"a.c", "b.txt"})

	opts := DefaultOptions()
	opts.Include = nil
	s, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	results, err := s.Scan(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	assertPaths(t, results, []string{"a.c", "b.txt"})
}

func TestScannerBadPattern(t *testing.T) {
	opts := DefaultOptions()
	opts.Include = []string{"[unclosed"}
	if _, err := New(opts); err == nil {
		t.Error("New() with malformed glob should fail")
	}
}

func TestScannerNotADirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{"a.c"})
	if _, err := scanDefault(filepath.Join(tmpDir, "a.c")); err == nil {
		t.Error("Scan() on a file should fail")
	}
	if _, err := scanDefault(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("Scan() on a missing path should fail")
	}
}

func TestIgnorePatternMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"*.o", "a.o", false, true},
		{"*.o", "obj/a.o", false, true},
		{"*.o", "a.c", false, false},
		{"/top.c", "top.c", false, true},
		{"/top.c", "sub/top.c", false, false},
		{"out/", "out", true, true},
		{"out/", "out", false, false},
		{"out/", "src/out/x.c", false, true},
		{"docs/*.c", "docs/a.c", false, true},
		{"docs/*.c", "x/docs/a.c", false, false},
		{"!keep.c", "keep.c", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			p, err := ParseIgnorePattern(tt.pattern)
			if err != nil {
				t.Fatalf("ParseIgnorePattern(%q) failed: %v", tt.pattern, err)
			}
			if got := p.Match(tt.path, tt.isDir); got != tt.want {
				t.Errorf("Match(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
			}
		})
	}

	if _, err := ParseIgnorePattern("/"); err == nil {
		t.Error("empty pattern should fail")
	}
}

func TestIgnorePatternWithBase(t *testing.T) {
	p, err := ParseIgnorePattern("skip.c")
	if err != nil {
		t.Fatal(err)
	}
	p = p.WithBase("lib")

	if !p.Match("lib/skip.c", false) || !p.Match("lib/x/skip.c", false) {
		t.Error("pattern should match below its base")
	}
	if p.Match("skip.c", false) || p.Match("liba/skip.c", false) {
		t.Error("pattern should not match outside its base")
	}
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher([]string{"**/*.c"})
	if err != nil {
		t.Fatal(err)
	}
	for path, want := range map[string]bool{"main.c": true, "a/b/c.c": true, "main.h": false} {
		if got := m.Match(path); got != want {
			t.Errorf("Match(%q) = %v, want %v", path, got, want)
		}
	}
}
