package tools

import (
	"fmt"
	"strings"
	"testing"
)

func newTestSandbox(t *testing.T) *SandboxFS {
	t.Helper()
	fs, err := NewSandboxFS(DefaultSandboxConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewSandboxFS() error = %v", err)
	}
	return fs
}

func TestSandboxFS_RejectsEscapingPaths(t *testing.T) {
	t.Parallel()
	fs := newTestSandbox(t)

	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"absolute unix", "/etc/passwd"},
		{"absolute backslash", `\windows\system32`},
		{"drive designator", `C:\secret.txt`},
		{"parent traversal", "../secret.txt"},
		{"nested traversal", "notes/../../secret.txt"},
		{"bare dotdot", ".."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := fs.ReadText(tt.path)
			if err == nil {
				t.Fatalf("ReadText(%q) succeeded, want violation", tt.path)
			}
			if !IsViolation(err) {
				t.Errorf("ReadText(%q) error = %v, want *Violation", tt.path, err)
			}
		})
	}
}

func TestSandboxFS_CreateAndReadRoundTrip(t *testing.T) {
	t.Parallel()
	fs := newTestSandbox(t)

	rel, err := fs.CreateOnly("a/b.txt", "hello world\n")
	if err != nil {
		t.Fatalf("CreateOnly() error = %v", err)
	}
	if rel != "a/b.txt" {
		t.Errorf("CreateOnly() returned path %q, want %q", rel, "a/b.txt")
	}

	got, err := fs.ReadText("a/b.txt")
	if err != nil {
		t.Fatalf("ReadText() error = %v", err)
	}
	if got != "hello world\n" {
		t.Errorf("ReadText() = %q, want %q", got, "hello world\n")
	}
}

func TestSandboxFS_CreateOnlyNeverOverwrites(t *testing.T) {
	t.Parallel()
	fs := newTestSandbox(t)

	if _, err := fs.CreateOnly("note.txt", "first"); err != nil {
		t.Fatalf("CreateOnly() error = %v", err)
	}

	_, err := fs.CreateOnly("note.txt", "second")
	if !IsViolation(err) {
		t.Fatalf("CreateOnly() on existing file error = %v, want *Violation", err)
	}

	// Original content untouched.
	got, err := fs.ReadText("note.txt")
	if err != nil {
		t.Fatalf("ReadText() error = %v", err)
	}
	if got != "first" {
		t.Errorf("ReadText() = %q, want %q", got, "first")
	}
}

func TestSandboxFS_ReadMissingAndDirectory(t *testing.T) {
	t.Parallel()
	fs := newTestSandbox(t)

	if _, err := fs.ReadText("nope.txt"); !IsViolation(err) {
		t.Errorf("ReadText(missing) error = %v, want *Violation", err)
	}

	if _, err := fs.CreateOnly("dir/child.txt", "x"); err != nil {
		t.Fatalf("CreateOnly() error = %v", err)
	}
	if _, err := fs.ReadText("dir"); !IsViolation(err) {
		t.Errorf("ReadText(directory) error = %v, want *Violation", err)
	}
}

func TestSandboxFS_ListDirMarksSubdirectories(t *testing.T) {
	t.Parallel()
	fs := newTestSandbox(t)

	if _, err := fs.CreateOnly("b.txt", "x"); err != nil {
		t.Fatalf("CreateOnly() error = %v", err)
	}
	if _, err := fs.CreateOnly("sub/a.txt", "x"); err != nil {
		t.Fatalf("CreateOnly() error = %v", err)
	}

	entries, err := fs.ListDir(".")
	if err != nil {
		t.Fatalf("ListDir() error = %v", err)
	}
	if len(entries) != 2 || entries[0] != "b.txt" || entries[1] != "sub/" {
		t.Errorf("ListDir() = %v, want [b.txt sub/]", entries)
	}
}

func TestSandboxFS_SearchTextFormat(t *testing.T) {
	t.Parallel()
	fs := newTestSandbox(t)

	content := "line one\nline two\nhello world   \n"
	if _, err := fs.CreateOnly("doc.txt", content); err != nil {
		t.Fatalf("CreateOnly() error = %v", err)
	}

	hits, err := fs.SearchText("hello", ".")
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("SearchText() returned %d hits, want 1", len(hits))
	}
	if hits[0] != "doc.txt:3:hello world" {
		t.Errorf("SearchText() hit = %q, want %q", hits[0], "doc.txt:3:hello world")
	}
}

func TestSandboxFS_SearchCapsResults(t *testing.T) {
	t.Parallel()

	cfg := DefaultSandboxConfig(t.TempDir())
	cfg.MaxSearchResults = 5
	fs, err := NewSandboxFS(cfg)
	if err != nil {
		t.Fatalf("NewSandboxFS() error = %v", err)
	}

	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "needle %d\n", i)
	}
	if _, err := fs.CreateOnly("hay.txt", b.String()); err != nil {
		t.Fatalf("CreateOnly() error = %v", err)
	}

	hits, err := fs.SearchText("needle", ".")
	if err != nil {
		t.Fatalf("SearchText() error = %v", err)
	}
	if len(hits) != 5 {
		t.Errorf("SearchText() returned %d hits, want cap of 5", len(hits))
	}
}

func TestSandboxFS_OversizeLimits(t *testing.T) {
	t.Parallel()

	cfg := DefaultSandboxConfig(t.TempDir())
	cfg.MaxReadBytes = 10
	cfg.MaxWriteBytes = 10
	fs, err := NewSandboxFS(cfg)
	if err != nil {
		t.Fatalf("NewSandboxFS() error = %v", err)
	}

	if _, err := fs.CreateOnly("big.txt", strings.Repeat("x", 11)); !IsViolation(err) {
		t.Errorf("CreateOnly(oversize) error = %v, want *Violation", err)
	}

	if _, err := fs.CreateOnly("ok.txt", strings.Repeat("x", 10)); err != nil {
		t.Fatalf("CreateOnly() error = %v", err)
	}
	cfg2 := fs.cfg
	cfg2.MaxReadBytes = 5
	fs2 := &SandboxFS{cfg: cfg2, root: fs.root}
	if _, err := fs2.ReadText("ok.txt"); !IsViolation(err) {
		t.Errorf("ReadText(oversize) error = %v, want *Violation", err)
	}
}
