// Package tools implements the sandboxed tool set exposed to the
// assistant: filesystem operations confined to a fixed root directory,
// plus preference storage. Expected failures (missing files, escaped
// paths, oversized content) are ordinary error values of type
// *Violation, never panics.
package tools

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Violation reports a rejected sandbox operation. It is always handled
// at the tool boundary and fed back to the model as result text.
type Violation struct {
	Reason string
}

func (v *Violation) Error() string { return v.Reason }

// IsViolation reports whether err is a sandbox violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

func violationf(format string, args ...any) error {
	return &Violation{Reason: fmt.Sprintf(format, args...)}
}

// SandboxConfig bounds the sandbox filesystem operations.
type SandboxConfig struct {
	Root             string
	MaxReadBytes     int
	MaxWriteBytes    int
	MaxSearchResults int
}

// DefaultSandboxConfig returns the default limits for the given root.
func DefaultSandboxConfig(root string) SandboxConfig {
	return SandboxConfig{
		Root:             root,
		MaxReadBytes:     200_000,
		MaxWriteBytes:    200_000,
		MaxSearchResults: 50,
	}
}

// SandboxFS performs filesystem operations strictly inside a root
// directory. Every client-supplied path is relative and must resolve
// to a descendant of the root before any I/O happens.
type SandboxFS struct {
	cfg  SandboxConfig
	root string
}

// NewSandboxFS creates the sandbox, creating the root directory if
// needed.
func NewSandboxFS(cfg SandboxConfig) (*SandboxFS, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("tools: resolving sandbox root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("tools: creating sandbox root: %w", err)
	}
	return &SandboxFS{cfg: cfg, root: root}, nil
}

// Root returns the absolute sandbox root directory.
func (s *SandboxFS) Root() string { return s.root }

// resolve maps a client-supplied relative path to an absolute path
// proven to live under the root. Rejections never silently truncate.
func (s *SandboxFS) resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", violationf("path is required")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, "\\") {
		return "", violationf("absolute paths are not allowed")
	}
	if strings.Contains(rel, ":") {
		return "", violationf("drive designators are not allowed")
	}

	norm := filepath.Clean(strings.ReplaceAll(rel, "\\", "/"))
	if norm == ".." || strings.HasPrefix(norm, "../") {
		return "", violationf("path traversal is not allowed")
	}

	full := filepath.Join(s.root, norm)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", violationf("path escapes sandbox root")
	}
	return full, nil
}

// resolveDir is resolve with "." (and empty) meaning the root itself.
func (s *SandboxFS) resolveDir(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" || rel == "." {
		return s.root, nil
	}
	return s.resolve(rel)
}

// ReadText returns the UTF-8 contents of a file inside the sandbox.
// Invalid byte sequences are replaced, never a decode failure.
func (s *SandboxFS) ReadText(rel string) (string, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", violationf("file does not exist")
		}
		return "", fmt.Errorf("tools: stat %q: %w", rel, err)
	}
	if info.IsDir() {
		return "", violationf("path is a directory")
	}
	if info.Size() > int64(s.cfg.MaxReadBytes) {
		return "", violationf("file too large to read (>%d bytes)", s.cfg.MaxReadBytes)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("tools: read %q: %w", rel, err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// CreateOnly writes a new file inside the sandbox, creating parent
// directories as needed. Overwriting is disabled: an existing target is
// a violation, enforced by the exclusive-create flag so concurrent
// writers race safely.
func (s *SandboxFS) CreateOnly(rel, content string) (string, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if len(content) > s.cfg.MaxWriteBytes {
		return "", violationf("content too large (>%d bytes)", s.cfg.MaxWriteBytes)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("tools: creating parent directories: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", violationf("file already exists (overwrite disabled)")
		}
		return "", fmt.Errorf("tools: create %q: %w", rel, err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return "", fmt.Errorf("tools: write %q: %w", rel, err)
	}

	relOut, err := filepath.Rel(s.root, full)
	if err != nil {
		relOut = rel
	}
	return relOut, nil
}

// ListDir returns the sorted entry names of a directory inside the
// sandbox, with a trailing "/" marker on subdirectories.
func (s *SandboxFS) ListDir(rel string) ([]string, error) {
	full, err := s.resolveDir(rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, violationf("directory does not exist")
		}
		return nil, fmt.Errorf("tools: stat %q: %w", rel, err)
	}
	if !info.IsDir() {
		return nil, violationf("path is not a directory")
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("tools: list %q: %w", rel, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// SearchText walks a subtree looking for an exact substring match,
// line by line. Oversized files are skipped; results are capped at
// MaxSearchResults and the walk stops early once the cap is reached.
// Each hit is formatted as "path:line:text" with trailing whitespace
// stripped from the line.
func (s *SandboxFS) SearchText(query, relDir string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, violationf("query is required")
	}

	base, err := s.resolveDir(relDir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return nil, violationf("search directory does not exist")
	}

	var results []string
	errStop := errors.New("result cap reached")

	walkErr := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		fi, err := d.Info()
		if err != nil || fi.Size() > int64(s.cfg.MaxReadBytes) {
			return nil
		}

		hits, err := s.scanFile(path, query, s.cfg.MaxSearchResults-len(results))
		if err != nil {
			return nil
		}
		results = append(results, hits...)
		if len(results) >= s.cfg.MaxSearchResults {
			return errStop
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, errStop) {
		return nil, fmt.Errorf("tools: search walk: %w", walkErr)
	}
	return results, nil
}

// scanFile scans one file for the query, returning up to max hits.
func (s *SandboxFS) scanFile(path, query string, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}

	var hits []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), s.cfg.MaxReadBytes)
	for line := 1; scanner.Scan(); line++ {
		if strings.Contains(scanner.Text(), query) {
			hits = append(hits, fmt.Sprintf("%s:%d:%s", rel, line, strings.TrimRight(scanner.Text(), " \t\r\n")))
			if len(hits) >= max {
				break
			}
		}
	}
	return hits, nil
}
