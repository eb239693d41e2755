// Package blob stores uploaded map and token images on local disk.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("blob not found")

// Ref identifies a stored file.
type Ref struct {
	Name         string
	OriginalName string
	Size         int64
}

type DiskStore struct {
	dir string
	now func() time.Time
}

// NewDiskStore creates dir when it does not exist.
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("upload directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure upload directory: %w", err)
	}
	return &DiskStore{dir: dir, now: time.Now}, nil
}

// Put writes r under a collision-resistant name derived from originalName.
func (s *DiskStore) Put(r io.Reader, originalName string) (Ref, error) {
	name := fmt.Sprintf("%d-%s-%s", s.now().UnixMilli(), randomSuffix(), Sanitize(originalName))
	dest := filepath.Join(s.dir, name)

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Ref{}, fmt.Errorf("create %s: %w", name, err)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return Ref{}, fmt.Errorf("write %s: %w", name, err)
	}
	return Ref{Name: name, OriginalName: originalName, Size: n}, nil
}

// Path resolves a stored name to its file path.
func (s *DiskStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrNotFound
	}
	p := filepath.Join(s.dir, name)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return p, nil
}

// List returns the stored names in lexical (and therefore upload-time) order.
func (s *DiskStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Sanitize keeps letters, digits, dot, dash and underscore from the base name.
func Sanitize(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
