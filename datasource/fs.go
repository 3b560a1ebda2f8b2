package datasource

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// FsOperator stores ledger files on the local filesystem below a root
// directory. Writes are atomic via temp-then-rename.
type FsOperator struct {
	Root string
}

// NewFsOperator creates a filesystem operator rooted at dir.
func NewFsOperator(dir string) *FsOperator {
	return &FsOperator{Root: dir}
}

var _ Operator = (*FsOperator)(nil)

func (f *FsOperator) abs(p string) string {
	return filepath.Join(f.Root, filepath.FromSlash(p))
}

// Stat reports whether the path exists.
func (f *FsOperator) Stat(ctx context.Context, p string) (bool, error) {
	_, err := os.Stat(f.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read returns the file content; a missing file returns fs.ErrNotExist.
func (f *FsOperator) Read(ctx context.Context, p string) ([]byte, error) {
	return os.ReadFile(f.abs(p))
}

// Write atomically replaces the file content.
func (f *FsOperator) Write(ctx context.Context, p string, content []byte) error {
	target := f.abs(p)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(target, content, 0o644)
}

// List returns the directory's entries.
func (f *FsOperator) List(ctx context.Context, dir string) ([]DirEntry, error) {
	entries, err := os.ReadDir(f.abs(dir))
	if err != nil {
		return nil, err
	}
	result := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, DirEntry{Name: entry.Name(), IsDir: entry.IsDir()})
	}
	return result, nil
}
