package datasource

import (
	"context"
	"io/fs"
	"os"
	"path"

	"github.com/studio-b12/gowebdav"
)

// WebdavConfig configures the WebDAV backend. The fields map onto the
// ZHANG_WEBDAV_* environment variables.
type WebdavConfig struct {
	Endpoint string
	Root     string
	Username string
	Password string
}

// WebdavOperator stores ledger files on a WebDAV share. A write is a
// single PUT, which the protocol applies atomically per file.
type WebdavOperator struct {
	client *gowebdav.Client
	root   string
}

// NewWebdavOperator creates a WebDAV operator from its configuration.
func NewWebdavOperator(cfg WebdavConfig) *WebdavOperator {
	client := gowebdav.NewClient(cfg.Endpoint, cfg.Username, cfg.Password)
	return &WebdavOperator{client: client, root: cfg.Root}
}

var _ Operator = (*WebdavOperator)(nil)

func (w *WebdavOperator) abs(p string) string {
	return path.Join("/", w.root, p)
}

// Stat reports whether the path exists.
func (w *WebdavOperator) Stat(ctx context.Context, p string) (bool, error) {
	_, err := w.client.Stat(w.abs(p))
	if err != nil {
		if isWebdavNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read returns the file content; a missing file returns fs.ErrNotExist.
func (w *WebdavOperator) Read(ctx context.Context, p string) ([]byte, error) {
	content, err := w.client.Read(w.abs(p))
	if err != nil {
		if isWebdavNotFound(err) {
			return nil, fs.ErrNotExist
		}
		return nil, err
	}
	return content, nil
}

// Write replaces the file content with a single PUT.
func (w *WebdavOperator) Write(ctx context.Context, p string, content []byte) error {
	target := w.abs(p)
	if dir := path.Dir(target); dir != "/" {
		if err := w.client.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return w.client.Write(target, content, 0o644)
}

// List returns the directory's entries.
func (w *WebdavOperator) List(ctx context.Context, dir string) ([]DirEntry, error) {
	infos, err := w.client.ReadDir(w.abs(dir))
	if err != nil {
		if isWebdavNotFound(err) {
			return nil, fs.ErrNotExist
		}
		return nil, err
	}
	entries := make([]DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, DirEntry{Name: info.Name(), IsDir: info.IsDir()})
	}
	return entries, nil
}

func isWebdavNotFound(err error) bool {
	return os.IsNotExist(err) || gowebdav.IsErrNotFound(err)
}
