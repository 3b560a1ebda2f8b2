// Package datasource locates ledger files, walks includes into the
// complete transitive directive set, and appends new directives back into
// the source. Storage is abstracted behind the Operator contract so the
// loader and append protocol are shared between the local filesystem,
// WebDAV and remote-repository backends.
package datasource

import "context"

// DirEntry is one entry of a listed directory.
type DirEntry struct {
	Name  string
	IsDir bool
}

// Operator is the capability contract a storage backend implements. Paths
// are slash-separated and relative to the backend's configured root. All
// operations are synchronous from the core's viewpoint; a backend may
// implement them cooperatively.
type Operator interface {
	// Stat reports whether a path exists.
	Stat(ctx context.Context, path string) (bool, error)

	// Read returns the full content of a file. Reading a missing file
	// returns fs.ErrNotExist; the loader treats that as empty content.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write replaces the full content of a file. The write must be atomic
	// per file: temp-then-rename on a filesystem, a single request
	// elsewhere. Parent directories are created as needed.
	Write(ctx context.Context, path string, content []byte) error

	// List returns the entries of a directory.
	List(ctx context.Context, dir string) ([]DirEntry, error)
}
