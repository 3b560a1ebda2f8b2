package datasource

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/codec"
)

// LoadResult is the outcome of a full include walk: the flat directive
// stream in visit order, and the set of files visited. The visited set
// becomes part of the ledger snapshot so appends to unreferenced files can
// add the missing include automatically.
type LoadResult struct {
	Directives   []ast.Spanned
	VisitedFiles []string
}

// AppendOptions carries the ledger state the append protocol consults.
type AppendOptions struct {
	// Endpoint is the primary ledger file, relative to the source root.
	Endpoint string
	// VisitedFiles is the visited set of the last load.
	VisitedFiles []string
	// DirectiveOutputPath is the template routing dated directives to
	// their target file.
	DirectiveOutputPath string
}

// Source combines a storage Operator with the dialect codec of its
// endpoint. It implements the load and append protocols over them.
type Source struct {
	op Operator
	dt codec.DataType
}

// New creates a Source over an operator, selecting the codec from the
// endpoint's file extension.
func New(op Operator, endpoint string) (*Source, error) {
	dt, err := codec.ForPath(endpoint)
	if err != nil {
		return nil, err
	}
	return &Source{op: op, dt: dt}, nil
}

// DataType returns the source's dialect codec.
func (s *Source) DataType() codec.DataType { return s.dt }

// Get reads a file, treating a missing file as empty.
func (s *Source) Get(ctx context.Context, p string) ([]byte, error) {
	content, err := s.op.Read(ctx, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return content, nil
}

// Save writes a file through the operator.
func (s *Source) Save(ctx context.Context, p string, content []byte) error {
	log.Debug().Str("path", p).Int("bytes", len(content)).Msg("datasource save")
	return s.op.Write(ctx, p, content)
}

// Load walks the include graph breadth-first from the endpoint, parsing
// every file through the codec. Paths containing glob segments are
// expanded; each match is re-enqueued. Files are visited at most once.
func (s *Source) Load(ctx context.Context, endpoint string) (*LoadResult, error) {
	queue := []string{path.Clean(endpoint)}
	visited := make(map[string]bool)
	result := &LoadResult{}

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		p := path.Clean(queue[0])
		queue = queue[1:]

		if strings.Contains(p, "*") {
			matches, err := s.expandGlob(ctx, p)
			if err != nil {
				return nil, err
			}
			queue = append(queue, matches...)
			continue
		}

		if visited[p] {
			continue
		}

		content, err := s.Get(ctx, p)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", p).Msg("datasource load")

		directives, err := s.dt.Transform(content, p)
		if err != nil {
			return nil, err
		}

		for _, spanned := range directives {
			if include, ok := spanned.Directive.(*ast.Include); ok {
				queue = append(queue, resolveRelative(p, include.File))
			}
		}

		result.Directives = append(result.Directives, directives...)
		visited[p] = true
		result.VisitedFiles = append(result.VisitedFiles, p)
	}

	return result, nil
}

// resolveRelative resolves an include target against the including file.
func resolveRelative(from, target string) string {
	if path.IsAbs(target) {
		return path.Clean(target)
	}
	return path.Join(path.Dir(from), target)
}

// expandGlob expands * segments component by component against the
// operator's directory listings.
func (s *Source) expandGlob(ctx context.Context, pattern string) ([]string, error) {
	components := strings.Split(path.Clean(pattern), "/")
	current := []string{"."}

	for i, component := range components {
		last := i == len(components)-1
		var next []string
		for _, base := range current {
			if !strings.Contains(component, "*") {
				next = append(next, path.Join(base, component))
				continue
			}
			entries, err := s.op.List(ctx, base)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, err
			}
			for _, entry := range entries {
				matched, err := path.Match(component, entry.Name)
				if err != nil {
					return nil, err
				}
				if !matched {
					continue
				}
				if last != entry.IsDir {
					next = append(next, path.Join(base, entry.Name))
				}
			}
		}
		current = next
	}

	// Keep only paths that exist as files.
	var matches []string
	for _, p := range current {
		exists, err := s.op.Stat(ctx, p)
		if err != nil {
			return nil, err
		}
		if exists {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// Append inserts new directives into the source files per the append
// protocol, one directive at a time.
func (s *Source) Append(ctx context.Context, opts AppendOptions, directives []ast.Directive) error {
	state := &appendState{
		Source:  s,
		opts:    opts,
		visited: make(map[string]bool, len(opts.VisitedFiles)),
	}
	for _, p := range opts.VisitedFiles {
		state.visited[path.Clean(p)] = true
	}
	for _, directive := range directives {
		if err := state.append(ctx, directive, "", true); err != nil {
			return err
		}
	}
	return nil
}

type appendState struct {
	*Source
	opts    AppendOptions
	visited map[string]bool
}

// append routes a directive to its target file: the caller-supplied file,
// else the rendered output-path template for dated directives, else the
// primary endpoint. Appending to a file outside the visited set first
// appends an include for it to the endpoint, with the visit check disabled
// to prevent loops.
func (a *appendState) append(ctx context.Context, directive ast.Directive, file string, checkFileVisit bool) error {
	target := file
	if target == "" {
		if date := directive.GetDate(); date != nil {
			rendered, err := renderOutputPath(a.opts.DirectiveOutputPath, directive.Kind(), date)
			if err != nil {
				return err
			}
			target = rendered
		} else {
			target = a.opts.Endpoint
		}
	}
	target = path.Clean(target)

	if checkFileVisit && !a.visited[target] {
		include := &ast.Include{File: relativeTo(a.opts.Endpoint, target)}
		if err := a.append(ctx, include, a.opts.Endpoint, false); err != nil {
			return err
		}
		a.visited[target] = true
	}

	content, err := a.Get(ctx, target)
	if err != nil {
		return err
	}

	appended := append(content, '\n')
	appended = append(appended, a.dt.Export(directive)...)
	appended = append(appended, '\n')

	return a.Save(ctx, target, appended)
}

// relativeTo renders target relative to the directory of from.
func relativeTo(from, target string) string {
	dir := path.Dir(from)
	if dir == "." {
		return target
	}
	prefix := dir + "/"
	if strings.HasPrefix(target, prefix) {
		return strings.TrimPrefix(target, prefix)
	}
	return target
}
