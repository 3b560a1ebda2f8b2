// Package codec defines the bidirectional translation between a textual
// ledger dialect and the directive types. A DataType is a pure function on
// bytes: transforming raw content into spanned directives, and exporting a
// directive back into the dialect's text. Dialects are selected by file
// extension.
package codec

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/robinvdvleuten/zhang/ast"
)

// DataType is the bidirectional codec of one textual dialect.
//
// Transform must be total on well-formed input: every produced directive
// carries a span with byte offsets into the source and the source id, and
// spans are stable across reparses of identical input. Export satisfies the
// round-trip property: transforming the export of a directive yields a
// single directive equal to it up to metadata ordering.
type DataType interface {
	// Transform parses raw bytes into spanned directives. The source id is
	// recorded into every span for error reporting and stable ids.
	Transform(content []byte, source string) ([]ast.Spanned, error)

	// Export renders a directive into the dialect's text, without a
	// trailing newline.
	Export(directive ast.Directive) []byte
}

// registry maps file extensions (without dot) to codec constructors.
var registry = map[string]func() DataType{}

// Register installs a codec constructor for a set of file extensions. It is
// called from the dialect packages' init functions.
func Register(constructor func() DataType, extensions ...string) {
	for _, ext := range extensions {
		registry[ext] = constructor
	}
}

// ForPath selects the codec for a ledger file path by its extension.
func ForPath(path string) (DataType, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	constructor, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported ledger format %q", path)
	}
	return constructor(), nil
}
