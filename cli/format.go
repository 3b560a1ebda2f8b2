package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/zhang/store"
)

// formatErrors renders the non-fatal error list with the kind column
// aligned, so the locations line up regardless of kind length.
func formatErrors(errors []store.ErrorDomain) []string {
	width := 0
	for _, e := range errors {
		if w := runewidth.StringWidth(string(e.Kind)); w > width {
			width = w
		}
	}

	lines := make([]string, 0, len(errors))
	for _, e := range errors {
		kind := runewidth.FillRight(string(e.Kind), width)
		location := ""
		if e.Span != nil && !e.Span.IsZero() {
			location = e.Span.String()
		}
		line := strings.TrimRight(fmt.Sprintf("%s  %s", kind, location), " ")
		if context := formatErrorContext(e.Metas); context != "" {
			line += "  (" + context + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

func formatErrorContext(metas map[string]string) string {
	if len(metas) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metas))
	for key := range metas {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+metas[key])
	}
	return strings.Join(parts, ", ")
}
