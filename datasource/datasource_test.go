package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/zhang/ast"
	_ "github.com/robinvdvleuten/zhang/codec/text"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	assert.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	assert.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newFsSource(t *testing.T, root string) *Source {
	t.Helper()
	source, err := New(NewFsOperator(root), "main.zhang")
	assert.NoError(t, err)
	return source
}

func TestLoadFollowsIncludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.zhang", "include \"accounts.zhang\"\n1970-01-02 close Assets:Cash\n")
	writeFile(t, root, "accounts.zhang", "1970-01-01 open Assets:Cash\n")

	result, err := newFsSource(t, root).Load(context.Background(), "main.zhang")
	assert.NoError(t, err)

	assert.Equal(t, []string{"main.zhang", "accounts.zhang"}, result.VisitedFiles)
	kinds := make([]ast.DirectiveKind, 0, len(result.Directives))
	for _, d := range result.Directives {
		kinds = append(kinds, d.Directive.Kind())
	}
	assert.Equal(t, []ast.DirectiveKind{ast.KindInclude, ast.KindClose, ast.KindOpen}, kinds)
}

func TestLoadVisitsFilesOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.zhang", "include \"a.zhang\"\ninclude \"a.zhang\"\n")
	writeFile(t, root, "a.zhang", "1970-01-01 open Assets:Cash\n")

	result, err := newFsSource(t, root).Load(context.Background(), "main.zhang")
	assert.NoError(t, err)

	opens := 0
	for _, d := range result.Directives {
		if d.Directive.Kind() == ast.KindOpen {
			opens++
		}
	}
	assert.Equal(t, 1, opens)
}

func TestLoadExpandsGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.zhang", "include \"data/*/*.zhang\"\n")
	writeFile(t, root, "data/2023/01.zhang", "1970-01-01 open Assets:A\n")
	writeFile(t, root, "data/2024/02.zhang", "1970-01-01 open Assets:B\n")
	writeFile(t, root, "data/2024/readme.md", "not a ledger\n")

	result, err := newFsSource(t, root).Load(context.Background(), "main.zhang")
	assert.NoError(t, err)

	opened := map[string]bool{}
	for _, d := range result.Directives {
		if open, ok := d.Directive.(*ast.Open); ok {
			opened[open.Account.Name()] = true
		}
	}
	assert.True(t, opened["Assets:A"])
	assert.True(t, opened["Assets:B"])
}

func TestLoadMissingEndpointIsEmpty(t *testing.T) {
	root := t.TempDir()
	result, err := newFsSource(t, root).Load(context.Background(), "main.zhang")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(result.Directives))
}

func TestAppendToVisitedFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.zhang", "1970-01-01 open Assets:Cash CNY\n")
	source := newFsSource(t, root)

	err := source.Append(context.Background(), AppendOptions{
		Endpoint:            "main.zhang",
		VisitedFiles:        []string{"main.zhang"},
		DirectiveOutputPath: "main.zhang",
	}, []ast.Directive{&ast.Option{Key: "title", Value: "Demo"}})
	assert.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(root, "main.zhang"))
	assert.NoError(t, err)
	assert.Contains(t, string(content), `option "title" "Demo"`)
}

func TestAppendRoutesThroughTemplateAndAddsInclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.zhang", "1970-01-01 open Assets:Cash CNY\n1970-01-01 open Expenses:Food CNY\n")
	source := newFsSource(t, root)

	txn := &ast.Transaction{
		Date:      ast.NewDate(2024, 3, 5),
		Flag:      ast.FlagOkay,
		Narration: "lunch",
		Postings: []*ast.Posting{
			{Account: ast.MustAccount("Assets:Cash"), Units: amountPtr(t, "-10", "CNY")},
			{Account: ast.MustAccount("Expenses:Food"), Units: amountPtr(t, "10", "CNY")},
		},
	}

	err := source.Append(context.Background(), AppendOptions{
		Endpoint:            "main.zhang",
		VisitedFiles:        []string{"main.zhang"},
		DirectiveOutputPath: "data/{{.Year}}/{{.MonthStr}}.zhang",
	}, []ast.Directive{txn})
	assert.NoError(t, err)

	// The transaction landed in the templated file.
	routed, err := os.ReadFile(filepath.Join(root, "data", "2024", "03.zhang"))
	assert.NoError(t, err)
	assert.Contains(t, string(routed), "2024-03-05 * \"lunch\"")

	// The endpoint gained an include for the new file.
	main, err := os.ReadFile(filepath.Join(root, "main.zhang"))
	assert.NoError(t, err)
	assert.Contains(t, string(main), `include "data/2024/03.zhang"`)

	// Appending again must not duplicate the include.
	err = source.Append(context.Background(), AppendOptions{
		Endpoint:            "main.zhang",
		VisitedFiles:        []string{"main.zhang", "data/2024/03.zhang"},
		DirectiveOutputPath: "data/{{.Year}}/{{.MonthStr}}.zhang",
	}, []ast.Directive{txn})
	assert.NoError(t, err)

	main, err = os.ReadFile(filepath.Join(root, "main.zhang"))
	assert.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(string(main), `include "data/2024/03.zhang"`))
}

func TestRenderOutputPath(t *testing.T) {
	rendered, err := renderOutputPath("data/{{.Year}}/{{.MonthStr}}.zhang", ast.KindTransaction, ast.NewDate(2024, 3, 5))
	assert.NoError(t, err)
	assert.Equal(t, "data/2024/03.zhang", rendered)

	rendered, err = renderOutputPath("{{.Type}}/{{.DayStr}}.zhang", ast.KindDocument, ast.NewDate(2024, 3, 5))
	assert.NoError(t, err)
	assert.Equal(t, "document/05.zhang", rendered)

	_, err = renderOutputPath("{{.Bogus}}.zhang", ast.KindTransaction, ast.NewDate(2024, 3, 5))
	assert.Error(t, err)
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}

func amountPtr(t *testing.T, number, commodity string) *ast.Amount {
	t.Helper()
	amount, err := ast.NewAmountFromString(number, commodity)
	assert.NoError(t, err)
	return &amount
}
