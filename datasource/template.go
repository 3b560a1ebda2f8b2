package datasource

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/robinvdvleuten/zhang/ast"
)

// outputPathFields are the values available to the directive_output_path
// template.
type outputPathFields struct {
	Type     string
	Year     int
	Month    int
	MonthStr string
	Day      int
	DayStr   string
}

// renderOutputPath renders the output-path template for a dated directive.
func renderOutputPath(tmpl string, kind ast.DirectiveKind, date *ast.Date) (string, error) {
	parsed, err := template.New("directive_output_path").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("invalid directive_output_path template: %w", err)
	}

	naive := date.Naive()
	fields := outputPathFields{
		Type:     string(kind),
		Year:     naive.Year(),
		Month:    int(naive.Month()),
		MonthStr: fmt.Sprintf("%02d", int(naive.Month())),
		Day:      naive.Day(),
		DayStr:   fmt.Sprintf("%02d", naive.Day()),
	}

	var sb strings.Builder
	if err := parsed.Execute(&sb, fields); err != nil {
		return "", fmt.Errorf("cannot render directive_output_path: %w", err)
	}
	return sb.String(), nil
}
