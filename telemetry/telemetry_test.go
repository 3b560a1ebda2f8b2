package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestFromContextDefaultsToNoop(t *testing.T) {
	collector := FromContext(context.Background())
	timer := collector.Start("anything")
	timer.Child("nested").End()
	timer.End()

	var sb strings.Builder
	collector.Report(&sb)
	assert.Equal(t, "", sb.String())
}

func TestTimingCollectorBuildsTree(t *testing.T) {
	collector := NewTimingCollector()
	ctx := WithCollector(context.Background(), collector)

	timer := FromContext(ctx).Start("ledger.load")
	child := timer.Child("datasource.walk")
	child.End()
	timer.Child("ledger.process").End()
	timer.End()

	var sb strings.Builder
	collector.Report(&sb)
	report := sb.String()

	assert.Contains(t, report, "ledger.load")
	assert.Contains(t, report, "├─ datasource.walk")
	assert.Contains(t, report, "└─ ledger.process")
}

func TestNestedStartBecomesChild(t *testing.T) {
	collector := NewTimingCollector()

	outer := collector.Start("outer")
	inner := collector.Start("inner")
	inner.End()
	outer.End()

	var sb strings.Builder
	collector.Report(&sb)
	report := sb.String()

	assert.Contains(t, report, "outer")
	assert.Contains(t, report, "└─ inner")
	// inner is nested, not a separate root
	assert.Equal(t, 1, strings.Count(report, "inner"))
}
