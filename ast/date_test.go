package ast

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestDateRoundTrip(t *testing.T) {
	tests := []struct {
		rendered string
		date     *Date
	}{
		{"1970-01-01", NewDate(1970, 1, 1)},
		{"2024-12-31 08:30", NewDateMinute(2024, 12, 31, 8, 30)},
		{"2024-12-31 08:30:59", NewDateSecond(2024, 12, 31, 8, 30, 59)},
	}

	for _, tt := range tests {
		t.Run(tt.rendered, func(t *testing.T) {
			assert.Equal(t, tt.rendered, tt.date.String())
		})
	}
}

func TestDateWithTime(t *testing.T) {
	d := NewDate(2024, 3, 5)

	upgraded, err := d.WithTime("14:30")
	assert.NoError(t, err)
	assert.Equal(t, PrecisionMinute, upgraded.Precision())
	assert.Equal(t, "14:30", upgraded.TimeOnly())

	upgraded, err = d.WithTime("14:30:15")
	assert.NoError(t, err)
	assert.Equal(t, PrecisionSecond, upgraded.Precision())

	_, err = d.WithTime("not-a-time")
	assert.Error(t, err)
}

func TestDateInTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Hong_Kong")
	assert.NoError(t, err)

	d := NewDateMinute(2024, 3, 5, 14, 30)
	projected := d.InTimezone(loc)
	assert.Equal(t, 14, projected.Hour())
	assert.Equal(t, "Asia/Hong_Kong", projected.Location().String())
}

func TestDateInterval(t *testing.T) {
	assert.Equal(t, uint32(202312), NewDate(2023, 12, 5).Interval())
	assert.Equal(t, uint32(197001), NewDate(1970, 1, 1).Interval())
}
