// File: internal/ui/table_test.go

package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/obspull/obspull-cli/api/schemas"
)

func TestParseScore(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"85", 85, true},
		{"72,5", 72.5, true},
		{" 40 ", 40, true},
		{schemas.ScoreUnavailable, 0, false},
		{schemas.ClassAverageUnknown, 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseScore(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-9, "input %q", tc.in)
		}
	}
}

func TestColorizeScore(t *testing.T) {
	assert.Contains(t, colorizeScore("40"), ansiRed)
	assert.Contains(t, colorizeScore("90"), ansiGreen)
	assert.Contains(t, colorizeScore("75"), ansiCyan)
	assert.Equal(t, "60", colorizeScore("60"))
	assert.Equal(t, "n/a", colorizeScore("n/a"))
}

func TestFormatExam_Arrows(t *testing.T) {
	above := formatExam(schemas.ExamStats{Score: "90", ClassAverage: "60"})
	assert.Contains(t, above, "↑")

	below := formatExam(schemas.ExamStats{Score: "55", ClassAverage: "60"})
	assert.Contains(t, below, "↓")

	noAvg := formatExam(schemas.ExamStats{Score: "55", ClassAverage: schemas.ClassAverageUnknown})
	assert.NotContains(t, noAvg, "↑")
	assert.NotContains(t, noAvg, "↓")

	assert.Equal(t, schemas.ScoreUnavailable,
		formatExam(schemas.ExamStats{Score: schemas.ScoreUnavailable}))
}

func TestFormatLetter(t *testing.T) {
	assert.Contains(t, formatLetter("FF"), ansiRed)
	assert.Contains(t, formatLetter("DZ"), ansiRed)
	assert.Contains(t, formatLetter("AA"), ansiGreen)
	assert.Equal(t, "--", formatLetter(""))
	assert.Equal(t, "--", formatLetter("--"))
}

func TestRenderGrades(t *testing.T) {
	var buf bytes.Buffer
	RenderGrades(&buf, []schemas.CourseGrade{
		{
			Code:        "MAT101",
			Name:        "Calculus I",
			Midterm:     schemas.ExamStats{Score: "90", ClassAverage: "55"},
			Final:       schemas.ExamStats{Score: schemas.ScoreUnavailable},
			Makeup:      schemas.ExamStats{Score: schemas.ScoreUnavailable},
			LetterGrade: "AA",
		},
	})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "CODE"))
	assert.Contains(t, out, "MAT101")
	assert.Contains(t, out, "Calculus I")
	assert.Contains(t, out, "AA")
}
