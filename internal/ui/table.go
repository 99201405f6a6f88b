// File: internal/ui/table.go

package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/obspull/obspull-cli/api/schemas"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiCyan  = "\x1b[36m"
)

// Score bands for colorization. Anything between failLimit and goodLimit
// renders uncolored.
const (
	failLimit  = 50
	goodLimit  = 70
	greatLimit = 85
)

func colorize(s, color string) string {
	return color + s + ansiReset
}

// RenderGrades writes the grade table to w. Placeholder cells pass
// through uncolored so missing data stays visually quiet.
func RenderGrades(w io.Writer, grades []schemas.CourseGrade) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCOURSE\tMIDTERM\tFINAL\tMAKEUP\tGRADE")
	for _, g := range grades {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			g.Code,
			g.Name,
			formatExam(g.Midterm),
			formatExam(g.Final),
			formatExam(g.Makeup),
			formatLetter(g.LetterGrade),
		)
	}
	tw.Flush()
}

// formatExam renders "score" plus an arrow against the class average:
// up when the score beats it, down otherwise.
func formatExam(e schemas.ExamStats) string {
	if e.Score == schemas.ScoreUnavailable || e.Score == "" {
		return schemas.ScoreUnavailable
	}
	out := colorizeScore(e.Score)
	score, sok := parseScore(e.Score)
	avg, aok := parseScore(e.ClassAverage)
	switch {
	case !sok || !aok:
		return out
	case score >= avg:
		return out + " " + colorize("↑", ansiGreen)
	default:
		return out + " " + colorize("↓", ansiRed)
	}
}

func colorizeScore(s string) string {
	v, ok := parseScore(s)
	if !ok {
		return s
	}
	switch {
	case v < failLimit:
		return colorize(s, ansiRed)
	case v >= greatLimit:
		return colorize(s, ansiGreen)
	case v >= goodLimit:
		return colorize(s, ansiCyan)
	default:
		return s
	}
}

func parseScore(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == schemas.ScoreUnavailable || s == schemas.ClassAverageUnknown {
		return 0, false
	}
	// The portal prints decimals with a comma.
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatLetter(letter string) string {
	switch letter {
	case "", "--":
		return "--"
	case "FF", "DZ", "YZ":
		return colorize(letter, ansiRed)
	default:
		return colorize(letter, ansiGreen)
	}
}
