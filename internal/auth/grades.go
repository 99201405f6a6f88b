// File: internal/auth/grades.go
package auth

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/obspull/obspull-cli/api/schemas"
)

// Grades grid column layout, as rendered by the portal:
// 0 term id, 1 course code, 2 course name, 4 exam summary text,
// 6 letter grade. Other columns carry controls and are ignored.
const (
	colTerm   = 0
	colCode   = 1
	colName   = 2
	colExams  = 4
	colLetter = 6
	minCells  = 7
)

// Exam summary cells read like
// "Vize : 80 (Ort : 44,90) Final : 70 (Ort : 51) Büt : -".
var (
	midtermRe = regexp.MustCompile(`Vize\s*:\s*([0-9.,-]+)(?:\s*\(Ort\s*:\s*([0-9.,]+)\))?`)
	finalRe   = regexp.MustCompile(`Final\s*:\s*([0-9.,-]+)(?:\s*\(Ort\s*:\s*([0-9.,]+)\))?`)
	makeupRe  = regexp.MustCompile(`Büt\s*:\s*([0-9.,-]+)(?:\s*\(Ort\s*:\s*([0-9.,]+)\))?`)
)

// ParseGradesTable extracts one CourseGrade per data row from the
// table with id tableID inside doc. found reports whether the table
// exists at all; an existing table with no data rows yields an empty
// slice and found=true. Header and separator rows are skipped: they
// have an empty course name or carry the column label instead of a
// course.
func ParseGradesTable(doc, tableID string) (grades []schemas.CourseGrade, found bool) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, false
	}

	table := findByID(root, tableID)
	if table == nil {
		return nil, false
	}

	for _, row := range findAll(table, "tr") {
		cells := findAll(row, "td")
		if len(cells) < minCells {
			continue
		}

		name := strings.TrimSpace(nodeText(cells[colName]))
		if name == "" || strings.Contains(name, "Ders Adı") {
			continue
		}

		midterm, final, makeup := parseExamSummary(nodeText(cells[colExams]))

		letter := strings.TrimSpace(nodeText(cells[colLetter]))
		if letter == "" {
			letter = "--"
		}

		grades = append(grades, schemas.CourseGrade{
			Code:        strings.TrimSpace(nodeText(cells[colCode])),
			Name:        name,
			Midterm:     midterm,
			Final:       final,
			Makeup:      makeup,
			LetterGrade: letter,
			TermID:      strings.TrimSpace(nodeText(cells[colTerm])),
		})
	}
	return grades, true
}

// parseExamSummary pulls the three labeled exam entries out of the
// summary cell. A missing entry or score reports the placeholder; the
// parser never invents a number.
func parseExamSummary(text string) (midterm, final, makeup schemas.ExamStats) {
	return examFrom(midtermRe, text), examFrom(finalRe, text), examFrom(makeupRe, text)
}

func examFrom(re *regexp.Regexp, text string) schemas.ExamStats {
	stats := schemas.ExamStats{
		Score:        schemas.ScoreUnavailable,
		ClassAverage: schemas.ClassAverageUnknown,
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return stats
	}
	if score := strings.TrimSpace(m[1]); score != "" && score != "-" {
		stats.Score = score
	}
	if len(m) > 2 {
		if avg := strings.TrimSpace(m[2]); avg != "" {
			stats.ClassAverage = avg
		}
	}
	return stats
}

// findByID walks the tree depth-first for the node with the given id.
func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// findAll collects descendant elements with the given tag, in document
// order.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// nodeText concatenates all text content under n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
