// File: internal/auth/grades_test.go
package auth

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obspull/obspull-cli/api/schemas"
)

const gradesFixture = `
<html><body>
<div id="wrapper">
<table id="grd_not_listesi">
  <tr>
    <td>Dönem</td><td>Ders Kodu</td><td>Ders Adı</td><td></td>
    <td>Sınavlar</td><td></td><td>Harf Notu</td>
  </tr>
  <tr>
    <td>2024-1</td><td>MAT101</td><td>Matematik I</td><td></td>
    <td>Vize : 80 (Ort : 44,90) Final : 70 (Ort : 51) Büt : -</td>
    <td></td><td>BA</td>
  </tr>
  <tr>
    <td>2024-1</td><td>FIZ101</td><td>Fizik I</td><td></td>
    <td>Vize : 55 Final : - Büt : -</td>
    <td></td><td></td>
  </tr>
</table>
</div>
</body></html>`

func TestParseGradesTable(t *testing.T) {
	grades, found := ParseGradesTable(gradesFixture, "grd_not_listesi")
	require.True(t, found)
	require.Len(t, grades, 2)

	want := schemas.CourseGrade{
		Code: "MAT101",
		Name: "Matematik I",
		Midterm: schemas.ExamStats{
			Score:        "80",
			ClassAverage: "44,90",
		},
		Final: schemas.ExamStats{
			Score:        "70",
			ClassAverage: "51",
		},
		Makeup: schemas.ExamStats{
			Score:        schemas.ScoreUnavailable,
			ClassAverage: schemas.ClassAverageUnknown,
		},
		LetterGrade: "BA",
		TermID:      "2024-1",
	}
	if diff := cmp.Diff(want, grades[0]); diff != "" {
		t.Errorf("first course mismatch (-want +got):\n%s", diff)
	}

	// Second row: no averages, no final score, no letter yet.
	assert.Equal(t, "55", grades[1].Midterm.Score)
	assert.Equal(t, schemas.ClassAverageUnknown, grades[1].Midterm.ClassAverage)
	assert.Equal(t, schemas.ScoreUnavailable, grades[1].Final.Score)
	assert.Equal(t, "--", grades[1].LetterGrade)
}

func TestParseGradesTable_MissingTable(t *testing.T) {
	grades, found := ParseGradesTable("<html><body><p>no grades here</p></body></html>", "grd_not_listesi")
	assert.False(t, found)
	assert.Nil(t, grades)
}

func TestParseGradesTable_HeaderOnly(t *testing.T) {
	doc := `<table id="grd_not_listesi"><tr>
	  <td>Dönem</td><td>Kod</td><td>Ders Adı</td><td></td><td></td><td></td><td>Not</td>
	</tr></table>`

	grades, found := ParseGradesTable(doc, "grd_not_listesi")
	assert.True(t, found)
	assert.Empty(t, grades)
}

func TestParseGradesTable_ShortRowsSkipped(t *testing.T) {
	doc := `<table id="grd_not_listesi">
	  <tr><td>separator</td></tr>
	  <tr>
	    <td>2024-1</td><td>KIM101</td><td>Kimya I</td><td></td>
	    <td>Vize : 45 (Ort : 38)</td><td></td><td>FF</td>
	  </tr>
	</table>`

	grades, found := ParseGradesTable(doc, "grd_not_listesi")
	require.True(t, found)
	require.Len(t, grades, 1)
	assert.Equal(t, "KIM101", grades[0].Code)
	assert.Equal(t, "FF", grades[0].LetterGrade)
	assert.Equal(t, "45", grades[0].Midterm.Score)
	assert.Equal(t, "38", grades[0].Midterm.ClassAverage)
	assert.Equal(t, schemas.ScoreUnavailable, grades[0].Final.Score)
}

func TestParseGradesTable_MalformedHTMLStillParses(t *testing.T) {
	// html.Parse repairs broken markup; an unclosed cell must not
	// drop the row.
	doc := `<table id="grd_not_listesi"><tr>
	  <td>2024-2<td>BIL102<td>Programlama<td>
	  <td>Vize : 90 (Ort : 70) Final : 85 (Ort : 64) Büt : -<td><td>AA
	</tr></table>`

	grades, found := ParseGradesTable(doc, "grd_not_listesi")
	require.True(t, found)
	require.Len(t, grades, 1)
	assert.Equal(t, "Programlama", grades[0].Name)
	assert.Equal(t, "AA", grades[0].LetterGrade)
}
