// File: api/schemas/schemas.go
// Shared data model for the grade puller. These types cross package
// boundaries (captcha -> auth -> session -> ui) and carry no behavior
// beyond formatting.
package schemas

import "fmt"

// Placeholder values used when the portal has not published a score yet.
// The extractor reports these verbatim; it never fabricates a number.
const (
	ScoreUnavailable    = "-"
	ClassAverageUnknown = "?"
)

// ExamStats holds one exam column pair: the student's score and the
// class average, both as free-form display strings taken from the
// portal ("80", "44,90", or a placeholder).
type ExamStats struct {
	Score        string `json:"score"`
	ClassAverage string `json:"class_average"`
}

// CourseGrade is one row of the grades table, scoped to a single fetch.
type CourseGrade struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Midterm     ExamStats `json:"midterm"`
	Final       ExamStats `json:"final"`
	Makeup      ExamStats `json:"makeup"`
	LetterGrade string    `json:"letter_grade"`
	TermID      string    `json:"term_id"`
}

// Credential pairs a username with its secret for the duration of one
// login attempt. FromStore records whether the secret was loaded from
// the credential store, which decides cleanup on a credentials
// rejection and whether to offer persistence on success.
type Credential struct {
	Username  string
	Secret    string
	FromStore bool
}

// String redacts the secret. Credentials must never reach a log line,
// so the fmt representation only exposes the username.
func (c Credential) String() string {
	return fmt.Sprintf("Credential(%s)", c.Username)
}

// LoginOutcome is the terminal classification of one login attempt.
// Exactly one outcome is produced per attempt.
type LoginOutcome int

const (
	// OutcomeUnknown is the zero value; a finished attempt never
	// reports it.
	OutcomeUnknown LoginOutcome = iota
	// OutcomeSuccess: the portal navigated away from the login page.
	OutcomeSuccess
	// OutcomeCaptchaRejected: the portal reported the captcha answer
	// as wrong. Retryable with the same credentials.
	OutcomeCaptchaRejected
	// OutcomeCredentialsRejected: the portal reported the username or
	// password as wrong. Requires re-collecting credentials.
	OutcomeCredentialsRejected
	// OutcomeTimedOut: the poll budget ran out with no recognized
	// signal. Not retried automatically.
	OutcomeTimedOut
)

func (o LoginOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeCaptchaRejected:
		return "captcha_rejected"
	case OutcomeCredentialsRejected:
		return "credentials_rejected"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// AttemptResult is what one state machine run hands back to the
// session orchestrator. Grades is populated only on OutcomeSuccess.
type AttemptResult struct {
	Outcome LoginOutcome
	Grades  []CourseGrade
}
