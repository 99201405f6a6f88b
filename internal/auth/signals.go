// File: internal/auth/signals.go

// Package auth drives one login attempt against the portal: submit
// credentials, solve or delegate the captcha, poll the page surface
// until the outcome is known, and on success extract the grades table.
package auth

import (
	"strings"

	"github.com/obspull/obspull-cli/internal/config"
)

// Signal is what one piece of page text tells us about the attempt.
type Signal int

const (
	SignalNone Signal = iota
	SignalCaptchaRejected
	SignalCredentialsRejected
)

// SignalClassifier maps page text to a rejection signal. The portal
// has no structured API; classification is substring matching against
// its error copy, which is fragile to text changes. Keeping it behind
// an interface makes the matching policy replaceable without touching
// the state machine. The page body and the popup carry different
// error copy, so each surface has its own method.
type SignalClassifier interface {
	ClassifyBody(text string) Signal
	ClassifyPopup(text string) Signal
}

// PhraseMatcher classifies by the configured phrase lists. On each
// surface the captcha check runs first: when text matches both
// patterns, a captcha failure wins, because resubmitting a fresh
// captcha is the cheaper recovery and the portal shows the captcha
// message for that case.
type PhraseMatcher struct {
	bodyCaptchaPhrases  []string
	popupCaptchaPhrases []string
	subjectWords        []string
	rejectWord          string
}

var _ SignalClassifier = (*PhraseMatcher)(nil)

// NewPhraseMatcher builds a matcher from the portal config. Phrases
// are matched case-insensitively against lowercased text.
func NewPhraseMatcher(cfg config.PortalConfig) *PhraseMatcher {
	lower := func(in []string) []string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = strings.ToLower(s)
		}
		return out
	}
	return &PhraseMatcher{
		bodyCaptchaPhrases:  lower(cfg.BodyCaptchaPhrases),
		popupCaptchaPhrases: lower(cfg.PopupCaptchaPhrases),
		subjectWords:        lower(cfg.CredentialHints.SubjectWords),
		rejectWord:          strings.ToLower(cfg.CredentialHints.RejectWord),
	}
}

// ClassifyBody matches the page body. The login form's own static
// labels live in the body ("Güvenlik Kodu", "Şifre"), so body matching
// demands the full error phrases: the configured captcha phrases, or a
// subject word together with the reject word.
func (m *PhraseMatcher) ClassifyBody(text string) Signal {
	body := strings.ToLower(text)
	if body == "" {
		return SignalNone
	}

	if matchesAny(body, m.bodyCaptchaPhrases) {
		return SignalCaptchaRejected
	}
	if m.rejectWord != "" && strings.Contains(body, m.rejectWord) &&
		matchesAny(body, m.subjectWords) {
		return SignalCredentialsRejected
	}
	return SignalNone
}

// ClassifyPopup matches the modal text. A popup only appears to report
// a failure, so looser patterns apply: the popup captcha phrases, or a
// subject word alone without the reject word.
func (m *PhraseMatcher) ClassifyPopup(text string) Signal {
	popup := strings.ToLower(text)
	if popup == "" {
		return SignalNone
	}

	if matchesAny(popup, m.popupCaptchaPhrases) {
		return SignalCaptchaRejected
	}
	if matchesAny(popup, m.subjectWords) {
		return SignalCredentialsRejected
	}
	return SignalNone
}

func matchesAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
