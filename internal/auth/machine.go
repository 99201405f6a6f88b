// File: internal/auth/machine.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/obspull/obspull-cli/api/schemas"
	"github.com/obspull/obspull-cli/internal/config"
)

// ErrResultsNotFound reports that login succeeded but no grades table
// was found in the page or any sub-frame within the discovery budget.
// Fatal for the run; never retried.
var ErrResultsNotFound = errors.New("grades table not found after login")

// Machine runs login attempts. One Attempt call acquires one page
// session, drives it to a terminal outcome, and releases it on every
// exit path. The machine itself holds no per-attempt state and can be
// reused across attempts.
type Machine struct {
	launcher schemas.Launcher
	solver   schemas.CaptchaSolver
	prompter schemas.CaptchaPrompter
	matcher  SignalClassifier

	portal config.PortalConfig
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewMachine wires a Machine. solver may be nil when no classifier is
// available; the human prompter then handles every captcha.
func NewMachine(
	launcher schemas.Launcher,
	solver schemas.CaptchaSolver,
	prompter schemas.CaptchaPrompter,
	matcher SignalClassifier,
	portal config.PortalConfig,
	cfg config.AuthConfig,
	logger *zap.Logger,
) *Machine {
	return &Machine{
		launcher: launcher,
		solver:   solver,
		prompter: prompter,
		matcher:  matcher,
		portal:   portal,
		cfg:      cfg,
		logger:   logger.Named("auth"),
	}
}

// Attempt performs one full login attempt with cred and classifies its
// outcome. Grades are fetched and returned only on success. Errors are
// reserved for unexpected failures (page breakage, ErrResultsNotFound);
// the recognized rejections come back as outcomes, not errors.
func (m *Machine) Attempt(ctx context.Context, cred schemas.Credential) (schemas.AttemptResult, error) {
	log := m.logger.With(zap.String("attempt_id", uuid.New().String()))
	var result schemas.AttemptResult

	page, err := m.launcher.Launch(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to acquire browser session: %w", err)
	}
	// The page is released on every exit path, including panics in the
	// steps below. Close uses a fresh context: the attempt context may
	// already be done, and cleanup must still run.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := page.Close(closeCtx); cerr != nil {
			log.Warn("Failed to close browser session.", zap.Error(cerr))
		}
	}()

	if err := m.submitCredentials(ctx, page, cred, log); err != nil {
		return result, err
	}
	if err := m.handleCaptcha(ctx, page, log); err != nil {
		return result, err
	}
	if err := m.submitLogin(ctx, page, log); err != nil {
		return result, err
	}

	outcome, err := m.awaitResult(ctx, page, log)
	if err != nil {
		return result, err
	}
	result.Outcome = outcome
	log.Info("Login attempt classified.", zap.Stringer("outcome", outcome))

	if outcome != schemas.OutcomeSuccess {
		return result, nil
	}

	grades, err := m.fetchGrades(ctx, page, log)
	if err != nil {
		return result, err
	}
	result.Grades = grades
	return result, nil
}

// submitCredentials navigates to the login surface and fills both
// fields. The password input ships readonly until the guard is
// removed, a quirk of the portal this step works around.
func (m *Machine) submitCredentials(ctx context.Context, page schemas.PageSession, cred schemas.Credential, log *zap.Logger) error {
	log.Info("Navigating to login page.")
	if err := page.Navigate(ctx, m.portal.LoginURL); err != nil {
		return err
	}

	sel := m.portal.Selectors
	if err := page.Fill(ctx, sel.Username, cred.Username); err != nil {
		return fmt.Errorf("failed to fill username: %w", err)
	}

	if err := page.Click(ctx, sel.Password, true); err != nil {
		return fmt.Errorf("failed to focus password field: %w", err)
	}
	if err := page.RemoveReadonly(ctx, sel.Password); err != nil {
		return fmt.Errorf("failed to unlock password field: %w", err)
	}
	if err := page.Fill(ctx, sel.Password, cred.Secret); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	return nil
}

// handleCaptcha captures the captcha image if one is present, obtains
// an answer (solver first, human fallback), and fills it in. The
// captured image is a temporary artifact and is deleted once the
// answer is in hand.
func (m *Machine) handleCaptcha(ctx context.Context, page schemas.PageSession, log *zap.Logger) error {
	sel := m.portal.Selectors

	n, err := page.Count(ctx, sel.CaptchaImage)
	if err != nil {
		return fmt.Errorf("failed to check for captcha element: %w", err)
	}
	if n == 0 {
		log.Debug("No captcha element present; skipping to submission.")
		return nil
	}

	tmp, err := os.CreateTemp("", "captcha-*.png")
	if err != nil {
		return fmt.Errorf("failed to create captcha temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := page.ScreenshotElement(ctx, sel.CaptchaImage, tmpPath); err != nil {
		return fmt.Errorf("failed to capture captcha image: %w", err)
	}

	answer, solved := "", false
	if m.solver != nil {
		answer, solved = m.solver.SolveFile(tmpPath)
	}
	if solved {
		log.Info("Captcha solved automatically.")
	} else {
		log.Info("Captcha solver unavailable or unsure; asking the operator.")
		answer, err = m.prompter.RequestCaptchaInput(tmpPath)
		if err != nil {
			return fmt.Errorf("captcha input failed: %w", err)
		}
	}

	if err := page.Fill(ctx, sel.CaptchaField, answer); err != nil {
		return fmt.Errorf("failed to fill captcha answer: %w", err)
	}
	// The portal validates the code on blur; clicking elsewhere
	// triggers it.
	if err := page.Click(ctx, "body", true); err != nil {
		log.Debug("Blur click failed.", zap.Error(err))
	}
	return nil
}

// submitLogin waits for the login control to enable, then clicks it.
// The enabled/disabled toggle is not perfectly reliable, so a stuck
// button is submitted anyway after the bounded wait rather than
// failing the attempt outright.
func (m *Machine) submitLogin(ctx context.Context, page schemas.PageSession, log *zap.Logger) error {
	sel := m.portal.Selectors

	if err := page.WaitVisible(ctx, sel.LoginEnabled, m.cfg.ButtonEnableWait); err != nil {
		log.Warn("Login button still looks disabled; submitting anyway.", zap.Error(err))
	}
	if err := page.Click(ctx, sel.LoginButton, true); err != nil {
		return fmt.Errorf("failed to click login button: %w", err)
	}
	log.Info("Credentials submitted; waiting for the portal's verdict.")
	return nil
}

// awaitResult polls the page at a fixed interval, classifying each
// observation in fixed order: navigation away from the login URL means
// success; then the body text, then any popup, are matched against
// its surface's rejection phrases (captcha before credentials).
// Transient read errors are swallowed and polling continues. An
// exhausted budget on the login URL is a timeout.
func (m *Machine) awaitResult(ctx context.Context, page schemas.PageSession, log *zap.Logger) (schemas.LoginOutcome, error) {
	limiter := rate.NewLimiter(rate.Every(m.cfg.PollInterval), 1)

	for i := 0; i < m.cfg.PollBudget; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return schemas.OutcomeUnknown, err
		}

		url, err := page.CurrentURL(ctx)
		if err != nil {
			// Page mid-navigation; try again next cycle.
			log.Debug("Could not read URL during polling.", zap.Error(err))
			continue
		}
		if !strings.Contains(strings.ToLower(url), m.portal.LoginURLMarker) {
			log.Debug("URL changed; treating login as successful.", zap.String("url", url))
			return schemas.OutcomeSuccess, nil
		}

		body, err := page.InnerText(ctx, "body")
		if err != nil {
			log.Debug("Could not read body during polling.", zap.Error(err))
			continue
		}
		switch m.matcher.ClassifyBody(body) {
		case SignalCaptchaRejected:
			return schemas.OutcomeCaptchaRejected, nil
		case SignalCredentialsRejected:
			return schemas.OutcomeCredentialsRejected, nil
		}

		// The portal sometimes reports through a modal instead of the
		// page body; the popup has its own, looser phrase policy.
		if n, err := page.Count(ctx, m.portal.Selectors.PopupBody); err == nil && n > 0 {
			popup, err := page.InnerText(ctx, m.portal.Selectors.PopupBody)
			if err != nil {
				continue
			}
			switch m.matcher.ClassifyPopup(popup) {
			case SignalCaptchaRejected:
				return schemas.OutcomeCaptchaRejected, nil
			case SignalCredentialsRejected:
				return schemas.OutcomeCredentialsRejected, nil
			}
		}
	}

	log.Warn("Poll budget exhausted without a recognized signal.")
	return schemas.OutcomeTimedOut, nil
}

// fetchGrades walks from the landing page to the grades table: click
// the results link, dismiss the confirmation popup if one appears,
// then search the top document and each sub-frame for the table, first
// match wins. The walk still holds the attempt's page session.
func (m *Machine) fetchGrades(ctx context.Context, page schemas.PageSession, log *zap.Logger) ([]schemas.CourseGrade, error) {
	sel := m.portal.Selectors

	if err := m.clickResultsLink(ctx, page, log); err != nil {
		return nil, err
	}

	// Confirmation popup, if any. Best effort: a missing popup is the
	// common case, not a failure.
	if n, err := page.Count(ctx, sel.PopupConfirm); err == nil && n > 0 {
		dismissCtx, cancel := context.WithTimeout(ctx, m.cfg.PopupDismissWait)
		if err := page.Click(dismissCtx, sel.PopupConfirm, false); err != nil {
			log.Debug("Could not dismiss popup.", zap.Error(err))
		}
		cancel()
	}

	grades, err := m.discoverTable(ctx, page, log)
	if err != nil {
		return nil, err
	}
	log.Info("Grades extracted.", zap.Int("courses", len(grades)))
	return grades, nil
}

// clickResultsLink retries the native link click until it lands or the
// bounded wait expires; the menu renders asynchronously after login.
func (m *Machine) clickResultsLink(ctx context.Context, page schemas.PageSession, log *zap.Logger) error {
	deadline := time.Now().Add(m.cfg.ResultsLinkWait)
	limiter := rate.NewLimiter(rate.Every(m.cfg.PollInterval), 1)

	for {
		if err := page.ClickByText(ctx, m.portal.ResultsLinkText); err == nil {
			return nil
		} else if time.Now().After(deadline) {
			return fmt.Errorf("results link %q never appeared: %w", m.portal.ResultsLinkText, err)
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
}

// discoverTable polls frame snapshots until one of them contains the
// grades table. The top-level document is checked before sub-frames on
// every cycle.
func (m *Machine) discoverTable(ctx context.Context, page schemas.PageSession, log *zap.Logger) ([]schemas.CourseGrade, error) {
	deadline := time.Now().Add(m.cfg.TableDiscoverWait)
	limiter := rate.NewLimiter(rate.Every(m.cfg.PollInterval), 1)

	for {
		docs, err := page.FrameDocuments(ctx)
		if err != nil {
			log.Debug("Frame snapshot failed.", zap.Error(err))
		}
		for _, doc := range docs {
			grades, found := ParseGradesTable(doc.HTML, m.portal.Selectors.GradesTableID)
			if found {
				return grades, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, ErrResultsNotFound
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
}
