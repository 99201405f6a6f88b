// File: internal/session/session.go

// Package session drives the interactive flow: pick a credential,
// attempt the login, and react to the outcome. It owns no browser or
// crypto detail; those live behind the auth machine and the store.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/obspull/obspull-cli/api/schemas"
	"github.com/obspull/obspull-cli/internal/ui"
)

// Attempter runs one full login attempt with the given credential.
type Attempter interface {
	Attempt(ctx context.Context, cred schemas.Credential) (schemas.AttemptResult, error)
}

// Prompter is the slice of the terminal the orchestrator needs.
type Prompter interface {
	PromptUsername() (string, error)
	PromptPassword() (string, error)
	Confirm(question string, def bool) (bool, error)
	Notify(msg string)
}

// Orchestrator loops credentials and attempts until grades are shown
// or the user gives up.
type Orchestrator struct {
	machine Attempter
	store   schemas.CredentialStore
	prompt  Prompter
	out     io.Writer
	logger  *zap.Logger
}

func NewOrchestrator(machine Attempter, store schemas.CredentialStore, prompt Prompter, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		machine: machine,
		store:   store,
		prompt:  prompt,
		out:     os.Stdout,
		logger:  logger,
	}
}

// Run executes the credential loop. It returns nil once grades have
// been displayed or the user declined to continue.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cred, err := o.obtainCredential(ctx)
		if err != nil {
			return err
		}

		done, err := o.attemptLoop(ctx, cred)
		if err != nil || done {
			return err
		}
		// Credentials were rejected; fall through to ask for a new
		// credential.
	}
}

// obtainCredential prefers a stored profile when the user accepts it,
// otherwise prompts for username and password.
func (o *Orchestrator) obtainCredential(_ context.Context) (schemas.Credential, error) {
	if cred, ok, err := o.storedCredential(); err != nil {
		o.logger.Warn("Stored credential unavailable", zap.Error(err))
	} else if ok {
		return cred, nil
	}

	username, err := o.prompt.PromptUsername()
	if err != nil {
		return schemas.Credential{}, err
	}
	secret, err := o.prompt.PromptPassword()
	if err != nil {
		return schemas.Credential{}, err
	}
	return schemas.Credential{Username: username, Secret: secret}, nil
}

func (o *Orchestrator) storedCredential() (schemas.Credential, bool, error) {
	users, err := o.store.List()
	if err != nil || len(users) == 0 {
		return schemas.Credential{}, false, err
	}
	username := users[0]

	use, err := o.prompt.Confirm(fmt.Sprintf("Log in as %s?", username), true)
	if err != nil {
		return schemas.Credential{}, false, err
	}
	if !use {
		// A declined profile is a stale one.
		if err := o.store.Delete(username); err != nil {
			o.logger.Warn("Failed to delete profile", zap.String("username", username), zap.Error(err))
		}
		return schemas.Credential{}, false, nil
	}

	secret, ok, err := o.store.Load(username)
	if err != nil || !ok {
		return schemas.Credential{}, false, err
	}
	return schemas.Credential{Username: username, Secret: secret, FromStore: true}, true, nil
}

// attemptLoop retries a single credential through captcha failures.
// done reports whether the session is over; done=false means the
// caller should collect a fresh credential.
func (o *Orchestrator) attemptLoop(ctx context.Context, cred schemas.Credential) (bool, error) {
	for {
		res, err := o.machine.Attempt(ctx, cred)
		if err != nil {
			return true, err
		}

		switch res.Outcome {
		case schemas.OutcomeSuccess:
			return true, o.finishSuccess(res, cred)

		case schemas.OutcomeCaptchaRejected:
			o.prompt.Notify("The captcha answer was rejected.")
			retry, err := o.prompt.Confirm("Try again?", true)
			if err != nil {
				return true, err
			}
			if !retry {
				return true, nil
			}

		case schemas.OutcomeCredentialsRejected:
			o.prompt.Notify("The portal rejected the credentials.")
			if cred.FromStore {
				if err := o.store.Delete(cred.Username); err != nil {
					o.logger.Warn("Failed to delete profile",
						zap.String("username", cred.Username), zap.Error(err))
				}
			}
			return false, nil

		case schemas.OutcomeTimedOut:
			return true, errors.New("the portal did not answer the login attempt in time")

		default:
			return true, fmt.Errorf("login ended in unexpected state %s", res.Outcome)
		}
	}
}

func (o *Orchestrator) finishSuccess(res schemas.AttemptResult, cred schemas.Credential) error {
	if len(res.Grades) == 0 {
		o.prompt.Notify("Logged in, but no grades were published yet.")
	} else {
		ui.RenderGrades(o.out, res.Grades)
	}

	if !cred.FromStore {
		save, err := o.prompt.Confirm("Remember these credentials on this machine?", false)
		if err != nil {
			return err
		}
		if save {
			if err := o.store.Save(cred.Username, cred.Secret); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}
			o.prompt.Notify("Saved.")
		}
	}
	return nil
}
