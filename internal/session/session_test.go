// File: internal/session/session_test.go

package session

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/obspull/obspull-cli/api/schemas"
)

type fakeStore struct {
	secrets map[string]string
	deleted []string
	saved   map[string]string
}

func newFakeStore(secrets map[string]string) *fakeStore {
	if secrets == nil {
		secrets = map[string]string{}
	}
	return &fakeStore{secrets: secrets, saved: map[string]string{}}
}

func (s *fakeStore) Load(username string) (string, bool, error) {
	v, ok := s.secrets[username]
	return v, ok, nil
}

func (s *fakeStore) Save(username, secret string) error {
	s.secrets[username] = secret
	s.saved[username] = secret
	return nil
}

func (s *fakeStore) Delete(username string) error {
	delete(s.secrets, username)
	s.deleted = append(s.deleted, username)
	return nil
}

func (s *fakeStore) List() ([]string, error) {
	var users []string
	for u := range s.secrets {
		users = append(users, u)
	}
	return users, nil
}

// fakePrompter replays scripted answers in order.
type fakePrompter struct {
	t         *testing.T
	usernames []string
	passwords []string
	confirms  []bool
	notices   []string
}

func (p *fakePrompter) PromptUsername() (string, error) {
	require.NotEmpty(p.t, p.usernames, "unexpected username prompt")
	v := p.usernames[0]
	p.usernames = p.usernames[1:]
	return v, nil
}

func (p *fakePrompter) PromptPassword() (string, error) {
	require.NotEmpty(p.t, p.passwords, "unexpected password prompt")
	v := p.passwords[0]
	p.passwords = p.passwords[1:]
	return v, nil
}

func (p *fakePrompter) Confirm(string, bool) (bool, error) {
	require.NotEmpty(p.t, p.confirms, "unexpected confirm prompt")
	v := p.confirms[0]
	p.confirms = p.confirms[1:]
	return v, nil
}

func (p *fakePrompter) Notify(msg string) { p.notices = append(p.notices, msg) }

// fakeMachine returns scripted results per call.
type fakeMachine struct {
	results []schemas.AttemptResult
	errs    []error
	creds   []schemas.Credential
}

func (m *fakeMachine) Attempt(_ context.Context, cred schemas.Credential) (schemas.AttemptResult, error) {
	i := len(m.creds)
	m.creds = append(m.creds, cred)
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	var res schemas.AttemptResult
	if i < len(m.results) {
		res = m.results[i]
	}
	return res, err
}

func newOrchestrator(m Attempter, st schemas.CredentialStore, p Prompter) (*Orchestrator, *bytes.Buffer) {
	o := NewOrchestrator(m, st, p, zap.NewNop())
	var buf bytes.Buffer
	o.out = &buf
	return o, &buf
}

func TestRun_SuccessWithPromptedCredential(t *testing.T) {
	machine := &fakeMachine{results: []schemas.AttemptResult{{
		Outcome: schemas.OutcomeSuccess,
		Grades:  []schemas.CourseGrade{{Code: "MAT101", Name: "Calculus I"}},
	}}}
	store := newFakeStore(nil)
	prompt := &fakePrompter{
		t:         t,
		usernames: []string{"20201234"},
		passwords: []string{"hunter2"},
		confirms:  []bool{true}, // remember credentials
	}
	o, out := newOrchestrator(machine, store, prompt)

	require.NoError(t, o.Run(context.Background()))
	assert.Contains(t, out.String(), "MAT101")
	assert.Equal(t, "hunter2", store.saved["20201234"])
	require.Len(t, machine.creds, 1)
	assert.False(t, machine.creds[0].FromStore)
}

func TestRun_StoredCredentialAccepted(t *testing.T) {
	machine := &fakeMachine{results: []schemas.AttemptResult{{
		Outcome: schemas.OutcomeSuccess,
		Grades:  []schemas.CourseGrade{{Code: "FIZ101"}},
	}}}
	store := newFakeStore(map[string]string{"20201234": "hunter2"})
	prompt := &fakePrompter{
		t:        t,
		confirms: []bool{true}, // use stored profile
	}
	o, _ := newOrchestrator(machine, store, prompt)

	require.NoError(t, o.Run(context.Background()))
	require.Len(t, machine.creds, 1)
	assert.True(t, machine.creds[0].FromStore)
	assert.Equal(t, "hunter2", machine.creds[0].Secret)
	// No save prompt for stored credentials.
	assert.Empty(t, store.saved)
}

func TestRun_StoredCredentialDeclinedIsDeleted(t *testing.T) {
	machine := &fakeMachine{results: []schemas.AttemptResult{{Outcome: schemas.OutcomeSuccess}}}
	store := newFakeStore(map[string]string{"stale-user": "old"})
	prompt := &fakePrompter{
		t:         t,
		usernames: []string{"20209999"},
		passwords: []string{"fresh"},
		confirms:  []bool{false, false}, // decline profile, decline save
	}
	o, _ := newOrchestrator(machine, store, prompt)

	require.NoError(t, o.Run(context.Background()))
	assert.Contains(t, store.deleted, "stale-user")
	require.Len(t, machine.creds, 1)
	assert.Equal(t, "20209999", machine.creds[0].Username)
}

func TestRun_CaptchaRejectedRetriesSameCredential(t *testing.T) {
	machine := &fakeMachine{results: []schemas.AttemptResult{
		{Outcome: schemas.OutcomeCaptchaRejected},
		{Outcome: schemas.OutcomeSuccess},
	}}
	store := newFakeStore(nil)
	prompt := &fakePrompter{
		t:         t,
		usernames: []string{"20201234"},
		passwords: []string{"hunter2"},
		confirms:  []bool{true, false}, // retry, then decline save
	}
	o, _ := newOrchestrator(machine, store, prompt)

	require.NoError(t, o.Run(context.Background()))
	require.Len(t, machine.creds, 2)
	assert.Equal(t, machine.creds[0], machine.creds[1])
}

func TestRun_CaptchaRejectedDeclineEnds(t *testing.T) {
	machine := &fakeMachine{results: []schemas.AttemptResult{{Outcome: schemas.OutcomeCaptchaRejected}}}
	store := newFakeStore(nil)
	prompt := &fakePrompter{
		t:         t,
		usernames: []string{"20201234"},
		passwords: []string{"hunter2"},
		confirms:  []bool{false}, // no retry
	}
	o, _ := newOrchestrator(machine, store, prompt)

	require.NoError(t, o.Run(context.Background()))
	assert.Len(t, machine.creds, 1)
}

func TestRun_CredentialsRejectedDropsStoredAndReprompts(t *testing.T) {
	machine := &fakeMachine{results: []schemas.AttemptResult{
		{Outcome: schemas.OutcomeCredentialsRejected},
		{Outcome: schemas.OutcomeSuccess},
	}}
	store := newFakeStore(map[string]string{"20201234": "expired"})
	prompt := &fakePrompter{
		t:         t,
		usernames: []string{"20201234"},
		passwords: []string{"newpass"},
		confirms:  []bool{true, false}, // use stored profile, decline save
	}
	o, _ := newOrchestrator(machine, store, prompt)

	require.NoError(t, o.Run(context.Background()))
	assert.Contains(t, store.deleted, "20201234")
	require.Len(t, machine.creds, 2)
	assert.True(t, machine.creds[0].FromStore)
	assert.False(t, machine.creds[1].FromStore)
	assert.Equal(t, "newpass", machine.creds[1].Secret)
}

func TestRun_TimedOutSurfacesError(t *testing.T) {
	machine := &fakeMachine{results: []schemas.AttemptResult{{Outcome: schemas.OutcomeTimedOut}}}
	store := newFakeStore(nil)
	prompt := &fakePrompter{
		t:         t,
		usernames: []string{"20201234"},
		passwords: []string{"hunter2"},
	}
	o, _ := newOrchestrator(machine, store, prompt)

	assert.Error(t, o.Run(context.Background()))
}

func TestRun_AttemptErrorPropagates(t *testing.T) {
	boom := errors.New("browser crashed")
	machine := &fakeMachine{errs: []error{boom}}
	store := newFakeStore(nil)
	prompt := &fakePrompter{
		t:         t,
		usernames: []string{"20201234"},
		passwords: []string{"hunter2"},
	}
	o, _ := newOrchestrator(machine, store, prompt)

	assert.ErrorIs(t, o.Run(context.Background()), boom)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o, _ := newOrchestrator(&fakeMachine{}, newFakeStore(nil), &fakePrompter{t: t})
	assert.ErrorIs(t, o.Run(ctx), context.Canceled)
}
