// File: internal/ui/terminal.go

// Package ui owns everything the user sees on the terminal: prompts,
// the captcha hand-off, and the rendered grade table. Prompts write to
// stderr and read from stdin so stdout stays clean for the table.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/obspull/obspull-cli/api/schemas"
)

const banner = `
 ┌────────────────────────────────────┐
 │   obspull · OBS not sorgulayıcı    │
 └────────────────────────────────────┘
`

// Terminal implements the interactive prompts against real stdio.
type Terminal struct {
	in     *bufio.Reader
	out    io.Writer
	logger *zap.Logger
}

var _ schemas.CaptchaPrompter = (*Terminal)(nil)

func NewTerminal(logger *zap.Logger) *Terminal {
	return &Terminal{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stderr,
		logger: logger,
	}
}

// Banner prints the startup banner once per run.
func (t *Terminal) Banner() {
	fmt.Fprintln(t.out, colorize(banner, ansiCyan))
}

// PromptUsername reads a student number. Leading and trailing
// whitespace is stripped; empty input re-prompts.
func (t *Terminal) PromptUsername() (string, error) {
	for {
		fmt.Fprint(t.out, "Student number: ")
		line, err := t.in.ReadString('\n')
		if err != nil {
			return "", err
		}
		if v := strings.TrimSpace(line); v != "" {
			return v, nil
		}
	}
}

// PromptPassword reads a password without echo when stdin is a
// terminal, falling back to plain line input when it is not (pipes,
// CI).
func (t *Terminal) PromptPassword() (string, error) {
	fmt.Fprint(t.out, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := t.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm asks a yes/no question. Empty input takes the default.
func (t *Terminal) Confirm(question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		fmt.Fprintf(t.out, "%s %s ", question, hint)
		line, err := t.in.ReadString('\n')
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// Notify prints a one-line status message.
func (t *Terminal) Notify(msg string) {
	fmt.Fprintln(t.out, msg)
}

// RequestCaptchaInput opens the captcha image in the platform viewer
// and reads the answer the user types. A viewer failure is not fatal;
// the path is printed so the user can open it by hand.
func (t *Terminal) RequestCaptchaInput(imagePath string) (string, error) {
	if err := openImage(imagePath); err != nil {
		t.logger.Debug("Image viewer unavailable", zap.Error(err))
		fmt.Fprintf(t.out, "Open the captcha image yourself: %s\n", imagePath)
	}
	for {
		fmt.Fprint(t.out, "Captcha answer: ")
		line, err := t.in.ReadString('\n')
		if err != nil {
			return "", err
		}
		if v := strings.TrimSpace(line); v != "" {
			return v, nil
		}
	}
}

func openImage(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}
