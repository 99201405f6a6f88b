// File: api/schemas/interfaces.go
package schemas

import (
	"context"
	"time"
)

// FrameDocument is a snapshot of one document on the page surface: the
// top-level document or a same-origin sub-frame. HTML is the serialized
// document at capture time; the auth layer parses it without going back
// to the browser.
type FrameDocument struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// PageSession is the browser collaborator surface the auth state
// machine drives. It is deliberately narrow: navigate, fill, click,
// wait, read, screenshot, enumerate frames. The core neither knows nor
// cares how these are implemented.
//
// All methods honor ctx cancellation. Selector semantics are CSS.
type PageSession interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Fill(ctx context.Context, selector, value string) error
	// Click dispatches a click on the first match. force clicks via the
	// DOM even when an overlay would swallow the event.
	Click(ctx context.Context, selector string, force bool) error
	// ClickByText clicks the first anchor whose text contains text.
	ClickByText(ctx context.Context, text string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Count(ctx context.Context, selector string) (int, error)
	InnerText(ctx context.Context, selector string) (string, error)
	// RemoveReadonly strips a readonly guard from an input so Fill can
	// reach it. A quirk of the target portal's password field.
	RemoveReadonly(ctx context.Context, selector string) error
	ScreenshotElement(ctx context.Context, selector, path string) error
	// FrameDocuments returns the top-level document followed by each
	// same-origin sub-frame document, in DOM order.
	FrameDocuments(ctx context.Context) ([]FrameDocument, error)
	Close(ctx context.Context) error
}

// Launcher hands out fresh page sessions. Each login attempt acquires
// exactly one session and releases it before reporting its result;
// retries get a brand new session.
type Launcher interface {
	Launch(ctx context.Context) (PageSession, error)
	Shutdown(ctx context.Context) error
}

// CredentialStore persists secrets between runs. List returns
// usernames only; no operation exposes a secret except Load.
type CredentialStore interface {
	Load(username string) (secret string, ok bool, err error)
	Save(username, secret string) error
	Delete(username string) error
	List() ([]string, error)
}

// Classifier scores a normalized 32x32 grayscale region, row-major,
// intensities in [0,1]. Index i of the result is the score for digit i;
// argmax is the prediction. Implementations are opaque artifacts
// trained offline.
type Classifier interface {
	Score(input []float32) ([10]float32, error)
}

// CaptchaSolver turns a captured captcha image file into the arithmetic
// answer. ok is false when segmentation or classification did not yield
// a usable result; that is an expected condition, not an error.
type CaptchaSolver interface {
	SolveFile(path string) (answer string, ok bool)
}

// CaptchaPrompter is the human-in-the-loop fallback: show the operator
// the image at path and return whatever they type.
type CaptchaPrompter interface {
	RequestCaptchaInput(path string) (string, error)
}
