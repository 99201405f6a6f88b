// File: internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/obspull/obspull-cli/api/schemas"
	"github.com/obspull/obspull-cli/internal/config"
)

// Page is one browser tab, implementing schemas.PageSession. All
// methods run CDP commands against the tab's context combined with the
// caller's, so either side can cancel a stuck operation.
type Page struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu       sync.Mutex
	isClosed bool
}

var _ schemas.PageSession = (*Page)(nil)

func newPage(ctx context.Context, cancel context.CancelFunc, cfg config.BrowserConfig, logger *zap.Logger) *Page {
	id := uuid.New().String()
	return &Page{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger.With(zap.String("session_id", id)),
	}
}

// run executes chromedp actions under the combined tab/caller context.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits for the navigation to commit, bounded
// by the configured navigation timeout.
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout)
	defer cancel()
	if err := p.run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

// Fill sets the value of the first match and fires the input and
// change events the portal's scripts listen for.
func (p *Page) Fill(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.value = %q;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, selector, value)

	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("failed to fill %s: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("fill target %s not found", selector)
	}
	return nil
}

// Click clicks the first match. With force, the click is dispatched
// through the DOM so an invisible overlay cannot swallow it.
func (p *Page) Click(ctx context.Context, selector string, force bool) error {
	if force {
		script := fmt.Sprintf(`(() => {
			const el = document.querySelector(%q);
			if (!el) return false;
			el.click();
			return true;
		})()`, selector)
		var ok bool
		if err := p.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
			return fmt.Errorf("failed to force-click %s: %w", selector, err)
		}
		if !ok {
			return fmt.Errorf("click target %s not found", selector)
		}
		return nil
	}
	if err := p.run(ctx, chromedp.Click(selector, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

// ClickByText finds the first anchor whose text contains text and
// clicks it natively. Native clicks work on the portal's menu links
// where synthetic mouse events do not.
func (p *Page) ClickByText(ctx context.Context, text string) error {
	script := fmt.Sprintf(`(() => {
		for (const a of document.querySelectorAll('a')) {
			if ((a.textContent || '').includes(%q)) { a.click(); return true; }
		}
		return false;
	})()`, text)

	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("failed to click link %q: %w", text, err)
	}
	if !ok {
		return fmt.Errorf("no link containing %q", text)
	}
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("timed out waiting for %s: %w", selector, err)
	}
	return nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	var n int
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)
	if err := p.run(ctx, chromedp.Evaluate(script, &n)); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", selector, err)
	}
	return n, nil
}

// InnerText reads the rendered text of the first match. It evaluates
// rather than waits: during result polling the element may legally be
// absent, and the caller wants an answer now, not a block.
func (p *Page) InnerText(ctx context.Context, selector string) (string, error) {
	var text string
	script := fmt.Sprintf(`(document.querySelector(%q)?.innerText) ?? ''`, selector)
	if err := p.run(ctx, chromedp.Evaluate(script, &text)); err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", selector, err)
	}
	return text, nil
}

// RemoveReadonly strips the readonly attribute so Fill can reach the
// field. The portal guards its password input this way.
func (p *Page) RemoveReadonly(ctx context.Context, selector string) error {
	script := fmt.Sprintf(`document.querySelector(%q)?.removeAttribute('readonly')`, selector)
	if err := p.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("failed to remove readonly from %s: %w", selector, err)
	}
	return nil
}

// ScreenshotElement captures the first match into a PNG file at path.
func (p *Page) ScreenshotElement(ctx context.Context, selector, path string) error {
	var buf []byte
	if err := p.run(ctx, chromedp.Screenshot(selector, &buf, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to screenshot %s: %w", selector, err)
	}
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	return nil
}

// FrameDocuments snapshots the top document and every same-origin
// sub-frame document, in DOM order. Cross-origin frames are skipped;
// the portal keeps its grade frames same-origin.
func (p *Page) FrameDocuments(ctx context.Context) ([]schemas.FrameDocument, error) {
	const script = `(() => {
		const docs = [{ url: location.href, html: document.documentElement.outerHTML }];
		for (const f of document.querySelectorAll('iframe, frame')) {
			try {
				const d = f.contentDocument;
				if (d && d.documentElement) {
					docs.push({ url: d.location.href, html: d.documentElement.outerHTML });
				}
			} catch (e) { /* cross-origin frame */ }
		}
		return docs;
	})()`

	var docs []schemas.FrameDocument
	if err := p.run(ctx, chromedp.Evaluate(script, &docs)); err != nil {
		return nil, fmt.Errorf("failed to snapshot frames: %w", err)
	}
	return docs, nil
}

// Close releases the tab. Idempotent.
func (p *Page) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return nil
	}
	p.isClosed = true
	p.mu.Unlock()

	p.logger.Debug("Closing browser tab.")
	p.cancel()
	return nil
}
