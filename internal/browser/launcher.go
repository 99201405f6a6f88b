// File: internal/browser/launcher.go

// Package browser implements the page collaborator on top of chromedp.
// The auth state machine only sees the schemas.PageSession surface;
// everything CDP-specific stays in here.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/obspull/obspull-cli/api/schemas"
	"github.com/obspull/obspull-cli/internal/config"
)

// Launcher owns the browser process. The process starts lazily on the
// first Launch and is shared by subsequent sessions; each Launch still
// returns an isolated tab that the caller must Close.
type Launcher struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	initOnce sync.Once
	initErr  error
}

var _ schemas.Launcher = (*Launcher)(nil)

// NewLauncher creates a Launcher. Browser startup is deferred until the
// first session is requested.
func NewLauncher(cfg config.BrowserConfig, logger *zap.Logger) *Launcher {
	return &Launcher{
		cfg:    cfg,
		logger: logger.Named("browser"),
	}
}

func (l *Launcher) initialize() error {
	l.initOnce.Do(func() {
		opts := append([]chromedp.ExecAllocatorOption{},
			chromedp.DefaultExecAllocatorOptions[:]...)
		opts = append(opts,
			chromedp.Flag("headless", l.cfg.Headless),
			chromedp.WindowSize(l.cfg.ViewportWidth, l.cfg.ViewportHeight),
			// Keeps the browser stable in containers.
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.NoSandbox,
		)
		for _, arg := range l.cfg.Args {
			opts = append(opts, chromedp.Flag(arg, true))
		}

		l.allocCtx, l.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		l.logger.Info("Browser allocator initialized.", zap.Bool("headless", l.cfg.Headless))
	})
	return l.initErr
}

// Launch opens a fresh tab and returns it as a PageSession. The tab is
// exclusively owned by the caller until Close.
func (l *Launcher) Launch(ctx context.Context) (schemas.PageSession, error) {
	if err := l.initialize(); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(l.allocCtx)

	// Force target creation now so a broken chrome install fails here,
	// not on the first navigation. The metrics override pins the layout
	// viewport; the portal's login page reflows below tablet widths.
	startCtx, cancel := combineContext(tabCtx, ctx)
	err := chromedp.Run(startCtx,
		emulation.SetDeviceMetricsOverride(int64(l.cfg.ViewportWidth), int64(l.cfg.ViewportHeight), 1, false),
	)
	cancel()
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open browser tab: %w", err)
	}

	return newPage(tabCtx, tabCancel, l.cfg, l.logger), nil
}

// Shutdown terminates the browser process. Sessions still open become
// unusable.
func (l *Launcher) Shutdown(ctx context.Context) error {
	if l.allocCancel != nil {
		l.allocCancel()
		l.logger.Info("Browser shut down.")
	}
	return nil
}

// combineContext derives a context from the session's chromedp context
// (so CDP routing works) that is additionally cancelled when the
// caller's request context ends.
func combineContext(sessionCtx, reqCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(sessionCtx)
	if reqCtx == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(reqCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
