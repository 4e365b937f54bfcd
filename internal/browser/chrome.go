package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	profilePrefix   = "jobautomate-profile-"
	staleProfileAge = 10 * time.Minute
	scrollScript    = "window.scrollBy(0, 1500); true"
)

// ChromeLauncher starts headless Chrome sessions through the DevTools protocol.
// Every session gets its own throwaway profile directory.
type ChromeLauncher struct {
	execPath string
	tempDir  string
	logger   *slog.Logger
}

var _ Launcher = (*ChromeLauncher)(nil)

// NewChromeLauncher creates a launcher. execPath may be empty to let chromedp
// find a Chrome binary. Profile directories older than ten minutes left over
// from crashed runs are removed on construction.
func NewChromeLauncher(execPath string, logger *slog.Logger) *ChromeLauncher {
	l := &ChromeLauncher{
		execPath: execPath,
		tempDir:  os.TempDir(),
		logger:   logger,
	}
	if n := CleanStaleProfiles(l.tempDir, staleProfileAge); n > 0 {
		logger.Info("removed stale browser profiles", "count", n)
	}
	return l
}

// Launch starts a browser bound to ctx and returns a session for it.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	dir, err := os.MkdirTemp(l.tempDir, profilePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("creating profile dir: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserDataDir(dir),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"),
	)
	if l.execPath != "" {
		opts = append(opts, chromedp.ExecPath(l.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	// Running an empty action list starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	return &chromeSession{ctx: tabCtx, cancel: cancel, dir: dir, logger: l.logger}, nil
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	dir    string
	logger *slog.Logger
}

func (s *chromeSession) Render(ctx context.Context, url string, opts RenderOptions) (string, error) {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return "", fmt.Errorf("navigating to %s: %w", url, err)
	}

	if opts.WaitSelector != "" {
		waitCtx, waitCancel := context.WithTimeout(runCtx, opts.WaitTimeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(opts.WaitSelector, chromedp.ByQuery))
		waitCancel()
		if err != nil {
			if runCtx.Err() != nil {
				return "", fmt.Errorf("rendering %s: %w", url, runCtx.Err())
			}
			if !opts.WaitOptional {
				return "", fmt.Errorf("%w %q: %v", ErrWaitTimeout, opts.WaitSelector, err)
			}
			s.logger.Warn("wait selector not found, capturing page as is", "selector", opts.WaitSelector, "error", err)
		}
	}

	for i := 0; i < opts.Scrolls; i++ {
		var ok bool
		if err := chromedp.Run(runCtx, chromedp.Evaluate(scrollScript, &ok), chromedp.Sleep(opts.ScrollPause)); err != nil {
			return "", fmt.Errorf("scrolling %s: %w", url, err)
		}
	}

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capturing html of %s: %w", url, err)
	}
	return html, nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing profile dir: %w", err)
	}
	return nil
}

// CleanStaleProfiles removes profile directories under dir older than
// olderThan, best effort. It returns how many were removed.
func CleanStaleProfiles(dir string, olderThan time.Duration) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), profilePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if os.RemoveAll(filepath.Join(dir, e.Name())) == nil {
			removed++
		}
	}
	return removed
}
