// Package headless reads the stock label from a page rendered by headless
// Chrome.
package headless

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

const (
	defaultWaitTimeout       = 20 * time.Second
	defaultNavigationTimeout = 45 * time.Second
)

// Operation names reported in stock.Error.Op.
const (
	OpLaunch   = "launch browser"
	OpNavigate = "navigate"
	OpWait     = "wait label"
)

// Config controls the browser and the label lookup.
type Config struct {
	URL        string
	LabelXPath string
	UserAgent  string
	// WaitTimeout bounds the poll for the label after navigation.
	WaitTimeout       time.Duration
	NavigationTimeout time.Duration
	Headless          bool
	NoSandbox         bool
	DisableDevShm     bool
	DisableGPU        bool
	WindowWidth       int
	WindowHeight      int
	// ExecPath overrides the Chrome binary chromedp looks up on PATH.
	ExecPath string
}

// Fetcher launches one browser per FetchLabel call and always tears it down
// before returning.
type Fetcher struct {
	cfg    Config
	logger *zap.Logger
}

// NewChromedp validates cfg and returns a chromedp-backed fetcher.
func NewChromedp(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("target url must be set")
	}
	if strings.TrimSpace(cfg.LabelXPath) == "" {
		return nil, fmt.Errorf("label xpath must be set")
	}
	if cfg.WindowWidth < 0 || cfg.WindowHeight < 0 {
		return nil, fmt.Errorf("window size must be >= 0")
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = defaultWaitTimeout
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, logger: logger}, nil
}

// FetchLabel navigates to the target and returns the label's text.
func (f *Fetcher) FetchLabel(ctx context.Context) (string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, f.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	start := time.Now()
	if err := chromedp.Run(browserCtx); err != nil {
		return "", stock.NewError(stock.KindFetchFailure, OpLaunch, err)
	}
	f.logger.Debug("browser launched", zap.Duration("elapsed", time.Since(start)))

	navCtx, navCancel := context.WithTimeout(browserCtx, f.cfg.NavigationTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, f.networkSetupAction(), chromedp.Navigate(f.cfg.URL)); err != nil {
		return "", stock.NewError(stock.KindFetchFailure, OpNavigate, err)
	}
	f.logger.Debug("page loaded", zap.String("url", f.cfg.URL), zap.Duration("elapsed", time.Since(start)))

	waitCtx, waitCancel := context.WithTimeout(browserCtx, f.cfg.WaitTimeout)
	defer waitCancel()

	var text string
	err := chromedp.Run(waitCtx,
		chromedp.WaitReady(f.cfg.LabelXPath, chromedp.BySearch),
		chromedp.Text(f.cfg.LabelXPath, &text, chromedp.BySearch, chromedp.NodeReady),
	)
	if err != nil {
		return "", classifyWaitErr(ctx, err, f.cfg.WaitTimeout)
	}
	return strings.TrimSpace(text), nil
}

func (f *Fetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("no-sandbox", f.cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", f.cfg.DisableDevShm),
		chromedp.Flag("disable-gpu", f.cfg.DisableGPU),
		chromedp.Flag("enable-automation", false),
	)
	if f.cfg.WindowWidth > 0 && f.cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(f.cfg.WindowWidth, f.cfg.WindowHeight))
	}
	if f.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.cfg.UserAgent))
	}
	if f.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.cfg.ExecPath))
	}
	return opts
}

func (f *Fetcher) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// classifyWaitErr turns an expired wait into ErrNotFound. A canceled parent
// context stays an ordinary fetch failure.
func classifyWaitErr(parent context.Context, err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return stock.NewError(stock.KindFetchFailure, OpWait,
			fmt.Errorf("%w after %s", stock.ErrNotFound, timeout))
	}
	return stock.NewError(stock.KindFetchFailure, OpWait, err)
}
