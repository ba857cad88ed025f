package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/hallcrawl/internal/automation"
	"github.com/IshaanNene/hallcrawl/internal/config"
)

// BrowserPool owns one Chromium instance and hands out a fresh tab per
// caller. It implements automation.PageSource.
type BrowserPool struct {
	browser    *rod.Browser
	launcher   *launcher.Launcher
	cfg        config.BrowserConfig
	stealthCfg *StealthConfig
	navTimeout time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
	opened atomic.Int64
}

// NewBrowserPool launches Chromium according to cfg and connects to it.
func NewBrowserPool(cfg config.BrowserConfig, navTimeout time.Duration, logger *slog.Logger) (*BrowserPool, error) {
	bp := &BrowserPool{
		cfg:        cfg,
		navTimeout: navTimeout,
		logger:     logger.With("component", "browser_pool"),
	}
	if cfg.Stealth {
		bp.stealthCfg = NewStealthConfig(cfg.WindowSize)
	}

	l := bp.newLauncher()
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	bp.launcher = l

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bp.browser = browser

	bp.logger.Info("browser ready",
		"headless", cfg.Headless,
		"stealth", cfg.Stealth,
		"window_size", cfg.WindowSize,
	)
	return bp, nil
}

func (bp *BrowserPool) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(bp.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if bp.cfg.Bin != "" {
		l = l.Bin(bp.cfg.Bin)
	}
	if bp.cfg.UserDataDir != "" {
		l = l.UserDataDir(bp.cfg.UserDataDir)
	}
	if bp.cfg.WindowSize != "" {
		l = l.Set("window-size", bp.cfg.WindowSize)
	}
	return l
}

// NewPage opens a blank tab. With stealth enabled the tab carries the
// go-rod/stealth evasions plus the fingerprint overrides from StealthConfig.
func (bp *BrowserPool) NewPage(ctx context.Context) (automation.Page, error) {
	bp.mu.Lock()
	closed := bp.closed
	bp.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("browser pool is closed")
	}

	browser := bp.browser.Context(ctx)

	var (
		page *rod.Page
		err  error
	)
	if bp.stealthCfg != nil {
		page, err = stealth.Page(browser)
		if err == nil {
			_, err = page.EvalOnNewDocument(bp.stealthCfg.StealthJS())
		}
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		if page != nil {
			_ = page.Close()
		}
		return nil, fmt.Errorf("open page: %w", err)
	}

	n := bp.opened.Add(1)
	bp.logger.Debug("page opened", "pages", n)
	return automation.NewRodPage(page.Context(context.Background()), bp.navTimeout, bp.logger), nil
}

// Opened reports how many pages the pool has handed out.
func (bp *BrowserPool) Opened() int64 {
	return bp.opened.Load()
}

// Version returns the product string of the connected browser.
func (bp *BrowserPool) Version() (string, error) {
	v, err := bp.browser.Version()
	if err != nil {
		return "", fmt.Errorf("browser version: %w", err)
	}
	return v.Product, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (bp *BrowserPool) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.closed {
		return nil
	}
	bp.closed = true

	err := bp.browser.Close()
	if bp.launcher != nil {
		bp.launcher.Kill()
		if bp.cfg.UserDataDir == "" {
			bp.launcher.Cleanup()
		}
	}
	bp.logger.Info("browser closed", "pages", bp.opened.Load())
	return err
}
