package chart

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
)

// ChromeBrowser drives a headless Chrome through chromedp
type ChromeBrowser struct {
	waitFor     string
	headless    bool
	stepTimeout time.Duration
	settle      time.Duration
}

// NewChromeBrowser creates browser. waitFor is a CSS selector that must be
// visible before the screenshot is taken (empty skips the wait).
func NewChromeBrowser(waitFor string, headless bool, stepTimeout, settle time.Duration) *ChromeBrowser {
	return &ChromeBrowser{
		waitFor:     waitFor,
		headless:    headless,
		stepTimeout: stepTimeout,
		settle:      settle,
	}
}

// Screenshot opens url in a fresh browser and returns a full-page PNG
func (b *ChromeBrowser) Screenshot(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// Start the browser on browserCtx so per-step timeouts don't tear it down
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	step := func(name string, action chromedp.Action) error {
		stepCtx, stepCancel := context.WithTimeout(browserCtx, b.stepTimeout)
		defer stepCancel()
		if err := chromedp.Run(stepCtx, action); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}

	if err := step("navigate", chromedp.Navigate(url)); err != nil {
		return nil, err
	}

	if b.waitFor != "" {
		if err := step("wait for chart", chromedp.WaitVisible(b.waitFor, chromedp.ByQuery)); err != nil {
			return nil, err
		}
	}

	if b.settle > 0 {
		if err := step("settle", chromedp.Sleep(b.settle)); err != nil {
			return nil, err
		}
	}

	var buf []byte
	if err := step("screenshot", chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, err
	}

	logger.Debug("chart page rendered",
		zap.String("url", url),
		zap.Int("bytes", len(buf)),
	)

	return buf, nil
}
