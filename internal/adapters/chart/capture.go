package chart

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
	"github.com/selivandex/market-reporter/pkg/models"
)

// ErrCaptureFailed wraps every chart capture failure
var ErrCaptureFailed = errors.New("chart capture failed")

const captureSubdir = "capture_chart"

// ImageRef locates a stored chart screenshot
type ImageRef struct {
	CapturedAt time.Time
	URI        string // public URI stored with the analysis
	Path       string // local file read by the analysis engine
}

// Provider captures the current chart
type Provider interface {
	Capture(ctx context.Context) (*ImageRef, error)
}

// Browser renders a page and returns PNG bytes
type Browser interface {
	Screenshot(ctx context.Context, url string) ([]byte, error)
}

// PriceRecorder samples the spot price at capture time
type PriceRecorder interface {
	Record(ctx context.Context, at time.Time) (*models.PriceObservation, error)
}

// Capturer implements Provider: screenshot, save under media dir, record price
type Capturer struct {
	browser  Browser
	prices   PriceRecorder
	url      string
	mediaDir string
	mediaURL string
	now      func() time.Time
}

// NewCapturer creates chart capturer. prices may be nil.
func NewCapturer(browser Browser, prices PriceRecorder, url, mediaDir, mediaURL string) *Capturer {
	if !strings.HasSuffix(mediaURL, "/") {
		mediaURL += "/"
	}
	return &Capturer{
		browser:  browser,
		prices:   prices,
		url:      url,
		mediaDir: mediaDir,
		mediaURL: mediaURL,
		now:      time.Now,
	}
}

// Capture takes one screenshot. The file is written only after a successful
// screenshot, so a failure leaves nothing behind.
func (c *Capturer) Capture(ctx context.Context) (*ImageRef, error) {
	capturedAt := c.now()

	png, err := c.browser.Screenshot(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if len(png) == 0 {
		return nil, fmt.Errorf("%w: empty screenshot", ErrCaptureFailed)
	}

	dir := filepath.Join(c.mediaDir, captureSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %v", ErrCaptureFailed, dir, err)
	}

	name := fmt.Sprintf("chart_screenshot_%s.png", capturedAt.Format("20060102_150405"))
	file := filepath.Join(dir, name)
	if err := os.WriteFile(file, png, 0o644); err != nil {
		return nil, fmt.Errorf("%w: failed to save screenshot: %v", ErrCaptureFailed, err)
	}

	ref := &ImageRef{
		CapturedAt: capturedAt,
		URI:        c.mediaURL + path.Join(captureSubdir, name),
		Path:       file,
	}

	logger.Info("chart captured",
		zap.String("path", file),
		zap.Int("bytes", len(png)),
	)

	if c.prices != nil {
		if _, err := c.prices.Record(ctx, capturedAt); err != nil {
			logger.Warn("failed to record price with chart capture", zap.Error(err))
		}
	}

	return ref, nil
}
