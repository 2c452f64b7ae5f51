package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/jonathan/freelance-applier/internal/logging"
)

// MinContentLength is the minimum extracted text length to consider HTTP fetch successful.
// Marketplace search pages served without JavaScript usually fall well below it.
const MinContentLength = 500

// ShouldUseBrowser returns true if the extracted text is too short,
// indicating the page is likely rendered client-side.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// RenderOptions configures a headless render
type RenderOptions struct {
	Timeout   time.Duration
	UserAgent string
	// SettleDelay is waited after load and again after scrolling.
	SettleDelay time.Duration
	Logger      *zerolog.Logger
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 2 * time.Second
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// WithBrowser renders a page in headless Chrome and returns the rendered HTML.
// The page is scrolled to the bottom once so lazy-loaded job tiles appear.
// Requires Chrome/Chromium to be installed on the system.
func WithBrowser(ctx context.Context, pageURL string, opts RenderOptions) (string, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With().Str("url", pageURL).Logger()
	log.Debug().Msg("rendering listing page in headless browser")
	start := time.Now()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(opts.UserAgent),
		)...,
	)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, opts.Timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(opts.SettleDelay),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(opts.SettleDelay),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	log.Debug().Int("bytes", len(html)).Dur("took", time.Since(start)).Msg("rendered listing page")
	return html, nil
}
