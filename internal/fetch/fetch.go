// Package fetch retrieves marketplace listing pages and reduces them to text
// an LLM can extract job postings from.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36"

// Result holds the raw and processed content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	Text        string
	ContentType string
	StatusCode  int
	Rendered    bool // HTML came from the headless browser
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	Headers    map[string]string
	UseBrowser bool // fall back to headless rendering when the HTTP text is too short
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// URL retrieves HTML content from a URL.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to read response body",
			Cause:   err,
		}
	}

	result := &Result{
		URL:         urlStr,
		HTML:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{
			URL:     urlStr,
			Message: fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	return result, nil
}

// ListingPage fetches a marketplace search page and extracts its text with job
// links kept inline. When the HTTP text is shorter than MinContentLength and
// opts.UseBrowser is set, the page is rendered with a headless browser instead.
func ListingPage(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	platform := DetectPlatform(urlStr)
	selectors := PlatformContentSelectors(platform)
	noise := PlatformNoiseSelectors(platform)

	result, err := URL(ctx, urlStr, opts)
	if err != nil && (result == nil || !opts.UseBrowser) {
		return result, err
	}

	if err == nil {
		text, extractErr := ExtractListingText(result.HTML, urlStr, selectors, noise...)
		if extractErr != nil {
			return result, &Error{URL: urlStr, Message: "failed to extract text", Cause: extractErr}
		}
		result.Text = text
		if !opts.UseBrowser || !ShouldUseBrowser(text) {
			return result, nil
		}
	}

	html, browserErr := WithBrowser(ctx, urlStr, RenderOptions{
		Timeout:   opts.Timeout,
		UserAgent: opts.UserAgent,
		Logger:    opts.Logger,
	})
	if browserErr != nil {
		if err == nil && result.Text != "" {
			// keep the short HTTP text rather than failing the page
			return result, nil
		}
		return result, &Error{URL: urlStr, Message: "browser fallback failed", Cause: browserErr}
	}

	text, extractErr := ExtractListingText(html, urlStr, selectors, noise...)
	if extractErr != nil {
		return nil, &Error{URL: urlStr, Message: "failed to extract rendered text", Cause: extractErr}
	}

	return &Result{
		URL:        urlStr,
		HTML:       html,
		Text:       text,
		StatusCode: http.StatusOK,
		Rendered:   true,
	}, nil
}

// ExtractListingText returns the main text of a listing page. Noise elements
// are removed, the first matching content selector wins (falling back to
// body), and every anchor with an href is rewritten to "text (absolute-url)"
// so job URLs survive extraction.
func ExtractListingText(html, baseURL string, contentSelectors []string, noiseSelectors ...string) (string, error) {
	doc, err := parse(html, noiseSelectors)
	if err != nil {
		return "", err
	}

	base, _ := url.Parse(baseURL)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}
		label := strings.TrimSpace(a.Text())
		if label == "" {
			a.SetText(href)
			return
		}
		a.SetText(fmt.Sprintf("%s (%s)", label, href))
	})

	return cleanWhitespace(mainContent(doc, contentSelectors).Text()), nil
}

func parse(html string, noiseSelectors []string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup").Remove()

	if len(noiseSelectors) > 0 {
		if noiseSelector := strings.Join(noiseSelectors, ", "); noiseSelector != "" {
			doc.Find(noiseSelector).Remove()
		}
	}
	return doc, nil
}

func mainContent(doc *goquery.Document, contentSelectors []string) *goquery.Selection {
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			return selection.First()
		}
	}
	return doc.Find("body")
}

// JobListingSelectors returns selectors for generic job search result pages.
func JobListingSelectors() []string {
	return []string{
		".job-list",
		".jobs-list",
		"#job-list",
		".search-results",
		"[data-testid='job-list']",
		"main",
		"article",
		".content",
		"#content",
	}
}

// cleanWhitespace trims every line and drops the empty ones.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
