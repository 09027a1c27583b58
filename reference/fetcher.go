package reference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// maxFetchSize limits how much of a reference page is read.
const maxFetchSize = 2 * 1024 * 1024 // 2MB

// maxDigestSize caps the markdown handed to the visual-specialist prompt.
const maxDigestSize = 8 * 1024

// Fetcher retrieves a reference page and distills it into markdown.
type Fetcher struct {
	client    *http.Client
	converter *Converter
	logger    *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a reference fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		converter: NewConverter(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Digest fetches the page, extracts its readable content, and returns it as
// bounded markdown prefixed with the page title.
func (f *Fetcher) Digest(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse reference url: %w", err)
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return "", fmt.Errorf("unsupported reference url scheme: %s", pageURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "planforge-reference/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch reference: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch reference: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("read reference body: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("extract readable content: %w", err)
	}

	markdown, err := f.converter.Convert(article.Content)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}

	title := article.Title
	if title == "" {
		title = extractHTMLTitle(body)
	}

	digest := markdown
	if title != "" {
		digest = "# " + title + "\n\n" + markdown
	}
	if len(digest) > maxDigestSize {
		digest = digest[:maxDigestSize]
	}

	f.logger.Debug("Reference page distilled",
		"url", pageURL.String(),
		"title", title,
		"bytes", len(digest))

	return digest, nil
}
