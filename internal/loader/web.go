// Package loader fetches web pages and extracts their readable text.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"rag-web-qa/internal/domain"
)

var (
	ErrInvalidURL         = errors.New("invalid url")
	ErrPageTooLarge       = errors.New("page too large")
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// Config configures the web loader.
type Config struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// WebLoader loads a single web page as one document.
type WebLoader struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// NewWebLoader creates a loader with the given limits.
func NewWebLoader(cfg Config) *WebLoader {
	t := cfg.Timeout
	if t == 0 {
		t = 20 * time.Second
	}
	mb := cfg.MaxBytes
	if mb <= 0 {
		mb = 1_500_000
	}
	return &WebLoader{
		client:    &http.Client{Timeout: t},
		maxBytes:  mb,
		userAgent: cfg.UserAgent,
	}
}

// Load fetches the page at rawURL and returns its text with page metadata.
func (l *WebLoader) Load(ctx context.Context, rawURL string) ([]domain.Document, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: %s", u, resp.Status)
	}
	if resp.ContentLength > l.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrPageTooLarge, resp.ContentLength)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	if int64(len(body)) > l.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPageTooLarge, l.maxBytes)
	}

	metadata := map[string]any{"source": u.String()}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	var text string
	switch {
	case ct == "" || strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml"):
		text, err = extractHTML(body, metadata)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", u, err)
		}
	case strings.Contains(ct, "text/plain"):
		text = cleanWhitespace(string(body))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, ct)
	}

	doc := domain.Document{
		ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte(u.String())).String(),
		Source:   u.String(),
		Content:  text,
		Metadata: metadata,
	}
	return []domain.Document{doc}, nil
}

// ValidateURL accepts only absolute http and https URLs.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

func extractHTML(body []byte, metadata map[string]any) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		metadata["title"] = title
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok && strings.TrimSpace(desc) != "" {
		metadata["description"] = strings.TrimSpace(desc)
	}
	if lang, ok := doc.Find("html").First().Attr("lang"); ok && lang != "" {
		metadata["language"] = lang
	}

	doc.Find("script, style, noscript, template").Remove()
	// block elements are separated so their text does not run together
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, br, tr, section, article").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return cleanWhitespace(root.Text()), nil
}

var (
	spaceRX     = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	blankLineRX = regexp.MustCompile(`\n{3,}`)
)

func cleanWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRX.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLineRX.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
