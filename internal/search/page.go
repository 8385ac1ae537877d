package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-shiori/go-readability"
)

// IsURL reports whether a user-supplied context is a web address to fetch
// rather than a passage.
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// PageFetcher turns a web page into readable text for use as a QA context.
type PageFetcher struct {
	client *http.Client
}

func NewPageFetcher(timeout time.Duration) *PageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PageFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads rawURL and extracts its main content as Markdown. Plain
// text responses are returned as is.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP %d reading %s", resp.StatusCode, pageURL)
	}

	body := io.LimitReader(resp.Body, 2<<20)
	if !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		text, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("failed to read body: %w", err)
		}
		return strings.TrimSpace(string(text)), nil
	}

	article, err := readability.FromReader(body, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse readability: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(article.Content)
	if err != nil || strings.TrimSpace(markdown) == "" {
		// fall back to the text content readability already computed
		return strings.TrimSpace(article.TextContent), nil
	}
	if article.Title != "" {
		markdown = "# " + article.Title + "\n\n" + markdown
	}
	return strings.TrimSpace(markdown), nil
}
