package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const duckDuckGoBaseURL = "https://html.duckduckgo.com"

// DuckDuckGo scrapes the HTML results page. It needs no API key and is the
// fallback when Custom Search is not configured.
type DuckDuckGo struct {
	baseURL string
	client  *http.Client
}

func NewDuckDuckGo(baseURL string, timeout time.Duration) *DuckDuckGo {
	if baseURL == "" {
		baseURL = duckDuckGoBaseURL
	}
	return &DuckDuckGo{baseURL: strings.TrimRight(baseURL, "/"), client: newClient(timeout)}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

type Result struct {
	Title   string
	URL     string
	Snippet string
}

func (d *DuckDuckGo) Search(ctx context.Context, query string) (string, error) {
	results, err := d.Results(ctx, query, 1)
	if err != nil {
		return "", err
	}
	return results[0].Snippet, nil
}

// Results returns up to max parsed results.
func (d *DuckDuckGo) Results(ctx context.Context, query string, max int) ([]Result, error) {
	searchURL := fmt.Sprintf("%s/html/?q=%s", d.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from duckduckgo", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}
	results := parseResults(doc, max)
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}

func parseResults(doc *goquery.Document, max int) []Result {
	var results []Result
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		if link.Length() == 0 {
			return true
		}
		href, _ := link.Attr("href")
		// DuckDuckGo wraps URLs in a redirect; extract the actual URL
		if u, err := url.Parse(href); err == nil {
			if actual := u.Query().Get("uddg"); actual != "" {
				href = actual
			}
		}
		results = append(results, Result{
			Title:   collapseSpace(link.Text()),
			URL:     href,
			Snippet: collapseSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(results) < max
	})
	return results
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
