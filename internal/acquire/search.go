package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const searchSuffix = " tutorial university"

// search queries the primary engine and falls back to the encyclopedia
// endpoint when the primary fails or yields nothing.
func (a *Acquirer) search(ctx context.Context, topic string) []SearchResult {
	query := topic + searchSuffix

	results, err := a.searchPrimary(ctx, query)
	if err == nil && len(results) > 0 {
		return results
	}
	if err != nil {
		a.logger.Info("primary search failed, using fallback", zap.String("topic", topic), zap.Error(err))
	}

	results, err = a.searchFallback(ctx, topic)
	if err != nil {
		a.logger.Warn("fallback search failed", zap.String("topic", topic), zap.Error(err))
		return nil
	}
	return results
}

// searchPrimary scrapes an HTML result page laid out like DuckDuckGo's
// non-JavaScript interface.
func (a *Acquirer) searchPrimary(ctx context.Context, query string) ([]SearchResult, error) {
	if a.cfg.SearchURL == "" {
		return nil, fmt.Errorf("primary search disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SearchTimeout)
	defer cancel()

	endpoint, err := withQuery(a.cfg.SearchURL, url.Values{"q": {query}})
	if err != nil {
		return nil, err
	}
	resp, err := a.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, a.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing search page: %w", err)
	}

	var results []SearchResult
	doc.Find(".result").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		target := decodeRedirect(href)
		if target == "" {
			return
		}
		results = append(results, SearchResult{
			URL:     target,
			Title:   collapse(link.Text()),
			Snippet: collapse(s.Find(".result__snippet").Text()),
		})
	})
	return results, nil
}

// searchFallback queries a MediaWiki opensearch endpoint, which answers
// [query, [titles], [descriptions], [urls]].
func (a *Acquirer) searchFallback(ctx context.Context, topic string) ([]SearchResult, error) {
	if a.cfg.FallbackURL == "" {
		return nil, fmt.Errorf("fallback search disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.FallbackTimeout)
	defer cancel()

	endpoint, err := withQuery(a.cfg.FallbackURL, url.Values{
		"action":    {"opensearch"},
		"search":    {topic},
		"limit":     {"5"},
		"namespace": {"0"},
		"format":    {"json"},
	})
	if err != nil {
		return nil, err
	}
	resp, err := a.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, a.cfg.MaxBodyBytes)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding opensearch response: %w", err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("opensearch response has %d elements, want 4", len(raw))
	}

	var titles, descs, urls []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		return nil, fmt.Errorf("decoding titles: %w", err)
	}
	_ = json.Unmarshal(raw[2], &descs)
	if err := json.Unmarshal(raw[3], &urls); err != nil {
		return nil, fmt.Errorf("decoding urls: %w", err)
	}

	results := make([]SearchResult, 0, len(urls))
	for i, u := range urls {
		r := SearchResult{URL: u}
		if i < len(titles) {
			r.Title = titles[i]
		}
		if i < len(descs) {
			r.Snippet = descs[i]
		}
		results = append(results, r)
	}
	return results, nil
}

// get issues a GET and rejects non-2xx responses.
func (a *Acquirer) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Host)
	}
	return resp, nil
}

// decodeRedirect unwraps "//duckduckgo.com/l/?uddg=<target>" links.
func decodeRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func withQuery(base string, q url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", base, err)
	}
	existing := u.Query()
	for k, v := range q {
		existing[k] = v
	}
	u.RawQuery = existing.Encode()
	return u.String(), nil
}
