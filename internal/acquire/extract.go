package acquire

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	spaceRe       = regexp.MustCompile(`\s+`)
	inlineMathRe  = regexp.MustCompile(`\\\((.{2,200}?)\\\)`)
	displayMathRe = regexp.MustCompile(`\$\$(.{2,300}?)\$\$`)
)

// filterURLs drops non-HTML documents, hosts outside the allow-list and
// repeats, keeping at most MaxPages results in rank order.
func (a *Acquirer) filterURLs(results []SearchResult) []SearchResult {
	seen := make(map[string]bool)
	var kept []SearchResult
	for _, r := range results {
		if len(kept) >= a.cfg.MaxPages {
			break
		}
		u, err := url.Parse(r.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		if a.blockedExtension(u.Path) || !a.allowedHost(u.Hostname()) {
			continue
		}
		u.Fragment = ""
		key := u.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		r.URL = key
		kept = append(kept, r)
	}
	return kept
}

func (a *Acquirer) blockedExtension(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	for _, b := range a.tables.BlockedExtensions {
		if ext == strings.ToLower(b) {
			return true
		}
	}
	return false
}

// allowedHost matches the host exactly or as a subdomain of an allowed
// domain.
func (a *Acquirer) allowedHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, d := range a.tables.AllowedDomains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// fetch downloads one page and extracts its snippet.
func (a *Acquirer) fetch(ctx context.Context, r SearchResult) (Snippet, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	defer cancel()

	resp, err := a.get(ctx, r.URL)
	if err != nil {
		return Snippet{}, err
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !isHTML(ct) {
		return Snippet{}, fmt.Errorf("unsupported content type %q", ct)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, a.cfg.MaxBodyBytes))
	if err != nil {
		return Snippet{}, fmt.Errorf("parsing page: %w", err)
	}

	title := r.Title
	if title == "" {
		title = collapse(doc.Find("title").First().Text())
	}

	return Snippet{
		URL:          r.URL,
		Title:        title,
		Summary:      a.extractSummary(doc),
		Equations:    a.extractEquations(doc),
		Applications: a.extractApplications(doc),
	}, nil
}

// extractSummary returns the paragraph text of the first content selector
// whose paragraphs exceed MinSummaryLen, truncated to MaxSummaryLen.
func (a *Acquirer) extractSummary(doc *goquery.Document) string {
	for _, sel := range a.tables.ContentSelectors {
		block := doc.Find(sel).First()
		if block.Length() == 0 {
			continue
		}
		var parts []string
		block.Find("p").Each(func(_ int, p *goquery.Selection) {
			if t := collapse(p.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		text := strings.Join(parts, " ")
		if utf8.RuneCountInString(text) > a.cfg.MinSummaryLen {
			return truncate(text, a.cfg.MaxSummaryLen)
		}
	}
	return ""
}

// extractEquations collects TeX markup: MathML annotations, MathJax
// script blocks, then \( \) and $$ $$ spans in the page text.
func (a *Acquirer) extractEquations(doc *goquery.Document) []string {
	var acc boundedSet
	acc.max = a.cfg.MaxEquations

	doc.Find(`annotation[encoding="application/x-tex"], script[type^="math/tex"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		return acc.add(strings.TrimSpace(s.Text()))
	})
	if acc.full() {
		return acc.items
	}

	text := doc.Find("body").Text()
	for _, re := range []*regexp.Regexp{inlineMathRe, displayMathRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if !acc.add(strings.TrimSpace(m[1])) {
				return acc.items
			}
		}
	}
	return acc.items
}

// extractApplications collects list items that follow a heading about
// applications, examples or uses.
func (a *Acquirer) extractApplications(doc *goquery.Document) []string {
	var acc boundedSet
	acc.max = a.cfg.MaxApplications

	doc.Find("h2, h3, h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !a.isApplicationHeading(h.Text()) {
			return true
		}
		// MediaWiki wraps headings in a div; the list is a sibling of the
		// wrapper.
		anchor := h
		if h.Parent().HasClass("mw-heading") {
			anchor = h.Parent()
		}
		section := anchor.NextUntil("h1, h2, h3, h4, .mw-heading")
		cont := true
		section.Filter("li").AddSelection(section.Find("li")).EachWithBreak(func(_ int, li *goquery.Selection) bool {
			cont = acc.add(truncate(collapse(li.Text()), 200))
			return cont
		})
		return cont
	})
	return acc.items
}

func (a *Acquirer) isApplicationHeading(text string) bool {
	text = strings.ToLower(collapse(text))
	for _, h := range a.tables.ApplicationHeadings {
		if strings.Contains(text, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

// boundedSet collects unique non-empty strings up to max. add reports
// whether more items may be added.
type boundedSet struct {
	items []string
	max   int
}

func (b *boundedSet) add(s string) bool {
	if b.full() {
		return false
	}
	if s != "" {
		dup := false
		for _, it := range b.items {
			if it == s {
				dup = true
				break
			}
		}
		if !dup {
			b.items = append(b.items, s)
		}
	}
	return !b.full()
}

func (b *boundedSet) full() bool {
	return len(b.items) >= b.max
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
