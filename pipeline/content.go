package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// ContentClient fetches a page once and derives the DOM-structure
// signals. A failed fetch or a body goquery cannot parse yields the
// full sentinel unit; there is no partial default.
type ContentClient struct {
	client  *http.Client
	limiter *rate.Limiter
	agent   string
	maxBody int64
}

func NewContentClient(cfg Config, limiter *rate.Limiter) *ContentClient {
	return &ContentClient{
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		limiter: limiter,
		agent:   cfg.UserAgent,
		maxBody: cfg.MaxBodyBytes,
	}
}

func (c *ContentClient) Lookup(ctx context.Context, n NormalizedURL) PageResult {
	body, err := c.fetch(ctx, n.URL)
	if err != nil {
		slog.Warn("page fetch failed", "url", n.URL, "err", err)
		PipelineStats.ClientErrors.Add(1)
		return FailedPageResult()
	}
	return AnalyzePage(body, n)
}

func (c *ContentClient) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.agent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, pageURL)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, c.maxBody), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("charset: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// AnalyzePage derives every page signal from an already-fetched body.
// Split from Lookup so the DOM rules are testable without a server.
func AnalyzePage(body []byte, n NormalizedURL) PageResult {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return FailedPageResult()
	}

	host := n.Host
	p := PageResult{OK: true}

	p.Favicon = faviconSignal(doc, n)
	p.RequestURL = resourceSignal(doc, host)
	p.AnchorURL = anchorSignal(doc, host)
	p.LinksInTags = tagDensitySignal(doc)
	p.SFH = formHandlerSignal(doc, host)
	p.MailTo = mailtoSignal(doc)
	p.AbnormalURL = flag(strings.Contains(n.URL, host))

	lower := strings.ToLower(string(body))
	p.OnMouseOver = flag(!strings.Contains(lower, "onmouseover"))
	p.RightClick = flag(!strings.Contains(lower, "contextmenu"))
	p.PopUpWindow = flag(!strings.Contains(lower, "window.open"))
	p.IFrame = flag(!strings.Contains(lower, "<iframe"))

	return p
}

// faviconSignal resolves the declared icon (or the implicit
// /favicon.ico) and flags icons served from another host.
func faviconSignal(doc *goquery.Document, n NormalizedURL) float64 {
	var href string
	doc.Find("link").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !strings.Contains(strings.ToLower(rel), "icon") {
			return true
		}
		if h, ok := s.Attr("href"); ok && h != "" {
			href = h
			return false
		}
		return true
	})

	if href == "" {
		// implicit /favicon.ico is same-origin
		return 1
	}

	base, err := url.Parse(n.URL)
	if err != nil {
		return -1
	}
	ref, err := url.Parse(href)
	if err != nil {
		return -1
	}

	iconHost := strings.ToLower(base.ResolveReference(ref).Hostname())
	iconHost = strings.TrimPrefix(iconHost, "www.")
	return flag(iconHost == n.Host)
}

func resourceSignal(doc *goquery.Document, host string) float64 {
	total := 0
	external := 0
	doc.Find("img, script, link").Each(func(_ int, s *goquery.Selection) {
		total++
		src, _ := s.Attr("src")
		if src != "" && !strings.Contains(src, host) {
			external++
		}
	})
	return ternary(float64(external)/float64(total+1), 0.22, 0.61)
}

func anchorSignal(doc *goquery.Document, host string) float64 {
	total := 0
	external := 0
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		total++
		href, _ := s.Attr("href")
		if href != "" && !strings.Contains(href, host) {
			external++
		}
	})
	return ternary(float64(external)/float64(total+1), 0.31, 0.67)
}

func tagDensitySignal(doc *goquery.Document) float64 {
	meta := doc.Find("meta, script, link").Length()
	all := doc.Find("*").Length()
	return ternary(float64(meta)/float64(all+1), 0.17, 0.81)
}

// formHandlerSignal scores each form action as self-referential (1),
// ambiguous (-1) or cross-origin (0) and rounds the average; a page
// with no forms scores 1.
func formHandlerSignal(doc *goquery.Document, host string) float64 {
	var sum float64
	count := 0
	doc.Find("form[action]").Each(func(_ int, s *goquery.Selection) {
		action, _ := s.Attr("action")
		action = strings.ToLower(strings.TrimSpace(action))
		count++

		if action == "" || action == "about:blank" {
			sum--
			return
		}
		parsed, err := url.Parse(action)
		if err != nil {
			sum--
			return
		}
		actionHost := strings.ToLower(parsed.Host)
		if actionHost == "" || strings.Contains(actionHost, host) {
			sum++
		}
		// cross-origin contributes 0
	})

	if count == 0 {
		return 1
	}
	return math.Round(sum / float64(count))
}

func mailtoSignal(doc *goquery.Document) float64 {
	found := false
	doc.Find("form[action]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		action, _ := s.Attr("action")
		if strings.Contains(strings.ToLower(action), "mailto:") {
			found = true
			return false
		}
		return true
	})
	return flag(!found)
}

// ternary thresholds a ratio into the 1/0/-1 convention: below lo is
// benign, up to hi is indeterminate, beyond hi is suspicious.
func ternary(ratio, lo, hi float64) float64 {
	switch {
	case ratio < lo:
		return 1
	case ratio <= hi:
		return 0
	default:
		return -1
	}
}
