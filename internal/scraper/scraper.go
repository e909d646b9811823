// Package scraper discovers bounty opportunities by fetching the
// configured site and walking its HTML for candidate links.
package scraper

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/aka-Rakesh/Xbot/internal/logging"
	"github.com/aka-Rakesh/Xbot/pkg/models"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Scraper fetches opportunity listings from a single site. A rate
// limiter keeps repeated cycles polite toward the target.
type Scraper struct {
	siteURL string
	client  *http.Client
	limiter *rate.Limiter
}

// New builds a Scraper for the given site URL.
func New(siteURL string) *Scraper {
	return &Scraper{
		siteURL: siteURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		// One fetch per 30s sustained, small burst for manual triggers.
		limiter: rate.NewLimiter(rate.Every(30*time.Second), 2),
	}
}

// Discover fetches the site and returns every opportunity found, in
// document order. Fetch or parse failures are returned to the caller;
// the orchestrator decides whether to abort the cycle.
func (s *Scraper) Discover(ctx context.Context) ([]models.Opportunity, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait interrupted: %w", err)
	}

	if logger := logging.GetCurrentLogger(); logger != nil {
		logger.Log("Fetching opportunities from %s", s.siteURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.siteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.siteURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, s.siteURL)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response body: %w", err)
	}

	opportunities := s.extract(doc)

	log.Info().Int("count", len(opportunities)).Str("site", s.siteURL).Msg("discovery complete")
	return opportunities, nil
}

// extract walks the document and collects anchors that look like
// opportunity listings. Duplicate ids within one page are dropped,
// first occurrence wins.
func (s *Scraper) extract(doc *html.Node) []models.Opportunity {
	var opportunities []models.Opportunity
	seen := make(map[string]bool)
	now := time.Now()

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attr(n, "href")
			title := strings.TrimSpace(textContent(n))

			if href != "" && title != "" && !strings.HasPrefix(href, "javascript:") {
				url := s.absoluteURL(href)
				id := ExtractID(url, title)

				if id != "" && !seen[id] {
					seen[id] = true
					opportunities = append(opportunities, models.Opportunity{
						ID:           id,
						Title:        title,
						URL:          url,
						Description:  descriptionNear(n),
						DiscoveredAt: now,
					})
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return opportunities
}

// absoluteURL resolves a relative href against the site URL.
func (s *Scraper) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(s.siteURL, "/") + "/" + strings.TrimLeft(href, "/")
}

// ExtractID derives a stable opportunity id. The last URL path segment
// is used when it is numeric or slug-like; otherwise the id is the
// first 12 hex chars of the title's md5.
func ExtractID(url, title string) string {
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		last := trimmed[idx+1:]
		if isDigits(last) {
			return last
		}
		if strings.ContainsAny(last, "-_") {
			return last
		}
	}

	sum := md5.Sum([]byte(title))
	return hex.EncodeToString(sum[:])[:12]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// descriptionNear looks in the anchor's parent element for a child
// carrying a description-like class.
func descriptionNear(anchor *html.Node) string {
	parent := anchor.Parent
	if parent == nil {
		return ""
	}

	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c == anchor {
			continue
		}
		class := attr(c, "class")
		if strings.Contains(class, "description") || strings.Contains(class, "summary") || strings.Contains(class, "desc") {
			return strings.TrimSpace(textContent(c))
		}
	}

	return ""
}
