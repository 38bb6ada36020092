package auditwatch

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/zombar/auditwatch/models"
)

// Config contains scraper configuration
type Config struct {
	HTTPTimeout    time.Duration
	UserAgent      string
	RetryUserAgent string // Alternate user agent used on the single retry
	RetryBackoff   time.Duration

	BaseURL        string                     // Site root used to resolve relative hrefs
	ListingURLs    map[models.Language]string // Primary listing page per language
	AlternateURLs  map[models.Language]string // Fallback listing page per language
	MaxReports     int                        // Max candidates kept per language per cycle
	LookupDates    bool                       // Fetch each report page for its publication date
	Selectors      SelectorRules
	ScoreThreshold int // Minimum score for a candidate to be kept
	NewBucketCap   int // Max reports retained in the new bucket per language
}

// DefaultConfig returns default scraper configuration
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:    30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		RetryUserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		RetryBackoff:   5 * time.Second,
		BaseURL:        "https://www.efk.admin.ch",
		ListingURLs: map[models.Language]string{
			models.LangFR: "https://www.efk.admin.ch/fr/publications/",
			models.LangDE: "https://www.efk.admin.ch/publikationen/",
			models.LangIT: "https://www.efk.admin.ch/it/pubblicazioni/",
		},
		AlternateURLs: map[models.Language]string{
			models.LangFR: "https://www.efk.admin.ch/fr/publications/rapports-daudit/",
			models.LangDE: "https://www.efk.admin.ch/publikationen/pruefberichte/",
			models.LangIT: "https://www.efk.admin.ch/it/pubblicazioni/rapporti-di-verifica/",
		},
		MaxReports:     30,
		LookupDates:    true,
		Selectors:      DefaultSelectorRules(),
		ScoreThreshold: 2,
		NewBucketCap:   100,
	}
}

// minUsefulBodySize: listing pages smaller than this are assumed to be
// bot-gated stubs and trigger the alternate URL.
const minUsefulBodySize = 1000

// Scraper extracts audit report links from listing pages
type Scraper struct {
	config  Config
	fetcher Fetcher
}

// New creates a new Scraper instance
func New(config Config, fetcher Fetcher) *Scraper {
	if fetcher == nil {
		fetcher = NewHTTPFetcher(config)
	}
	return &Scraper{
		config:  config,
		fetcher: fetcher,
	}
}

// ScrapeLanguage fetches the listing page for lang and returns the reports
// found on it, best-scored first. A page that yields zero candidates is not
// an error; a fetch failure is.
func (s *Scraper) ScrapeLanguage(ctx context.Context, lang models.Language) ([]models.Report, error) {
	listingURL, ok := s.config.ListingURLs[lang]
	if !ok {
		return nil, fmt.Errorf("no listing URL configured for language %q", lang)
	}

	body, err := s.fetcher.Fetch(ctx, listingURL, lang)
	if err != nil {
		return nil, err
	}

	if len(body) < minUsefulBodySize {
		if altURL, ok := s.config.AlternateURLs[lang]; ok {
			log.Printf("listing page %s returned %d bytes, trying alternate %s", listingURL, len(body), altURL)
			altBody, altErr := s.fetcher.Fetch(ctx, altURL, lang)
			if altErr == nil && len(altBody) > len(body) {
				body = altBody
			}
		}
	}

	candidates, err := s.scanDocument(body, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	reports := make([]models.Report, 0, len(candidates))
	seen := make(map[string]bool)
	for _, c := range candidates {
		if len(reports) >= s.config.MaxReports {
			break
		}
		title := CleanTitle(c.Text, lang)
		number := ExtractReportNumber(c.URL, title)
		id := models.ReportID(lang, number)
		if seen[id] {
			continue
		}
		seen[id] = true

		pubDate := s.lookupPublicationDate(ctx, c, lang)

		reports = append(reports, models.Report{
			ID:              id,
			Title:           title,
			Category:        DetermineCategory(title, c.URL, lang),
			Number:          number,
			PublicationDate: pubDate,
			URL:             c.URL,
			Language:        lang,
			Source:          listingURL,
			ScrapedAt:       time.Now().UTC(),
		})
	}

	return reports, nil
}

// scanDocument extracts, scores, and filters anchor candidates from an HTML
// body. Candidates are gathered from sections whose class matches the
// section pattern; if no such section exists, every anchor on the page is
// considered.
func (s *Scraper) scanDocument(body []byte, lang models.Language) ([]models.CandidateLink, error) {
	// Older listing pages are served as ISO-8859-1; normalize to UTF-8
	// before parsing.
	reader, err := charset.NewReader(bytes.NewReader(body), "text/html")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, err
	}

	anchors := s.collectAnchors(doc)

	var kept []models.CandidateLink
	seen := make(map[string]bool)
	for _, c := range anchors {
		c.Score = scoreCandidate(c, lang, s.config.Selectors)
		if c.Score < s.config.ScoreThreshold {
			continue
		}
		if !keepCandidate(c, lang) {
			continue
		}
		// First occurrence wins; listings repeat links in teasers.
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		kept = append(kept, c)
	}

	return kept, nil
}

func (s *Scraper) collectAnchors(doc *goquery.Document) []models.CandidateLink {
	var scope *goquery.Selection

	doc.Find("div, section, article, main, ul").Each(func(_ int, sel *goquery.Selection) {
		class, _ := sel.Attr("class")
		if class != "" && s.config.Selectors.SectionPattern.MatchString(class) {
			if scope == nil {
				scope = sel
			} else {
				scope = scope.AddSelection(sel)
			}
		}
	})

	var search *goquery.Selection
	if scope != nil {
		search = scope.Find("a[href]")
	} else {
		search = doc.Find("a[href]")
	}

	var candidates []models.CandidateLink
	search.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if len(href) < 5 {
			return
		}

		resolved := s.resolveURL(href)
		if resolved == "" {
			return
		}

		candidates = append(candidates, models.CandidateLink{
			URL:             resolved,
			Text:            strings.TrimSpace(a.Text()),
			SurroundingText: strings.TrimSpace(a.Parent().Text()),
			ParentClasses:   parentClasses(a),
		})
	})

	return candidates
}

// resolveURL turns an href into an absolute URL on the configured site.
// External hosts are skipped: cross-site links on listing pages are never
// reports.
func (s *Scraper) resolveURL(href string) string {
	switch {
	case strings.HasPrefix(href, "/"):
		return strings.TrimSuffix(s.config.BaseURL, "/") + href
	case strings.HasPrefix(href, s.config.BaseURL):
		return href
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return ""
	default:
		return ""
	}
}

func parentClasses(a *goquery.Selection) []string {
	var classes []string
	for p := a.Parent(); p.Length() > 0; p = p.Parent() {
		if class, ok := p.Attr("class"); ok && class != "" {
			classes = append(classes, class)
		}
		if goquery.NodeName(p) == "body" {
			break
		}
	}
	return classes
}

// lookupPublicationDate finds a date for the candidate. It first scans the
// anchor's own text and surroundings; with LookupDates enabled it also
// fetches the report page and checks meta tags and date-classed elements.
// When nothing is found the scrape date is used.
func (s *Scraper) lookupPublicationDate(ctx context.Context, c models.CandidateLink, lang models.Language) string {
	if d := firstDate(c.Text); d != "" {
		return normalizeDate(d)
	}
	if d := firstDate(c.SurroundingText); d != "" {
		return normalizeDate(d)
	}

	if s.config.LookupDates {
		if d := s.fetchPageDate(ctx, c.URL, lang); d != "" {
			return normalizeDate(d)
		}
	}

	return time.Now().Format("02.01.2006")
}

func (s *Scraper) fetchPageDate(ctx context.Context, url string, lang models.Language) string {
	body, err := s.fetcher.Fetch(ctx, url, lang)
	if err != nil {
		log.Printf("date lookup failed for %s: %v", url, err)
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var found string
	doc.Find(`meta[property="article:published_time"], meta[name="date"], meta[name="DC.date"]`).EachWithBreak(func(_ int, m *goquery.Selection) bool {
		if content, ok := m.Attr("content"); ok {
			if d := firstDate(content); d != "" {
				found = d
				return false
			}
		}
		return true
	})
	if found != "" {
		return found
	}

	doc.Find("time, span, div").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		class, _ := el.Attr("class")
		if class == "" || !s.config.Selectors.DatePattern.MatchString(class) {
			return true
		}
		if d := firstDate(el.Text()); d != "" {
			found = d
			return false
		}
		return true
	})
	return found
}

func firstDate(text string) string {
	for _, re := range datePatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// normalizeDate converts any recognized date format to DD.MM.YYYY.
func normalizeDate(d string) string {
	for _, layout := range []string{"02.01.2006", "2.1.2006", "02/01/2006", "2/1/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, d); err == nil {
			return t.Format("02.01.2006")
		}
	}
	return d
}
