// Package reports implements bucket maintenance: merging freshly scraped
// reports into the new/archived buckets, cross-language gap filling, and
// cleanup of entries that slipped past the scrape filters.
package reports

import (
	"sort"
	"time"

	"github.com/zombar/auditwatch/models"
)

// fallbackDate orders reports with unparseable publication dates last.
var fallbackDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseDate parses a DD.MM.YYYY publication date, returning fallbackDate
// when it does not parse.
func ParseDate(d string) time.Time {
	for _, layout := range []string{"02.01.2006", "2.1.2006"} {
		if t, err := time.Parse(layout, d); err == nil {
			return t
		}
	}
	return fallbackDate
}

// SortByDate orders reports newest first. Ties keep their relative order so
// repeated syncs are stable.
func SortByDate(reports []models.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return ParseDate(reports[i].PublicationDate).After(ParseDate(reports[j].PublicationDate))
	})
}

// Cap truncates reports to at most n entries. It assumes the slice is
// already sorted newest first.
func Cap(reports []models.Report, n int) []models.Report {
	if n > 0 && len(reports) > n {
		return reports[:n]
	}
	return reports
}

// Known indexes the reports already present in a language's buckets, by ID
// and by URL. The URL index catches pages whose extracted number changed
// between scraper generations; the language is implied by indexing one
// language at a time.
type Known struct {
	IDs  map[string]bool
	URLs map[string]bool
}

// IndexKnown builds the Known index over the given buckets for one
// language.
func IndexKnown(lang models.Language, buckets ...models.Buckets) Known {
	k := Known{IDs: make(map[string]bool), URLs: make(map[string]bool)}
	for _, b := range buckets {
		for _, r := range b[lang] {
			k.IDs[r.ID] = true
			if r.URL != "" {
				k.URLs[r.URL] = true
			}
		}
	}
	return k
}

// Has reports whether r matches an indexed report by ID or by URL.
func (k Known) Has(r models.Report) bool {
	if k.IDs[r.ID] {
		return true
	}
	return r.URL != "" && k.URLs[r.URL]
}

// Sync determines which scraped reports are genuinely new for a language.
// A scraped report is new only when no known report shares its ID and none
// shares its URL. The returned slice preserves scrape order.
func Sync(scraped []models.Report, known Known) []models.Report {
	var added []models.Report
	for _, r := range scraped {
		if known.Has(r) {
			continue
		}
		added = append(added, r)
	}
	return added
}

// KnownIDs builds the ID set of every report in the given buckets for one
// language.
func KnownIDs(lang models.Language, buckets ...models.Buckets) map[string]bool {
	ids := make(map[string]bool)
	for _, b := range buckets {
		for _, r := range b[lang] {
			ids[r.ID] = true
		}
	}
	return ids
}

// MergeUnique appends src reports to dst, skipping entries whose ID or URL
// dst already holds.
func MergeUnique(dst, src []models.Report) []models.Report {
	seenIDs := make(map[string]bool, len(dst))
	seenURLs := make(map[string]bool, len(dst))
	for _, r := range dst {
		seenIDs[r.ID] = true
		if r.URL != "" {
			seenURLs[r.URL] = true
		}
	}
	for _, r := range src {
		if seenIDs[r.ID] || (r.URL != "" && seenURLs[r.URL]) {
			continue
		}
		seenIDs[r.ID] = true
		if r.URL != "" {
			seenURLs[r.URL] = true
		}
		dst = append(dst, r)
	}
	return dst
}
