package reports

import (
	"strings"

	"github.com/zombar/auditwatch/models"
)

// Correction overrides a stored report's URL and/or title. Empty fields
// leave the stored value untouched.
type Correction struct {
	URL   string
	Title string
}

// CleanupConfig drives CleanBuckets.
type CleanupConfig struct {
	// BadPatterns: a report whose URL contains any of these is dropped.
	BadPatterns []string
	// NavigationKeywords: a report whose title (lowercased) contains one
	// of these is dropped.
	NavigationKeywords []string
	// GenericTitles: a report whose whole title (lowercased) equals one
	// of these is dropped.
	GenericTitles []string
	// Corrections maps report IDs to manual fixes for known-bad entries.
	Corrections map[string]Correction
}

// DefaultCleanupConfig returns the cleanup rules for stored buckets. The
// patterns mirror the scrape-time exclusions so that entries stored by
// earlier, laxer versions get swept out too.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		BadPatterns: []string{
			"/publications/", "/publikationen/", "/pubblicazioni/",
			"mailto:", "javascript:", "#",
		},
		NavigationKeywords: []string{
			"retour", "zurück", "indietro",
			"en savoir plus", "mehr erfahren", "per saperne di più",
		},
		GenericTitles: []string{
			"publications", "publikationen", "pubblicazioni",
		},
		Corrections: map[string]Correction{},
	}
}

// CleanBuckets removes junk entries from the given buckets in place,
// drops duplicate (URL, language) pairs, and applies manual corrections.
// Duplicates are resolved first occurrence wins, across all given buckets
// in order. It returns the number of reports removed.
func CleanBuckets(cfg CleanupConfig, buckets ...models.Buckets) int {
	removed := 0
	seenURLs := make(map[models.Language]map[string]bool)
	for _, lang := range models.Languages() {
		seenURLs[lang] = make(map[string]bool)
	}
	for _, b := range buckets {
		for _, lang := range models.Languages() {
			kept := b[lang][:0]
			for _, r := range b[lang] {
				if isJunk(cfg, r) {
					removed++
					continue
				}
				if r.URL != "" {
					if seenURLs[lang][r.URL] {
						removed++
						continue
					}
					seenURLs[lang][r.URL] = true
				}
				if c, ok := cfg.Corrections[r.ID]; ok {
					if c.URL != "" {
						r.URL = c.URL
					}
					if c.Title != "" {
						r.Title = c.Title
					}
				}
				kept = append(kept, r)
			}
			b[lang] = kept
		}
	}
	return removed
}

func isJunk(cfg CleanupConfig, r models.Report) bool {
	urlLower := strings.ToLower(r.URL)
	for _, pat := range cfg.BadPatterns {
		if strings.HasSuffix(urlLower, pat) || strings.Contains(urlLower, pat+"?") {
			return true
		}
		if pat == "mailto:" || pat == "javascript:" || pat == "#" {
			if strings.Contains(urlLower, pat) {
				return true
			}
		}
	}

	titleLower := strings.ToLower(strings.TrimSpace(r.Title))
	for _, kw := range cfg.NavigationKeywords {
		if strings.Contains(titleLower, kw) {
			return true
		}
	}
	for _, g := range cfg.GenericTitles {
		if titleLower == g {
			return true
		}
	}

	return false
}
