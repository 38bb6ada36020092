package reports

import (
	"fmt"
	"strings"

	"github.com/zombar/auditwatch/models"
	"github.com/zombar/auditwatch/slug"
)

// TranslationPendingPrefix marks a gap-filled title whose translation has
// not been published yet.
const TranslationPendingPrefix = "[Traduction] "

// langPathPrefix is the URL path convention of each language on the
// publication site. German reports live at the site root.
var langPathPrefix = map[models.Language]string{
	models.LangDE: "/prufung/",
	models.LangFR: "/fr/audit/",
	models.LangIT: "/it/verifica/",
}

// FillGaps ensures every report number present in some language of either
// bucket also exists in the others. For each missing (language, number)
// pair it synthesizes a placeholder entry in the new bucket with a
// rewritten URL and a translation-pending title. Numbers already known in
// the target language (in either bucket) are left alone, which makes the
// operation idempotent. It returns the count of entries added per
// language.
func FillGaps(newBucket, archived models.Buckets) map[models.Language]int {
	added := make(map[models.Language]int)

	// All numbers seen in either bucket, with the best source report for
	// each. The new bucket is indexed first so a fresh scrape wins over
	// an archived entry; languages iterate in fixed order so the choice
	// is deterministic.
	type source struct {
		report models.Report
	}
	numbers := make(map[string]source)
	for _, b := range []models.Buckets{newBucket, archived} {
		for _, lang := range models.Languages() {
			for _, r := range b[lang] {
				if r.Number == "" {
					continue
				}
				if _, ok := numbers[r.Number]; !ok {
					numbers[r.Number] = source{report: r}
				}
			}
		}
	}

	for _, lang := range models.Languages() {
		known := KnownIDs(lang, newBucket, archived)
		for number, src := range numbers {
			id := models.ReportID(lang, number)
			if known[id] {
				continue
			}
			if src.report.Language == lang {
				continue
			}

			title := src.report.Title
			if !strings.HasPrefix(title, TranslationPendingPrefix) {
				title = TranslationPendingPrefix + title
			}

			newBucket[lang] = append(newBucket[lang], models.Report{
				ID:              id,
				Title:           title,
				Category:        src.report.Category,
				Number:          number,
				PublicationDate: src.report.PublicationDate,
				URL:             translatedURL(src.report, lang),
				Language:        lang,
				Source:          src.report.Source,
				ScrapedAt:       src.report.ScrapedAt,
			})
			added[lang]++
		}
		if added[lang] > 0 {
			SortByDate(newBucket[lang])
		}
	}

	return added
}

// translatedURL rewrites the source report's URL into the target
// language's path convention. When the source URL does not follow the
// known convention, a URL is built from the report's number, year, and
// title slug instead.
func translatedURL(r models.Report, to models.Language) string {
	if url, ok := RewriteURL(r.URL, r.Language, to); ok {
		return url
	}
	base := siteRoot(r.URL)
	year := fmt.Sprintf("%d", ParseDate(r.PublicationDate).Year())
	title := strings.TrimPrefix(r.Title, TranslationPendingPrefix)
	return slug.ReportURL(base, string(to), r.Number, year, title)
}

// RewriteURL translates a report URL from one language's path convention
// to another's. The second return is false when the source URL does not
// follow the known convention.
func RewriteURL(url string, from, to models.Language) (string, bool) {
	fromPrefix, okFrom := langPathPrefix[from]
	toPrefix, okTo := langPathPrefix[to]
	if !okFrom || !okTo {
		return url, false
	}
	if !strings.Contains(url, fromPrefix) {
		return url, false
	}
	return strings.Replace(url, fromPrefix, toPrefix, 1), true
}

// siteRoot extracts scheme and host from a URL.
func siteRoot(url string) string {
	idx := strings.Index(url, "://")
	if idx == -1 {
		return url
	}
	rest := url[idx+3:]
	if slash := strings.Index(rest, "/"); slash != -1 {
		return url[:idx+3+slash]
	}
	return url
}
