package auditwatch

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

// Report numbers like "25099" appear in several URL and title shapes on the
// audit-office site. The rules below are tried in priority order; the first
// match wins.
var (
	reSegmentDigits   = regexp.MustCompile(`^(\d{3,})(?:[-_.]|$)`)
	reURLAlphaPrefix  = regexp.MustCompile(`/(?:[A-Za-z]{2,}[-_])?(\d{3,})[-/]`)
	reTitleBracketed  = regexp.MustCompile(`\[(\d{3,})\]`)
	reTitleParens     = regexp.MustCompile(`\((\d{3,})\)`)
	reStandaloneDigit = regexp.MustCompile(`\b(\d{3,})\b`)

	numberKeywords      = []string{"rapport", "bericht", "report", "rapporto", "verifica", "audit", "prufung"}
	titleNumberKeywords = []string{"rapport", "bericht", "report", "rapporto", "verifica"}

	reTitleRefPrefixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\([n][o°º]\s*(\d{3,})\)`),
		regexp.MustCompile(`(?i)\([n]r[.:]?\s*(\d{3,})\)`),
		regexp.MustCompile(`(?i)\b(?:ref|reference|référence)[.:]?\s*(\d{3,})\b`),
	}

	reURLKeywordNumber   map[string]*regexp.Regexp
	reTitleKeywordNumber map[string]*regexp.Regexp
)

func init() {
	reURLKeywordNumber = make(map[string]*regexp.Regexp, len(numberKeywords))
	for _, kw := range numberKeywords {
		reURLKeywordNumber[kw] = regexp.MustCompile(kw + `[-_](\d{3,})`)
	}
	reTitleKeywordNumber = make(map[string]*regexp.Regexp, len(titleNumberKeywords))
	for _, kw := range titleNumberKeywords {
		reTitleKeywordNumber[kw] = regexp.MustCompile(kw + `[\s:]+(\d{3,})`)
	}
}

// ExtractReportNumber derives the report number from a URL and title. The
// result is deterministic for a given (url, title) pair: when no numeric run
// is found, a content hash of the URL is used instead of failing.
func ExtractReportNumber(rawURL, title string) string {
	urlLower := strings.ToLower(rawURL)
	titleLower := strings.ToLower(title)

	// 1. Path segment starting with a digit run ("/25099-audit-risques/").
	// Year segments like /2024/ are skipped; they delimit archives, not
	// reports.
	if n := urlSegmentNumber(rawURL); n != "" {
		return n
	}

	// 2. Keyword-prefixed digit run in the URL (rapport-25099, bericht_25101).
	for _, kw := range numberKeywords {
		if m := reURLKeywordNumber[kw].FindStringSubmatch(urlLower); m != nil {
			return m[1]
		}
	}

	// 3. Optional alphabetic prefix before the digit run.
	if n := firstNonYear(reURLAlphaPrefix.FindAllStringSubmatch(rawURL, -1)); n != "" {
		return n
	}

	// 4. Keyword-prefixed digit run in the title ("Rapport 25099: ...").
	for _, kw := range titleNumberKeywords {
		if m := reTitleKeywordNumber[kw].FindStringSubmatch(titleLower); m != nil {
			return m[1]
		}
	}

	// 5. Bracketed or parenthesized digit run in the title.
	if n := firstNonYear(reTitleBracketed.FindAllStringSubmatch(title, -1)); n != "" {
		return n
	}
	if n := firstNonYear(reTitleParens.FindAllStringSubmatch(title, -1)); n != "" {
		return n
	}

	// 6. "No / Nr. / ref" prefixed digit run in the title.
	for _, re := range reTitleRefPrefixes {
		if m := re.FindStringSubmatch(title); m != nil {
			return m[1]
		}
	}

	// 7. Any standalone digit run in URL or title.
	if n := firstNonYear(reStandaloneDigit.FindAllStringSubmatch(rawURL+" "+title, -1)); n != "" {
		return n
	}

	// 8. Content-hash fallback. Hashing the URL alone keeps the identifier
	// stable across scrape days for reports without a number.
	return fallbackNumber(rawURL, title)
}

var reYear = regexp.MustCompile(`^(?:19|20)\d{2}$`)

// urlSegmentNumber scans the URL path segments for one that starts with a
// non-year digit run.
func urlSegmentNumber(rawURL string) string {
	path := rawURL
	if idx := strings.Index(path, "://"); idx != -1 {
		path = path[idx+3:]
	}
	if slash := strings.Index(path, "/"); slash != -1 {
		path = path[slash:]
	} else {
		return ""
	}
	for _, seg := range strings.Split(path, "/") {
		if m := reSegmentDigits.FindStringSubmatch(seg); m != nil && !reYear.MatchString(m[1]) {
			return m[1]
		}
	}
	return ""
}

// firstNonYear returns the first captured digit run that does not look
// like a calendar year.
func firstNonYear(matches [][]string) string {
	for _, m := range matches {
		if len(m) > 1 && !reYear.MatchString(m[1]) {
			return m[1]
		}
	}
	return ""
}

var reSignificantWord = regexp.MustCompile(`[\p{L}\p{N}_]{3,}`)

func fallbackNumber(rawURL, title string) string {
	sum := sha256.Sum256([]byte(rawURL))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))[:8]

	words := reSignificantWord.FindAllString(title, 3)
	var prefix strings.Builder
	for _, w := range words {
		r := []rune(w)[0]
		prefix.WriteRune(unicode.ToUpper(r))
	}
	if prefix.Len() == 0 {
		prefix.WriteString("RPT")
	}
	return prefix.String() + "-" + digest
}
