package auditwatch

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/zombar/auditwatch/models"
)

// Typographic spacing differs between the three languages: French puts a
// space before double punctuation, German and Italian only after.
type titleRule struct {
	re   *regexp.Regexp
	repl string
}

var titleRules = map[models.Language][]titleRule{
	models.LangFR: {
		{regexp.MustCompile(`\s*:\s*`), " : "},
		{regexp.MustCompile(`\s*;\s*`), " ; "},
		{regexp.MustCompile(`\s*\?\s*`), " ? "},
		{regexp.MustCompile(`\s*!\s*`), " ! "},
		{regexp.MustCompile(`\s*»\s*`), " »"},
		{regexp.MustCompile(`\s*«\s*`), "« "},
		{regexp.MustCompile(`\s*%`), "%"},
		{regexp.MustCompile(`\s*€\s*`), " €"},
		{regexp.MustCompile(`\s*\$\s*`), " $"},
		{regexp.MustCompile(`\s*°\s*`), "°"},
	},
	models.LangDE: {
		{regexp.MustCompile(`\s*:\s*`), ": "},
		{regexp.MustCompile(`\s*;\s*`), "; "},
		{regexp.MustCompile(`\s*\?\s*`), "? "},
		{regexp.MustCompile(`\s*!\s*`), "! "},
		{regexp.MustCompile(`„\s*`), "„"},
		{regexp.MustCompile(`\s*“`), "“"},
		{regexp.MustCompile(`\s*%`), " %"},
		{regexp.MustCompile(`\s*€\s*`), " €"},
		{regexp.MustCompile(`\s*\$\s*`), " $"},
		{regexp.MustCompile(`\s*°\s*`), "°"},
	},
	models.LangIT: {
		{regexp.MustCompile(`\s*:\s*`), ": "},
		{regexp.MustCompile(`\s*;\s*`), "; "},
		{regexp.MustCompile(`\s*\?\s*`), "? "},
		{regexp.MustCompile(`\s*!\s*`), "! "},
		{regexp.MustCompile(`«\s*`), "«"},
		{regexp.MustCompile(`\s*»`), "»"},
		{regexp.MustCompile(`\s*%`), " %"},
		{regexp.MustCompile(`\s*€\s*`), " €"},
		{regexp.MustCompile(`\s*\$\s*`), " $"},
		{regexp.MustCompile(`\s*°\s*`), "°"},
	},
}

var (
	reHyphenSpacing  = regexp.MustCompile(`\s*-\s*`)
	reTrailingDots   = regexp.MustCompile(`\.+$`)
	reTerminalPunct  = regexp.MustCompile(`[.!?»"“”'’]$`)
	reStraightQuotes = regexp.MustCompile(`"([^"]+)"`)
)

// leadingQuoteGlyphs are skipped when capitalizing the first letter.
const leadingQuoteGlyphs = `"«»„“`

// CleanTitle normalizes a raw anchor text into a display title: whitespace
// collapsing, language-specific punctuation spacing, first-letter
// capitalization and terminal punctuation. Empty input yields an empty
// string; the function never fails.
func CleanTitle(title string, lang models.Language) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}

	// Non-breaking space variants first, then collapse runs of whitespace.
	title = strings.ReplaceAll(title, " ", " ")
	title = strings.ReplaceAll(title, " ", " ")
	title = strings.Join(strings.Fields(title), " ")

	rules, ok := titleRules[lang]
	if !ok {
		rules = titleRules[models.LangFR]
	}
	for _, r := range rules {
		title = r.re.ReplaceAllString(title, r.repl)
	}

	title = strings.Join(strings.Fields(title), " ")
	title = reHyphenSpacing.ReplaceAllString(title, "-")
	title = capitalizeFirst(title)
	title = strings.TrimSpace(title)

	if title != "" {
		title = reTrailingDots.ReplaceAllString(title, "")
		if title != "" && !reTerminalPunct.MatchString(title) {
			title += "."
		}
	}

	if lang == models.LangFR {
		title = reStraightQuotes.ReplaceAllString(title, "«$1»")
	}

	return title
}

func capitalizeFirst(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	i := 0
	if strings.ContainsRune(leadingQuoteGlyphs, runes[0]) && len(runes) > 1 {
		i = 1
	}
	runes[i] = unicode.ToUpper(runes[i])
	return string(runes)
}
