package auditwatch

import (
	"regexp"
	"strings"

	"github.com/zombar/auditwatch/models"
)

// SelectorRules carries the compiled patterns used to select document
// sections and judge anchor context. They are part of Config so tests can
// swap them out for synthetic pages.
type SelectorRules struct {
	// SectionPattern matches class attributes of containers likely to
	// hold report listings.
	SectionPattern *regexp.Regexp
	// NavPattern matches class attributes of navigation chrome; anchors
	// inside such containers are penalized.
	NavPattern *regexp.Regexp
	// DatePattern matches class attributes of elements carrying
	// publication dates.
	DatePattern *regexp.Regexp
}

// DefaultSelectorRules returns the rules tuned for Swiss federal audit
// sites.
func DefaultSelectorRules() SelectorRules {
	return SelectorRules{
		SectionPattern: regexp.MustCompile(`(?i)(report|audit|bericht|rapport|publication|news)`),
		NavPattern:     regexp.MustCompile(`(?i)(nav|menu|footer)`),
		DatePattern:    regexp.MustCompile(`(?i)(date|publi|published|updated)`),
	}
}

// reportPathPatterns are URL path fragments that strongly suggest a report
// detail page, per language.
var reportPathPatterns = map[models.Language][]string{
	models.LangDE: {"/prufung/", "/berichte/", "/bericht/"},
	models.LangFR: {"/audit/", "/rapports/", "/rapport/"},
	models.LangIT: {"/verifica/", "/rapporti/", "/rapporto/"},
}

// languageKeywords score both URL and anchor text; casing is folded before
// lookup.
var languageKeywords = map[models.Language][]string{
	models.LangDE: {"prüfung", "bericht", "evaluation", "untersuchung", "analyse", "kontrolle"},
	models.LangFR: {"audit", "rapport", "évaluation", "enquête", "analyse", "contrôle"},
	models.LangIT: {"verifica", "rapporto", "valutazione", "inchiesta", "analisi", "controllo"},
}

// excludePatterns disqualify an anchor outright regardless of score.
var excludePatterns = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".zip", ".doc", ".docx", ".xls", ".xlsx",
	"mailto:", "tel:", "javascript:", "#", "?",
	"/kontakt", "/contact", "/contatto",
	"/impressum", "/mentions-legales", "/impressum-it",
	"/sitemap", "/suche", "/recherche", "/ricerca",
	"/newsletter", "/rss", "/medien", "/medias",
	"/login", "/logout",
}

// datePatterns recognize the date formats published on the target sites.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
}

// navigationWords are stems of navigation-link texts, matched by
// containment. The union across languages is applied, since breadcrumbs
// frequently keep the site's primary language. Stems must stay specific
// enough not to occur inside real report titles.
var navigationWords = map[models.Language][]string{
	models.LangFR: {"retour", "précédent", "haut de page", "menu", "accueil", "navigation"},
	models.LangDE: {"zurück", "vorherige", "seitenanfang", "menü", "startseite"},
	models.LangIT: {"indietro", "precedente", "inizio pagina", "home"},
}

// genericTitles are exact (case-insensitive) titles that carry no report
// content.
var genericTitles = []string{
	"publications", "publikationen", "pubblicazioni",
	"rapports", "berichte", "rapporti",
	"actualités", "aktuell", "attualità",
	"communiqués", "medienmitteilungen", "comunicati",
	"documents", "dokumente", "documenti",
}

// categoryPageIndicators mark anchors leading to category or index pages
// rather than individual reports, matched by containment. Only the
// candidate's own language is checked; stems like "alle" are too short to
// apply across languages.
var categoryPageIndicators = map[models.Language][]string{
	models.LangFR: {"tous les", "catégorie", "thème", "par date", "par thème"},
	models.LangDE: {"alle", "kategorie", "thema", "nach datum", "nach thema"},
	models.LangIT: {"tutti", "categoria", "tema", "per data", "per tema"},
}

const (
	// minTitleLen and maxTitleLen bound titles in the post-filter.
	minTitleLen = 30
	maxTitleLen = 200

	// minTextBonusLen and maxTextBonusLen bound the score bonus for
	// anchor text length.
	minTextBonusLen = 15
	maxTextBonusLen = 150
)

// scoreCandidate assigns a heuristic relevance score to an anchor. A
// negative return means the anchor is excluded outright.
func scoreCandidate(c models.CandidateLink, lang models.Language, rules SelectorRules) int {
	urlLower := strings.ToLower(c.URL)
	textLower := strings.ToLower(c.Text)

	if hardExcluded(urlLower) {
		return -1
	}
	if isNavigationText(textLower) {
		return 0
	}

	score := 0

	for _, pat := range reportPathPatterns[lang] {
		if strings.Contains(urlLower, pat) {
			score += 2
			break
		}
	}

	for _, kw := range languageKeywords[lang] {
		if strings.Contains(urlLower, kw) {
			score++
		}
		if strings.Contains(textLower, kw) {
			score++
		}
	}

	textLen := len([]rune(c.Text))
	if textLen >= minTextBonusLen && textLen < maxTextBonusLen {
		score++
	}

	if hasDateNearby(c) {
		score++
	}

	for _, class := range c.ParentClasses {
		if rules.NavPattern.MatchString(class) {
			score--
			break
		}
	}

	return score
}

func hardExcluded(urlLower string) bool {
	for _, pat := range excludePatterns {
		if strings.Contains(urlLower, pat) {
			return true
		}
	}
	return false
}

func hasDateNearby(c models.CandidateLink) bool {
	for _, re := range datePatterns {
		if re.MatchString(c.Text) || re.MatchString(c.SurroundingText) {
			return true
		}
	}
	return false
}

// isNavigationText reports whether anchor text (lowercased) contains a
// navigation stem from any language.
func isNavigationText(textLower string) bool {
	for _, words := range navigationWords {
		for _, w := range words {
			if strings.Contains(textLower, w) {
				return true
			}
		}
	}
	return false
}

// keepCandidate is the post-filter applied after scoring: it rejects
// out-of-range lengths, navigation links, generic listing titles, and
// links to category or index pages.
func keepCandidate(c models.CandidateLink, lang models.Language) bool {
	title := strings.TrimSpace(c.Text)
	titleLen := len([]rune(title))
	if titleLen < minTitleLen || titleLen > maxTitleLen {
		return false
	}

	titleLower := strings.ToLower(title)
	if isNavigationText(titleLower) {
		return false
	}
	for _, g := range genericTitles {
		if titleLower == g {
			return false
		}
	}
	for _, ind := range categoryPageIndicators[lang] {
		if strings.Contains(titleLower, ind) {
			return false
		}
	}
	return true
}
