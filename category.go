package auditwatch

import (
	"regexp"
	"strings"

	"github.com/zombar/auditwatch/models"
)

// DefaultCategory is the sentinel returned when no keyword matches.
const DefaultCategory = "divers"

type category struct {
	name     string
	keywords map[models.Language][]string
}

// Keyword tables per topical category. Stems are matched as substrings of
// the lowercased title so inflected forms ("financiers", "finanziellen")
// still hit.
var categories = []category{
	{"finances", map[models.Language][]string{
		models.LangFR: {"financ", "budg", "compte", "dépense", "recette", "dette", "déficit", "fiscal", "impôt", "taxe"},
		models.LangDE: {"finanz", "haushalt", "konto", "ausgabe", "einnahme", "schuld", "defizit", "steuer", "abgabe"},
		models.LangIT: {"finanz", "bilancio", "conto", "spesa", "entrata", "debito", "deficit", "fiscale", "tassa"},
	}},
	{"sécurité", map[models.Language][]string{
		models.LangFR: {"sécurit", "police", "gendarmerie", "armée", "défense", "terroris", "sûreté", "criminalité", "délinquance"},
		models.LangDE: {"sicherheit", "polizei", "gendarmerie", "armee", "verteidigung", "terror", "kriminalität"},
		models.LangIT: {"sicurezza", "polizia", "esercito", "difesa", "terrorismo", "criminalità"},
	}},
	{"santé", map[models.Language][]string{
		models.LangFR: {"santé", "hôpital", "médecin", "soin", "maladie", "médical", "pharmacie", "assurance maladie"},
		models.LangDE: {"gesundheit", "krankenhaus", "arzt", "pflege", "krankheit", "medizin", "apotheke", "krankenkasse"},
		models.LangIT: {"salute", "ospedale", "medico", "cura", "malattia", "farmacia", "assicurazione malattia"},
	}},
	{"éducation", map[models.Language][]string{
		models.LangFR: {"éducation", "école", "université", "formation", "enseignement", "élève", "étudiant", "professeur"},
		models.LangDE: {"bildung", "schule", "universität", "ausbildung", "unterricht", "schüler", "student", "lehrer"},
		models.LangIT: {"istruzione", "scuola", "università", "formazione", "insegnamento", "studente", "professore"},
	}},
	{"transport", map[models.Language][]string{
		models.LangFR: {"transport", "route", "train", "avion", "métro", "tram", "bus", "véhicule", "autoroute"},
		models.LangDE: {"verkehr", "straße", "zug", "flugzeug", "u-bahn", "tram", "bus", "fahrzeug", "autobahn"},
		models.LangIT: {"trasport", "strad", "treno", "aereo", "metropolitana", "tram", "autobus", "veicol", "autostrad"},
	}},
	{"environnement", map[models.Language][]string{
		models.LangFR: {"environnement", "climat", "pollution", "énergie", "déchet", "biodiversité", "nature"},
		models.LangDE: {"umwelt", "klima", "verschmutzung", "energie", "abfall", "biodiversität", "natur"},
		models.LangIT: {"ambiente", "clima", "inquinamento", "energia", "rifiuti", "biodiversità", "natura"},
	}},
	{"administration", map[models.Language][]string{
		models.LangFR: {"administration", "fonction publique", "service public", "état", "gouvernement", "collectivité"},
		models.LangDE: {"verwaltung", "öffentlicher dienst", "staat", "regierung", "gemeinde"},
		models.LangIT: {"amministrazione", "pubblica amministrazione", "stato", "governo", "comune"},
	}},
	{"social", map[models.Language][]string{
		models.LangFR: {"social", "famille", "personnes âgées", "handicap", "insertion", "pauvreté", "logement"},
		models.LangDE: {"sozial", "familie", "senioren", "behinderung", "integration", "armut", "wohnung"},
		models.LangIT: {"sociale", "famiglia", "anziani", "disabilità", "inclusione", "povertà", "alloggio"},
	}},
	{"culture", map[models.Language][]string{
		models.LangFR: {"culture", "patrimoine", "musée", "théâtre", "cinéma", "bibliothèque", "archive"},
		models.LangDE: {"kultur", "kulturerbe", "museum", "theater", "kino", "kunst", "bibliothek", "archiv"},
		models.LangIT: {"cultura", "patrimonio", "museo", "teatro", "cinema", "biblioteca", "archivio"},
	}},
	{"économie", map[models.Language][]string{
		models.LangFR: {"économie", "entreprise", "emploi", "chômage", "industrie", "commerce", "croissance", "pib"},
		models.LangDE: {"wirtschaft", "unternehmen", "beschäftigung", "arbeitslosigkeit", "industrie", "handel", "wachstum", "bip"},
		models.LangIT: {"economia", "impresa", "occupazione", "disoccupazione", "industria", "commercio", "crescita", "pil"},
	}},
}

// URL path segments trump title keywords; a report filed under /finances/
// is a finance report whatever its title says.
var urlCategorySegments = []struct {
	name     string
	segments []string
}{
	{"finances", []string{"finances", "finanzen", "finanze", "budget", "haushalt", "bilancio"}},
	{"sécurité", []string{"securite", "sicherheit", "sicurezza", "police", "polizei", "polizia"}},
	{"santé", []string{"sante", "gesundheit", "salute", "hopitaux", "krankenhaus", "ospedali"}},
	{"éducation", []string{"education", "bildung", "istruzione", "ecoles", "schulen", "scuole"}},
	{"transport", []string{"transport", "verkehr", "trasporti", "routes", "strassen", "strade"}},
}

var (
	reLegislation    = regexp.MustCompile(`(?i)\b(?:loi|ordonnance|décret|message)\s+[A-Z0-9.\-]+`)
	reOfficialReport = regexp.MustCompile(`(?i)\b(?:rapport|bericht|report)\s+[A-Z0-9.\-]+`)
)

// DetermineCategory maps a title (and optionally a URL) to one of the fixed
// categories. Total over all inputs; the request language's keywords are
// checked before the other two (scraped text sometimes leaks the wrong
// language), and DefaultCategory is returned when nothing matches.
func DetermineCategory(title, rawURL string, lang models.Language) string {
	if title == "" {
		return DefaultCategory
	}

	titleLower := strings.ToLower(title)
	urlLower := strings.ToLower(rawURL)

	if urlLower != "" {
		parts := strings.Split(urlLower, "/")
		for _, uc := range urlCategorySegments {
			for _, seg := range uc.segments {
				if containsString(parts, seg) {
					return uc.name
				}
			}
		}
	}

	for _, cat := range categories {
		if matchesAny(titleLower, cat.keywords[lang]) {
			return cat.name
		}
		for _, other := range models.Languages() {
			if other == lang {
				continue
			}
			if matchesAny(titleLower, cat.keywords[other]) {
				return cat.name
			}
		}
	}

	if reLegislation.MatchString(title) {
		return "législation"
	}
	if reOfficialReport.MatchString(title) {
		return "rapport officiel"
	}

	return DefaultCategory
}

func matchesAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsString(parts []string, s string) bool {
	for _, p := range parts {
		if p == s {
			return true
		}
	}
	return false
}
