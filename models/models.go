package models

import "time"

// Language is one of the three publication languages of the audit office.
type Language string

const (
	LangFR Language = "fr"
	LangDE Language = "de"
	LangIT Language = "it"
)

// Languages returns all supported languages in a stable order.
func Languages() []Language {
	return []Language{LangFR, LangDE, LangIT}
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case LangFR, LangDE, LangIT:
		return true
	}
	return false
}

// Report represents one discovered audit report in one language.
type Report struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	Number          string    `json:"number"`
	PublicationDate string    `json:"publication_date"` // DD.MM.YYYY, best effort
	URL             string    `json:"url"`
	Language        Language  `json:"language"`
	Source          string    `json:"source"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// ReportID derives the stable report identifier from language and number.
// Re-scraping the same report always yields the same id.
func ReportID(lang Language, number string) string {
	return string(lang) + "_" + number
}

// Buckets is a per-language collection of reports. It is the unit of
// persistence: one JSON document per bucket (new / archived).
type Buckets map[Language][]Report

// NewBuckets returns a Buckets value with an empty slice per language so
// serialized documents always carry all three keys.
func NewBuckets() Buckets {
	b := make(Buckets, 3)
	for _, lang := range Languages() {
		b[lang] = []Report{}
	}
	return b
}

// Total returns the number of reports across all languages.
func (b Buckets) Total() int {
	n := 0
	for _, rs := range b {
		n += len(rs)
	}
	return n
}

// CandidateLink is an anchor element under consideration during a page scan.
// Candidates are never persisted; they are discarded after promotion to a
// Report or rejection.
type CandidateLink struct {
	URL             string
	Text            string
	SurroundingText string
	ParentClasses   []string
	Score           int
}

// CycleStats summarizes one scrape-and-sync cycle.
type CycleStats struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
	Scraped    map[Language]int `json:"scraped"`
	NewReports map[Language]int `json:"new_reports"`
	GapFilled  map[Language]int `json:"gap_filled"`
	Errors     []string         `json:"errors,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
	Notified   bool             `json:"notified"`
}

// TotalNew returns the number of genuinely new reports across languages,
// excluding gap-filled placeholders.
func (s *CycleStats) TotalNew() int {
	n := 0
	for _, c := range s.NewReports {
		n += c
	}
	return n
}
