package auditwatch

import (
	"strings"
	"testing"
)

func TestExtractReportNumber(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		title    string
		expected string
	}{
		{
			name:     "number in url path segment",
			url:      "https://www.efk.admin.ch/fr/audit/2024/25099-audit-risques/",
			title:    "Audit des risques informatiques",
			expected: "25099",
		},
		{
			name:     "year segment does not shadow the report number",
			url:      "https://www.efk.admin.ch/prufung/2023/23456-bundesfinanzen/",
			title:    "Prüfung der Bundesfinanzen",
			expected: "23456",
		},
		{
			name:     "keyword prefixed number in url",
			url:      "https://www.efk.admin.ch/fr/publications/rapport-25102/",
			title:    "Surveillance des subventions",
			expected: "25102",
		},
		{
			name:     "number after keyword in title",
			url:      "https://www.efk.admin.ch/fr/audit/securite-sociale/",
			title:    "Rapport 25101 : assurances sociales",
			expected: "25101",
		},
		{
			name:     "bracketed number in title",
			url:      "https://www.efk.admin.ch/it/verifica/speciale/",
			title:    "Verifica speciale [4521]",
			expected: "4521",
		},
		{
			name:     "nr prefix in title",
			url:      "https://www.efk.admin.ch/publikationen/sonderbericht/",
			title:    "Sonderbericht (Nr. 24087) zur Altersvorsorge",
			expected: "24087",
		},
		{
			name:     "standalone digit run in title",
			url:      "https://www.efk.admin.ch/fr/audit/divers/",
			title:    "Contrôle 25110 des marchés publics",
			expected: "25110",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractReportNumber(tt.url, tt.title)
			if got != tt.expected {
				t.Errorf("ExtractReportNumber(%q, %q) = %q, want %q", tt.url, tt.title, got, tt.expected)
			}
		})
	}
}

func TestExtractReportNumberFallback(t *testing.T) {
	url := "https://www.efk.admin.ch/fr/audit/surveillance-frontieres/"
	title := "Surveillance des frontières"

	got := ExtractReportNumber(url, title)
	if !strings.HasPrefix(got, "SDF-") {
		t.Errorf("fallback number %q should start with title initials SDF-", got)
	}
	if len(got) != len("SDF-")+8 {
		t.Errorf("fallback number %q should carry an 8-character hash suffix", got)
	}

	// Same inputs must always produce the same identifier.
	if again := ExtractReportNumber(url, title); again != got {
		t.Errorf("fallback not deterministic: %q vs %q", got, again)
	}

	// A different URL must produce a different hash even with the same title.
	other := ExtractReportNumber("https://www.efk.admin.ch/fr/audit/surveillance-aeroports/", title)
	if other == got {
		t.Errorf("different URLs produced the same fallback number %q", got)
	}
}

func TestExtractReportNumberYearOnly(t *testing.T) {
	// A URL whose only digit run is a year must not adopt the year as
	// report number.
	got := ExtractReportNumber("https://www.efk.admin.ch/fr/audit/2024/bilan/", "Bilan annuel")
	if got == "2024" {
		t.Errorf("year was mistaken for a report number")
	}
	if !strings.HasPrefix(got, "BA-") {
		t.Errorf("expected hash fallback with initials BA-, got %q", got)
	}
}
