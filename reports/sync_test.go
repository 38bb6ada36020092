package reports

import (
	"testing"

	"github.com/zombar/auditwatch/models"
)

func report(lang models.Language, number, date string) models.Report {
	return models.Report{
		ID:              models.ReportID(lang, number),
		Title:           "Audit " + number,
		Number:          number,
		PublicationDate: date,
		URL:             "https://www.efk.admin.ch/fr/audit/2024/" + number + "-audit/",
		Language:        lang,
	}
}

func TestSyncSkipsKnownReports(t *testing.T) {
	scraped := []models.Report{
		report(models.LangFR, "25099", "15.01.2024"),
		report(models.LangFR, "25100", "22.01.2024"),
		report(models.LangFR, "25101", "29.01.2024"),
	}
	newBucket := models.NewBuckets()
	newBucket[models.LangFR] = []models.Report{
		report(models.LangFR, "25099", "15.01.2024"),
		report(models.LangFR, "25100", "22.01.2024"),
	}

	added := Sync(scraped, IndexKnown(models.LangFR, newBucket))
	if len(added) != 1 {
		t.Fatalf("expected 1 new report, got %d", len(added))
	}
	if added[0].ID != "fr_25101" {
		t.Errorf("added ID = %q, want fr_25101", added[0].ID)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	scraped := []models.Report{report(models.LangFR, "25099", "15.01.2024")}

	newBucket := models.NewBuckets()
	archived := models.NewBuckets()

	first := Sync(scraped, IndexKnown(models.LangFR, newBucket, archived))
	newBucket[models.LangFR] = first
	if len(first) != 1 {
		t.Fatalf("first sync: expected 1 report, got %d", len(first))
	}

	second := Sync(scraped, IndexKnown(models.LangFR, newBucket, archived))
	if len(second) != 0 {
		t.Errorf("second sync of the same scrape must add nothing, got %d", len(second))
	}
}

func TestSyncSkipsKnownURLs(t *testing.T) {
	// The page was first stored under a hash-fallback id; a later scrape
	// extracted the real number, so only the URL still matches.
	hashed := report(models.LangFR, "SDF-AAAA1111", "15.01.2024")
	rescraped := report(models.LangFR, "25200", "15.01.2024")
	rescraped.URL = hashed.URL

	archived := models.NewBuckets()
	archived[models.LangFR] = []models.Report{hashed}

	added := Sync([]models.Report{rescraped}, IndexKnown(models.LangFR, models.NewBuckets(), archived))
	if len(added) != 0 {
		t.Errorf("a known URL must not be re-added under a new id, got %v", added)
	}
}

func TestKnownIDsSpansBuckets(t *testing.T) {
	newBucket := models.NewBuckets()
	archived := models.NewBuckets()
	newBucket[models.LangFR] = []models.Report{report(models.LangFR, "25099", "15.01.2024")}
	archived[models.LangFR] = []models.Report{report(models.LangFR, "24001", "03.03.2023")}

	ids := KnownIDs(models.LangFR, newBucket, archived)
	if !ids["fr_25099"] || !ids["fr_24001"] {
		t.Errorf("KnownIDs should cover both buckets, got %v", ids)
	}
	if ids["de_25099"] {
		t.Error("KnownIDs should only cover the requested language")
	}
}

func TestSortByDate(t *testing.T) {
	rs := []models.Report{
		report(models.LangFR, "1", "03.03.2023"),
		report(models.LangFR, "2", "pas une date"),
		report(models.LangFR, "3", "15.01.2024"),
		report(models.LangFR, "4", "22.01.2024"),
	}

	SortByDate(rs)

	order := []string{"4", "3", "1", "2"}
	for i, want := range order {
		if rs[i].Number != want {
			t.Fatalf("position %d: got %s, want %s (%v)", i, rs[i].Number, want, rs)
		}
	}
}

func TestCap(t *testing.T) {
	rs := make([]models.Report, 5)
	if got := Cap(rs, 3); len(got) != 3 {
		t.Errorf("Cap(5, 3) kept %d", len(got))
	}
	if got := Cap(rs, 10); len(got) != 5 {
		t.Errorf("Cap(5, 10) kept %d", len(got))
	}
	if got := Cap(rs, 0); len(got) != 5 {
		t.Errorf("Cap with zero limit should keep everything, kept %d", len(got))
	}
}

func TestMergeUnique(t *testing.T) {
	dst := []models.Report{report(models.LangFR, "25099", "15.01.2024")}
	src := []models.Report{
		report(models.LangFR, "25099", "15.01.2024"),
		report(models.LangFR, "25100", "22.01.2024"),
	}

	merged := MergeUnique(dst, src)
	if len(merged) != 2 {
		t.Fatalf("expected 2 reports after merge, got %d", len(merged))
	}
}

func TestMergeUniqueSkipsDuplicateURLs(t *testing.T) {
	hashed := report(models.LangFR, "SDF-AAAA1111", "15.01.2024")
	rescraped := report(models.LangFR, "25200", "15.01.2024")
	rescraped.URL = hashed.URL

	merged := MergeUnique([]models.Report{hashed}, []models.Report{rescraped})
	if len(merged) != 1 {
		t.Fatalf("the same page must not be archived twice, got %v", merged)
	}
	if merged[0].ID != hashed.ID {
		t.Errorf("first occurrence must win, got %q", merged[0].ID)
	}
}
