package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zombar/auditwatch/models"
)

func TestFileStoreRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(FileConfig{DataDir: dir})
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	buckets := models.NewBuckets()
	buckets[models.LangFR] = []models.Report{{
		ID:              "fr_25099",
		Title:           "Audit de la cybersécurité : résultats détaillés.",
		Category:        "sécurité",
		Number:          "25099",
		PublicationDate: "15.01.2024",
		URL:             "https://www.efk.admin.ch/fr/audit/2024/25099-audit-risques/?ref=a&b=c",
		Language:        models.LangFR,
		ScrapedAt:       time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC),
	}}

	if err := s.Save(ctx, BucketNew, buckets); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(ctx, BucketNew)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Total() != 1 {
		t.Fatalf("expected 1 report, got %d", loaded.Total())
	}
	got := loaded[models.LangFR][0]
	if got.Title != buckets[models.LangFR][0].Title {
		t.Errorf("Title = %q, accents or punctuation were mangled", got.Title)
	}
	if got.URL != buckets[models.LangFR][0].URL {
		t.Errorf("URL = %q, want %q", got.URL, buckets[models.LangFR][0].URL)
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s, err := NewFileStore(FileConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	buckets, err := s.Load(context.Background(), BucketArchived)
	if err != nil {
		t.Fatalf("Load of a missing file must not fail: %v", err)
	}
	if buckets.Total() != 0 {
		t.Errorf("expected empty buckets, got %d reports", buckets.Total())
	}
	for _, lang := range models.Languages() {
		if _, ok := buckets[lang]; !ok {
			t.Errorf("language %s missing from empty buckets", lang)
		}
	}
}

func TestFileStoreWritesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(FileConfig{DataDir: dir})
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	buckets := models.NewBuckets()
	buckets[models.LangDE] = []models.Report{{
		ID:    "de_25099",
		Title: "Prüfung der IT-Sicherheit & Risiken",
		URL:   "https://www.efk.admin.ch/prufung/2024/25099-it-sicherheit/?a=1&b=2",
	}}

	if err := s.Save(context.Background(), BucketNew, buckets); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "new_reports.json"))
	if err != nil {
		t.Fatalf("failed to read bucket file: %v", err)
	}
	content := string(raw)

	if strings.Contains(content, `&`) {
		t.Error("HTML escaping should be disabled in bucket files")
	}
	if !strings.Contains(content, "Prüfung der IT-Sicherheit & Risiken") {
		t.Error("title should appear verbatim in the bucket file")
	}
	if !strings.Contains(content, "\n  ") {
		t.Error("bucket files should be indented for manual inspection")
	}
}

func TestFileStoreNoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(FileConfig{DataDir: dir})
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := s.Save(context.Background(), BucketNew, models.NewBuckets()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}
