package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zombar/auditwatch/models"
)

func TestGatewaySend(t *testing.T) {
	var form map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		form = map[string]string{
			"from":   r.PostFormValue("from"),
			"to":     r.PostFormValue("to"),
			"secret": r.PostFormValue("secret"),
			"text":   r.PostFormValue("text"),
		}
		w.Write([]byte("MSG-4711"))
	}))
	defer ts.Close()

	g, err := NewGateway(GatewayConfig{
		URL:    ts.URL,
		ID:     "*AUDITWA",
		Secret: "test-secret",
	})
	if err != nil {
		t.Fatalf("NewGateway failed: %v", err)
	}

	msgID, err := g.Send(context.Background(), "RECIP123", "2 nouveaux rapports")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msgID != "MSG-4711" {
		t.Errorf("message ID = %q, want MSG-4711", msgID)
	}

	if form["from"] != "*AUDITWA" || form["to"] != "RECIP123" || form["secret"] != "test-secret" {
		t.Errorf("unexpected form values: %v", form)
	}
	if form["text"] != "2 nouveaux rapports" {
		t.Errorf("text = %q", form["text"])
	}
}

func TestGatewaySendErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid recipient", http.StatusBadRequest)
	}))
	defer ts.Close()

	g, err := NewGateway(GatewayConfig{URL: ts.URL, ID: "*AUDITWA", Secret: "s"})
	if err != nil {
		t.Fatalf("NewGateway failed: %v", err)
	}

	if _, err := g.Send(context.Background(), "BAD", "text"); err == nil {
		t.Fatal("expected an error for a non-200 gateway response")
	}
}

func TestNewGatewayRequiresCredentials(t *testing.T) {
	if _, err := NewGateway(GatewayConfig{URL: "https://example.com"}); err == nil {
		t.Error("missing credentials must be rejected")
	}
}

func TestCycleMessage(t *testing.T) {
	newByLang := map[models.Language][]models.Report{
		models.LangFR: {{
			Title: "Audit de la gestion des risques informatiques.",
			URL:   "https://www.efk.admin.ch/fr/audit/2024/25099-audit-risques/",
		}},
		models.LangDE: {{
			Title: "Prüfung des IT-Risikomanagements.",
			URL:   "https://www.efk.admin.ch/prufung/2024/25099-it-risiken/",
		}},
	}

	msg := CycleMessage(newByLang)

	if !strings.HasPrefix(msg, "2 nouveaux rapports d'audit publiés :") {
		t.Errorf("unexpected header: %q", msg)
	}
	if !strings.Contains(msg, "[FR] Audit de la gestion des risques informatiques.") {
		t.Errorf("french report missing: %q", msg)
	}
	if !strings.Contains(msg, "[DE] Prüfung des IT-Risikomanagements.") {
		t.Errorf("german report missing: %q", msg)
	}
	if !strings.Contains(msg, "https://www.efk.admin.ch/fr/audit/2024/25099-audit-risques/") {
		t.Errorf("report URL missing: %q", msg)
	}
}

func TestCycleMessageSingular(t *testing.T) {
	newByLang := map[models.Language][]models.Report{
		models.LangFR: {{Title: "Audit unique.", URL: "https://www.efk.admin.ch/fr/audit/1/"}},
	}

	msg := CycleMessage(newByLang)
	if !strings.HasPrefix(msg, "1 nouveau rapport d'audit publié :") {
		t.Errorf("singular form expected: %q", msg)
	}
}
