// Package notify sends cycle summaries through a message gateway.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zombar/auditwatch/models"
)

// Notifier delivers a text message to a recipient. The returned string is
// the gateway's message ID.
type Notifier interface {
	Send(ctx context.Context, recipient, text string) (string, error)
}

// GatewayConfig contains gateway notifier configuration. Secret must come
// from the environment; it is never defaulted.
type GatewayConfig struct {
	URL         string // Gateway endpoint, e.g. https://msgapi.threema.ch/send_simple
	ID          string // Sender identity
	Secret      string // API secret
	HTTPTimeout time.Duration
}

// Gateway sends messages over a simple form-POST gateway API.
type Gateway struct {
	config GatewayConfig
	client *http.Client
}

// NewGateway creates a new Gateway instance
func NewGateway(config GatewayConfig) (*Gateway, error) {
	if config.URL == "" || config.ID == "" || config.Secret == "" {
		return nil, fmt.Errorf("gateway URL, ID, and secret are required")
	}
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 15 * time.Second
	}
	return &Gateway{
		config: config,
		client: &http.Client{
			Timeout:   config.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Send posts the message. On HTTP 200 the response body is the gateway's
// message ID.
func (g *Gateway) Send(ctx context.Context, recipient, text string) (string, error) {
	form := url.Values{}
	form.Set("from", g.config.ID)
	form.Set("to", recipient)
	form.Set("secret", g.config.Secret)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, "POST", g.config.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}

// CycleMessage formats the notification sent after a cycle that found new
// reports. The audience reads French, so the template is French regardless
// of which languages the reports came from.
func CycleMessage(newByLang map[models.Language][]models.Report) string {
	total := 0
	for _, rs := range newByLang {
		total += len(rs)
	}

	var b strings.Builder
	if total == 1 {
		b.WriteString("1 nouveau rapport d'audit publié :\n")
	} else {
		fmt.Fprintf(&b, "%d nouveaux rapports d'audit publiés :\n", total)
	}

	for _, lang := range models.Languages() {
		for _, r := range newByLang[lang] {
			fmt.Fprintf(&b, "\n[%s] %s\n%s\n", strings.ToUpper(string(lang)), r.Title, r.URL)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
