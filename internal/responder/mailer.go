package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Mail is one outbound plain-text message.
type Mail struct {
	From       string            `json:"from"`
	ReplyTo    string            `json:"reply_to,omitempty"`
	To         string            `json:"to"`
	Subject    string            `json:"subject"`
	Text       string            `json:"text"`
	TemplateID string            `json:"template_id"`
	Values     map[string]string `json:"values,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Mail converts the draft to an outbound message.
func (d Draft) Mail(from, replyTo string) Mail {
	return Mail{
		From:       from,
		ReplyTo:    replyTo,
		To:         d.To,
		Subject:    d.Subject,
		Text:       d.Body,
		TemplateID: d.TemplateID,
		Values:     d.Values,
		Headers: map[string]string{
			"X-Autoresponse":      "true",
			"X-Original-Campaign": d.CampaignID,
			"X-Response-Type":     string(d.ResponseType),
		},
	}
}

// Mailer delivers mail and returns the provider message ID.
type Mailer interface {
	Send(ctx context.Context, m Mail) (string, error)
}

// LogMailer logs mail instead of sending it. Used for dry runs.
type LogMailer struct{}

// Send logs m and returns a synthetic message ID.
func (LogMailer) Send(_ context.Context, m Mail) (string, error) {
	id := "dry-run-" + uuid.New().String()
	zap.L().Info("responder: dry-run mail",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("template_id", m.TemplateID),
		zap.String("message_id", id),
	)
	return id, nil
}

// HTTPMailer posts mail as JSON to a transactional email API.
type HTTPMailer struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// HTTPMailerOption configures an HTTPMailer.
type HTTPMailerOption func(*HTTPMailer)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPMailerOption {
	return func(m *HTTPMailer) {
		m.http = hc
	}
}

// NewHTTPMailer creates a mailer for the API at endpoint.
func NewHTTPMailer(endpoint, apiKey string, opts ...HTTPMailerOption) *HTTPMailer {
	m := &HTTPMailer{
		endpoint: endpoint,
		apiKey:   apiKey,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send posts m. Throttling and server errors come back as transient errors.
func (h *HTTPMailer) Send(ctx context.Context, m Mail) (string, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return "", eris.Wrap(err, "responder: marshal mail")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "responder: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "responder: send mail")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "responder: read response")
	}

	if resp.StatusCode >= 300 {
		statusErr := eris.Errorf("responder: mail api status %d: %s", resp.StatusCode, truncate(string(body), 200))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return "", statusErr
	}

	var out sendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", eris.Wrap(err, "responder: decode response")
	}
	if out.ID == "" {
		return "", eris.New("responder: mail api returned no message id")
	}
	return out.ID, nil
}

// DeliveryMailer rate-limits and retries another Mailer.
type DeliveryMailer struct {
	next    Mailer
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewDeliveryMailer wraps next. perSecond <= 0 disables rate limiting.
func NewDeliveryMailer(next Mailer, perSecond float64, retry resilience.RetryConfig) *DeliveryMailer {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("responder", "send")
	}
	return &DeliveryMailer{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
		retry:   retry,
	}
}

// Send waits for the limiter, then sends with retries.
func (d *DeliveryMailer) Send(ctx context.Context, m Mail) (string, error) {
	return resilience.DoVal(ctx, d.retry, func(ctx context.Context) (string, error) {
		if err := d.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "responder: rate limit wait")
		}
		return d.next.Send(ctx, m)
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
