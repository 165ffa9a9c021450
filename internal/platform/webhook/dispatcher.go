// Package webhook delivers finalized reports to the external rendering
// endpoint. Each call is one signed POST; nothing is retried.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blua/laudos/internal/platform/telemetry"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	// responseCap bounds how much of the endpoint's answer is kept.
	responseCap = 1024
)

var (
	ErrNotConfigured  = errors.New("report webhook URL is not configured")
	ErrDeliveryFailed = errors.New("webhook delivery failed")
)

// Event is one payload bound for the endpoint.
type Event struct {
	ID      string      // stable id of the thing delivered, e.g. the report id
	Type    string      // e.g. "report.final"
	Owner   string      // account that triggered the delivery
	Payload interface{} // JSON-encoded as the request body
}

// Delivery records a single attempt. The payload itself is not kept.
type Delivery struct {
	ID           string        `json:"id"`
	EventID      string        `json:"event_id"`
	EventType    string        `json:"event_type"`
	Owner        string        `json:"-"`
	PayloadBytes int           `json:"payload_bytes"`
	StatusCode   int           `json:"status_code"`
	ResponseBody string        `json:"response_body,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

func (d *Delivery) OK() bool {
	return d.Status == StatusSuccess
}

// SignPayload computes the hex HMAC-SHA256 of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature is what a receiving endpoint runs on X-Webhook-Signature.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := "sha256=" + SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

type Option func(*Dispatcher)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.httpClient = c }
}

func WithSecret(secret string) Option {
	return func(d *Dispatcher) { d.secret = secret }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// Dispatcher posts events to one fixed URL and logs every attempt.
type Dispatcher struct {
	url        string
	secret     string
	httpClient *http.Client
	log        DeliveryLog
	metrics    *telemetry.Metrics
	logger     zerolog.Logger
}

func NewDispatcher(url string, log DeliveryLog, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
		logger:     logger.With().Str("component", "webhook").Logger(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dispatcher) Configured() bool {
	return d.url != ""
}

// Send performs exactly one POST. A transport error or any non-2xx status
// yields ErrDeliveryFailed alongside the recorded Delivery.
func (d *Dispatcher) Send(ctx context.Context, ev Event) (*Delivery, error) {
	if !d.Configured() {
		return nil, ErrNotConfigured
	}
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}

	now := time.Now().UTC()
	del := &Delivery{
		ID:           uuid.NewString(),
		EventID:      ev.ID,
		EventType:    ev.Type,
		Owner:        ev.Owner,
		PayloadBytes: len(payload),
		CreatedAt:    now,
	}
	defer d.finish(ctx, del)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		del.Status, del.Error = StatusFailed, err.Error()
		return del, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-ID", del.ID)
	req.Header.Set("X-Webhook-Event", ev.Type)
	req.Header.Set("X-Webhook-Timestamp", now.Format(time.RFC3339))
	if d.secret != "" {
		req.Header.Set("X-Webhook-Signature", "sha256="+SignPayload(payload, d.secret))
	}

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	del.Duration = time.Since(start)
	if err != nil {
		del.Status, del.Error = StatusFailed, err.Error()
		return del, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	del.StatusCode = resp.StatusCode
	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseCap))
	del.ResponseBody = string(body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		del.Status = StatusFailed
		del.Error = fmt.Sprintf("non-2xx response: %d", resp.StatusCode)
		return del, fmt.Errorf("%w: endpoint answered %d", ErrDeliveryFailed, resp.StatusCode)
	}
	del.Status = StatusSuccess
	return del, nil
}

func (d *Dispatcher) finish(ctx context.Context, del *Delivery) {
	d.metrics.WebhookDelivered(del.StatusCode, del.Duration)
	if err := d.log.Record(ctx, del); err != nil {
		d.logger.Warn().Err(err).Str("delivery_id", del.ID).Msg("record delivery")
	}
	evt := d.logger.Info()
	if !del.OK() {
		evt = d.logger.Error().Str("error", del.Error)
	}
	evt.Str("delivery_id", del.ID).
		Str("event_id", del.EventID).
		Str("event_type", del.EventType).
		Int("status_code", del.StatusCode).
		Dur("duration", del.Duration).
		Msg("webhook delivery")
}
