package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func newTestDispatcher(url string, opts ...Option) (*Dispatcher, *RingLog) {
	log := NewRingLog(10)
	return NewDispatcher(url, log, zerolog.Nop(), opts...), log
}

func TestSend_SuccessSignsAndRecords(t *testing.T) {
	var gotBody []byte
	var gotSig, gotEvent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Webhook-Signature")
		gotEvent = r.Header.Get("X-Webhook-Event")
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	d, log := newTestDispatcher(srv.URL, WithSecret("s3cret"))
	del, err := d.Send(context.Background(), Event{
		ID: "r1", Type: "report.final", Owner: "u1",
		Payload: map[string]string{"report_metadata": "x"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !del.OK() || del.StatusCode != http.StatusAccepted {
		t.Errorf("unexpected delivery %+v", del)
	}
	if !VerifySignature(gotBody, "s3cret", gotSig) {
		t.Errorf("signature %q does not verify", gotSig)
	}
	if gotEvent != "report.final" {
		t.Errorf("unexpected event header %q", gotEvent)
	}
	items, total, _ := log.List(context.Background(), "u1", 10, 0)
	if total != 1 || items[0].ResponseBody != `{"ok":true}` {
		t.Errorf("expected one recorded delivery, got %d %+v", total, items)
	}
}

func TestSend_NoSecretNoSignature(t *testing.T) {
	var hasSig bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasSig = r.Header["X-Webhook-Signature"]
	}))
	defer srv.Close()

	d, _ := newTestDispatcher(srv.URL)
	if _, err := d.Send(context.Background(), Event{ID: "r1", Payload: struct{}{}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if hasSig {
		t.Error("expected no signature header without a secret")
	}
}

func TestSend_Non2xxIsSingleFailedAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, strings.Repeat("x", 4096))
	}))
	defer srv.Close()

	d, _ := newTestDispatcher(srv.URL)
	del, err := d.Send(context.Background(), Event{ID: "r1", Owner: "u1", Payload: 1})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly one request, got %d", calls)
	}
	if del.Status != StatusFailed || del.StatusCode != http.StatusBadGateway {
		t.Errorf("unexpected delivery %+v", del)
	}
	if len(del.ResponseBody) != responseCap {
		t.Errorf("expected response body capped at %d, got %d", responseCap, len(del.ResponseBody))
	}
}

func TestSend_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	d, log := newTestDispatcher(url)
	del, err := d.Send(context.Background(), Event{ID: "r1", Owner: "u1", Payload: 1})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if del.StatusCode != 0 || del.Error == "" {
		t.Errorf("unexpected delivery %+v", del)
	}
	if _, total, _ := log.List(context.Background(), "u1", 10, 0); total != 1 {
		t.Errorf("expected failed attempt recorded, total=%d", total)
	}
}

func TestSend_NotConfigured(t *testing.T) {
	d, _ := newTestDispatcher("")
	if _, err := d.Send(context.Background(), Event{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSignPayload(t *testing.T) {
	sig := SignPayload([]byte(`{"a":1}`), "k")
	if len(sig) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(sig))
	}
	if VerifySignature([]byte(`{"a":2}`), "k", "sha256="+sig) {
		t.Error("signature must not verify a different payload")
	}
}
