package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"foundrgpt/internal/domain"
)

func TestGatewayFetchRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "key" || pass != "secret" {
			t.Errorf("missing basic auth")
		}
		w.Write([]byte(`{"id":"pay_1","order_id":"order_1","status":"captured"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{
		KeyID:     "key",
		KeySecret: "secret",
		BaseURL:   srv.URL,
		Logger:    zerolog.Nop(),
		SleepFn:   func(time.Duration) {},
	})
	payment, err := client.FetchPayment(context.Background(), "pay_1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if payment.Status != "captured" || calls != 3 {
		t.Fatalf("payment=%#v calls=%d", payment, calls)
	}
}

func TestGatewayFetchExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{
		KeyID:     "key",
		KeySecret: "secret",
		BaseURL:   srv.URL,
		Logger:    zerolog.Nop(),
		SleepFn:   func(time.Duration) {},
	})
	_, err := client.FetchOrder(context.Background(), "order_1")
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway unavailable, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestGatewayRejectionIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{
		KeyID:     "key",
		KeySecret: "secret",
		BaseURL:   srv.URL,
		Logger:    zerolog.Nop(),
		SleepFn:   func(time.Duration) {},
	})
	_, err := client.FetchOrder(context.Background(), "order_bad")
	if !errors.Is(err, domain.ErrVerificationFailed) {
		t.Fatalf("expected verification failure, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("4xx must not retry, calls = %d", calls)
	}
}
