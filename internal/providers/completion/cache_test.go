package completion

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newCachedRequest(t *testing.T, url, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return req
}

func TestCachingDoerReplaysWithinTTL(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	doer := NewCachingDoer(&http.Client{}, time.Minute)

	for i := 0; i < 3; i++ {
		resp, err := doer.Do(newCachedRequest(t, srv.URL, `{"prompt":"same"}`))
		if err != nil {
			t.Fatalf("do: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != `{"ok":true}` {
			t.Fatalf("body = %q", body)
		}
	}
	if calls != 1 {
		t.Fatalf("identical requests should hit upstream once, got %d", calls)
	}

	if _, err := doer.Do(newCachedRequest(t, srv.URL, `{"prompt":"different"}`)); err != nil {
		t.Fatalf("do: %v", err)
	}
	if calls != 2 {
		t.Fatalf("distinct body must miss the cache, calls = %d", calls)
	}
}

func TestCachingDoerExpiry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	doer := NewCachingDoer(&http.Client{}, time.Minute)
	current := time.Unix(1700000000, 0)
	doer.now = func() time.Time { return current }

	for i := 0; i < 2; i++ {
		resp, err := doer.Do(newCachedRequest(t, srv.URL, "body"))
		if err != nil {
			t.Fatalf("do: %v", err)
		}
		resp.Body.Close()
	}
	if calls != 1 {
		t.Fatalf("calls = %d before expiry", calls)
	}

	current = current.Add(2 * time.Minute)
	resp, err := doer.Do(newCachedRequest(t, srv.URL, "body"))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if calls != 2 {
		t.Fatalf("expired entry must refetch, calls = %d", calls)
	}
}

func TestCachingDoerSkipsFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	doer := NewCachingDoer(&http.Client{}, time.Minute)
	for i := 0; i < 2; i++ {
		resp, err := doer.Do(newCachedRequest(t, srv.URL, "body"))
		if err != nil {
			t.Fatalf("do: %v", err)
		}
		resp.Body.Close()
	}
	if calls != 2 {
		t.Fatalf("non-2xx responses must not be cached, calls = %d", calls)
	}
}

// slowDoer blocks every call until release is closed so concurrent callers
// overlap deterministically.
type slowDoer struct {
	calls   int32
	release chan struct{}
}

func (d *slowDoer) Do(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&d.calls, 1)
	<-d.release
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader([]byte("ok"))),
	}, nil
}

func TestCachingDoerCollapsesInFlight(t *testing.T) {
	next := &slowDoer{release: make(chan struct{})}
	doer := NewCachingDoer(next, 0) // TTL off; only in-flight collapsing

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			req, _ := http.NewRequest(http.MethodPost, "http://upstream/chat", bytes.NewReader([]byte("same")))
			resp, err := doer.Do(req)
			if err != nil {
				t.Errorf("do: %v", err)
				return
			}
			resp.Body.Close()
		}()
	}
	close(start)
	time.Sleep(50 * time.Millisecond)
	close(next.release)
	wg.Wait()

	if got := atomic.LoadInt32(&next.calls); got != 1 {
		t.Fatalf("concurrent identical requests should collapse to one call, got %d", got)
	}
}
