package completion

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CachingDoer collapses identical in-flight requests into one upstream call
// and replays completed responses for a short TTL. Keys are derived from
// (method, url, body). This is an optimization layer, not a correctness
// requirement; only 2xx responses are ever cached.
type CachingDoer struct {
	next  Doer
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]cachedResponse
}

type cachedResponse struct {
	status  int
	header  http.Header
	body    []byte
	expires time.Time
}

// NewCachingDoer wraps next with request de-duplication. A non-positive ttl
// disables the completed-entry cache but keeps in-flight collapsing.
func NewCachingDoer(next Doer, ttl time.Duration) *CachingDoer {
	return &CachingDoer{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedResponse),
	}
}

// Do implements Doer.
func (c *CachingDoer) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	key := cacheKey(req.Method, req.URL.String(), body)

	if entry, ok := c.lookup(key); ok {
		return entry.response(), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		resp, err := c.next.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		entry := cachedResponse{
			status: resp.StatusCode,
			header: resp.Header.Clone(),
			body:   respBody,
		}
		if c.ttl > 0 && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			entry.expires = c.now().Add(c.ttl)
			c.store(key, entry)
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(cachedResponse).response(), nil
}

func (c *CachingDoer) lookup(key string) (cachedResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return cachedResponse{}, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return cachedResponse{}, false
	}
	return entry, true
}

func (c *CachingDoer) store(key string, entry cachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry
}

func (e cachedResponse) response() *http.Response {
	return &http.Response{
		StatusCode: e.status,
		Header:     e.header.Clone(),
		Body:       io.NopCloser(bytes.NewReader(e.body)),
	}
}

func cacheKey(method, url string, body []byte) string {
	h := sha256.New()
	io.WriteString(h, method)
	io.WriteString(h, "\x00")
	io.WriteString(h, url)
	io.WriteString(h, "\x00")
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
