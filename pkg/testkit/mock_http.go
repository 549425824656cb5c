package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	panayahttp "github.com/shashiranjanraj/panaya/pkg/http"
)

// MockTransport answers outbound requests from registered stubs. A request
// that matches no stub fails with an error, so unexpected calls surface.
type MockTransport struct {
	mu       sync.Mutex
	stubs    []*Stub
	requests []Recorded
}

type Stub struct {
	Method string
	Prefix string
	Status int
	Body   string
	calls  int
}

type Recorded struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

func NewMockTransport() *MockTransport { return &MockTransport{} }

// Install points the shared outbound client at mt until the test ends.
func (mt *MockTransport) Install(t *testing.T) *MockTransport {
	panayahttp.DefaultClient.Transport = mt
	t.Cleanup(panayahttp.ResetTransport)
	return mt
}

// Stub registers a response for method and URL prefix. Stubs are matched
// in registration order.
func (mt *MockTransport) Stub(method, prefix string, status int, body string) *Stub {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	s := &Stub{Method: method, Prefix: prefix, Status: status, Body: body}
	mt.stubs = append(mt.stubs, s)
	return s
}

func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.requests = append(mt.requests, Recorded{Method: req.Method, URL: req.URL.String(), Header: req.Header.Clone(), Body: body})

	for _, s := range mt.stubs {
		if s.Method != req.Method || !strings.HasPrefix(req.URL.String(), s.Prefix) {
			continue
		}
		s.calls++
		h := http.Header{}
		h.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode: s.Status,
			Status:     fmt.Sprintf("%d %s", s.Status, http.StatusText(s.Status)),
			Header:     h,
			Body:       io.NopCloser(bytes.NewBufferString(s.Body)),
			Request:    req,
		}, nil
	}
	return nil, fmt.Errorf("testkit: no stub for %s %s", req.Method, req.URL)
}

func (mt *MockTransport) Requests() []Recorded {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]Recorded(nil), mt.requests...)
}

// AssertAllCalled reports every stub that never matched.
func (mt *MockTransport) AssertAllCalled(t *testing.T) bool {
	t.Helper()
	mt.mu.Lock()
	defer mt.mu.Unlock()
	ok := true
	for _, s := range mt.stubs {
		ok = assert.Positive(t, s.calls, "stub %s %s was never called", s.Method, s.Prefix) && ok
	}
	return ok
}
