// Package testkit drives the HTTP API from tests: an in-process client that
// speaks the response envelope, a RoundTripper for outbound calls and a
// mail sender backed by testify/mock.
package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Client sends requests straight to a handler through httptest.
type Client struct {
	t       *testing.T
	handler http.Handler
	token   string
	headers http.Header
}

func NewClient(t *testing.T, h http.Handler) *Client {
	return &Client{t: t, handler: h, headers: http.Header{}}
}

// As returns a copy of the client authenticated with token.
func (c *Client) As(token string) *Client {
	cp := *c
	cp.token = token
	cp.headers = c.headers.Clone()
	return &cp
}

// With returns a copy that adds a header to every request.
func (c *Client) With(key, value string) *Client {
	cp := *c
	cp.headers = c.headers.Clone()
	cp.headers.Set(key, value)
	return &cp
}

func (c *Client) Get(path string) *Response            { return c.Do(http.MethodGet, path, nil) }
func (c *Client) Post(path string, body any) *Response { return c.Do(http.MethodPost, path, body) }
func (c *Client) Put(path string, body any) *Response  { return c.Do(http.MethodPut, path, body) }
func (c *Client) Delete(path string) *Response         { return c.Do(http.MethodDelete, path, nil) }

// Do encodes body as JSON unless it is already an io.Reader.
func (c *Client) Do(method, path string, body any) *Response {
	c.t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		rd = b
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	if rd != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return &Response{t: c.t, Code: rec.Code, Header: rec.Header(), Body: rec.Body.Bytes()}
}

type Response struct {
	t      *testing.T
	Code   int
	Header http.Header
	Body   []byte
}

// Envelope mirrors the JSON every endpoint answers with.
type Envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// Expect fails the test when the status code differs and returns the
// decoded envelope.
func (r *Response) Expect(code int) Envelope {
	r.t.Helper()
	require.Equal(r.t, code, r.Code, "unexpected status, body: %s", r.Body)
	return r.Envelope()
}

func (r *Response) Envelope() Envelope {
	r.t.Helper()
	var env Envelope
	require.NoError(r.t, json.Unmarshal(r.Body, &env), "body is not an envelope: %s", r.Body)
	return env
}

// Data decodes the envelope's data into dest after checking the status.
func (r *Response) Data(code int, dest any) {
	r.t.Helper()
	env := r.Expect(code)
	require.NoError(r.t, json.Unmarshal(env.Data, dest), "decode data: %s", env.Data)
}

func (r *Response) String() string { return fmt.Sprintf("%d %s", r.Code, r.Body) }
