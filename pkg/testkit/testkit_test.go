package testkit_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	panayahttp "github.com/shashiranjanraj/panaya/pkg/http"
	"github.com/shashiranjanraj/panaya/pkg/mail"
	"github.com/shashiranjanraj/panaya/pkg/response"
	"github.com/shashiranjanraj/panaya/pkg/testkit"
)

func TestClientDecodesEnvelope(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			response.Unauthorized(w)
			return
		}
		response.Created(w, map[string]string{"path": r.URL.Path, "key": r.Header.Get("Idempotency-Key")})
	})
	c := testkit.NewClient(t, h)

	env := c.Post("/api/orders", map[string]int{"a": 1}).Expect(http.StatusUnauthorized)
	assert.Equal(t, "Unauthorized", env.Message)

	var got map[string]string
	c.As("tok").With("Idempotency-Key", "k1").Post("/api/orders", nil).Data(http.StatusCreated, &got)
	assert.Equal(t, "/api/orders", got["path"])
	assert.Equal(t, "k1", got["key"])
}

func TestMockTransport(t *testing.T) {
	mt := testkit.NewMockTransport().Install(t)
	mt.Stub(http.MethodPost, "https://hooks.example.com/", http.StatusAccepted, `{}`)

	resp, err := panayahttp.Post("https://hooks.example.com/orders").Body(map[string]int{"id": 1}).Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	_, err = panayahttp.Get("https://other.example.com/").Send(context.Background())
	assert.Error(t, err)

	reqs := mt.Requests()
	require.Len(t, reqs, 2)
	assert.JSONEq(t, `{"id":1}`, string(reqs[0].Body))
	mt.AssertAllCalled(t)
}

func TestMailMock(t *testing.T) {
	m := testkit.InstallMail(t)
	require.NoError(t, mail.To("a@example.com").Subject("hello").Text("x").Send(context.Background()))
	require.Len(t, m.Sent(), 1)

	m.Expect("b@example.com", "fail").Return(errors.New("relay down"))
	err := mail.To("b@example.com").Subject("fail").Text("x").Send(context.Background())
	assert.EqualError(t, err, "relay down")
	m.AssertExpectations(t)
}
