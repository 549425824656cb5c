package bind

import (
	"bytes"
	"encoding/base64"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type categoryInput struct {
	Name string `json:"name" validate:"required|max:10"`
}

func TestJSON(t *testing.T) {
	var in categoryInput
	errs, err := JSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Shirts"}`)), &in)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, "Shirts", in.Name)

	errs, err = JSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`)), &in)
	require.NoError(t, err)
	assert.Contains(t, errs, "name")

	_, err = JSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)), &in)
	assert.Error(t, err)
}

func multipartRequest(t *testing.T, field string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "proof.png")
	require.NoError(t, err)
	_, _ = fw.Write(payload)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFile(t *testing.T) {
	data, err := File(multipartRequest(t, "proof", []byte("hello")), "proof", 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = File(multipartRequest(t, "proof", bytes.Repeat([]byte("x"), 11)), "proof", 10)
	assert.True(t, errors.Is(err, ErrTooLarge))

	_, err = File(multipartRequest(t, "other", []byte("x")), "proof", 10)
	assert.Error(t, err)
}

func TestLimitOverridesBodyCap(t *testing.T) {
	body := `{"name":"` + strings.Repeat("x", 64) + `"}`
	var got error
	h := Limit(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in categoryInput
		_, got = JSON(r, &in)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	assert.True(t, errors.Is(got, ErrTooLarge))
}

func TestDataURLLimitFitsEncodedFile(t *testing.T) {
	const n = 5 << 20
	encoded := int64(base64.StdEncoding.EncodedLen(n))
	assert.Greater(t, DataURLLimit(n), encoded)
	assert.Less(t, DataURLLimit(n)-encoded, int64(1<<20))
}
