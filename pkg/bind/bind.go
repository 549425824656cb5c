// Package bind decodes and validates request bodies.
package bind

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shashiranjanraj/panaya/config"
	"github.com/shashiranjanraj/panaya/pkg/validate"
)

// ErrTooLarge is returned when a body or upload exceeds its limit.
var ErrTooLarge = errors.New("request body too large")

type limitKey struct{}

// Limit raises or lowers the JSON body cap for the routes it wraps.
func Limit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), limitKey{}, n)))
		})
	}
}

// DataURLLimit is a body cap that fits a base64 data URL of a file up to n
// bytes, with room for the rest of the JSON document.
func DataURLLimit(n int64) int64 {
	return (n+2)/3*4 + 64<<10
}

func maxBodyBytes(r *http.Request) int64 {
	if n, ok := r.Context().Value(limitKey{}).(int64); ok && n > 0 {
		return n
	}
	if n := int64(config.GetInt("MAX_BODY_BYTES")); n > 0 {
		return n
	}
	return 4 << 20
}

// JSON decodes r.Body into dest and validates it. Validation failures come
// back as errs with a nil error; malformed or oversized bodies as err.
func JSON(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes(r))

	if err = json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w (max %d bytes)", ErrTooLarge, maxErr.Limit)
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if errs = validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}

// File reads the multipart field name, refusing anything over limit bytes.
func File(r *http.Request, name string, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}

	f, _, err := r.FormFile(name)
	if err != nil {
		return nil, fmt.Errorf("missing %q file: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
