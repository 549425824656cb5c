// Package ctx gives handlers a single request context with helpers for
// params, binding, the session claims and the JSON envelope.
//
//	func (oc *OrderController) Show(c *ctx.Context) {
//	    id, ok := c.ParamUint("id")
//	    ...
//	    c.Success(order)
//	}
//
//	g.Get("/orders/{id}", "orders.show", ctx.Wrap(oc.Show))
package ctx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/shashiranjanraj/panaya/pkg/auth"
	"github.com/shashiranjanraj/panaya/pkg/bind"
	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/middleware"
	"github.com/shashiranjanraj/panaya/pkg/orm"
	"github.com/shashiranjanraj/panaya/pkg/response"
	"github.com/shashiranjanraj/panaya/pkg/validate"
)

type HandlerFunc func(c *Context)

// Wrap adapts a HandlerFunc to http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	mu     sync.RWMutex
	store  map[string]any
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{store: make(map[string]any)} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W, c.R, c.status = w, r, 0
	for k := range c.store {
		delete(c.store, k)
	}
	return c
}

func release(c *Context) {
	c.W, c.R = nil, nil
	pool.Put(c)
}

// ─── Request ──────────────────────────────────────────────────────────────────

func (c *Context) Param(key string) string { return chi.URLParam(c.R, key) }

// ParamUint parses a positive integer path parameter such as {id}.
func (c *Context) ParamUint(key string) (uint, bool) {
	n, err := cast.ToUintE(c.Param(key))
	return n, err == nil && n > 0
}

func (c *Context) Query(key string) string { return c.R.URL.Query().Get(key) }

func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

// QueryInt returns the query value as int, or def when absent or malformed.
func (c *Context) QueryInt(key string, def int) int {
	n, err := cast.ToIntE(c.Query(key))
	if err != nil || c.Query(key) == "" {
		return def
	}
	return n
}

// QueryUint returns 0 when the value is absent or malformed.
func (c *Context) QueryUint(key string) uint {
	return cast.ToUint(c.Query(key))
}

// Page reads page and per_page from the query string.
func (c *Context) Page() orm.PageRequest {
	return orm.NewPageRequest(c.QueryInt("page", 1), c.QueryInt("per_page", orm.DefaultPerPage))
}

func (c *Context) Header(key string) string { return c.R.Header.Get(key) }
func (c *Context) ClientIP() string         { return middleware.ClientIP(c.R) }
func (c *Context) Context() context.Context { return c.R.Context() }

// Log returns the request-scoped logger.
func (c *Context) Log() *slog.Logger { return logger.WithCtx(c.R.Context()) }

// ─── Session ──────────────────────────────────────────────────────────────────

func (c *Context) Claims() (*auth.Claims, bool) { return auth.FromContext(c.R.Context()) }

// UserID is 0 for anonymous requests.
func (c *Context) UserID() uint {
	if cl, ok := c.Claims(); ok {
		return cl.UserID
	}
	return 0
}

func (c *Context) HasRole(role string) bool {
	cl, ok := c.Claims()
	return ok && cl.Role == role
}

// ─── Store ────────────────────────────────────────────────────────────────────

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	c.store[key] = val
	c.mu.Unlock()
}

func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

func (c *Context) MustGet(key string) any {
	v, ok := c.Get(key)
	if !ok {
		panic(fmt.Sprintf("ctx: key %q not found in store", key))
	}
	return v
}

func (c *Context) GetString(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

func (c *Context) GetUint(key string) uint {
	v, _ := c.Get(key)
	u, _ := v.(uint)
	return u
}

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes and validates the body. On failure the 400/413/422 response
// has already been written and false is returned.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		if errors.Is(err, bind.ErrTooLarge) {
			c.Error(http.StatusRequestEntityTooLarge, err.Error())
			return false
		}
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

func (c *Context) ShouldBindJSON(dest any) (map[string]string, error) {
	return bind.JSON(c.R, dest)
}

func (c *Context) Validate(v any) map[string]string { return validate.Struct(v) }

// ─── Response ─────────────────────────────────────────────────────────────────

func (c *Context) SetHeader(key, value string) { c.W.Header().Set(key, value) }

func (c *Context) Status(code int) {
	c.status = code
	c.W.WriteHeader(code)
}

func (c *Context) envelope(code int, body response.Envelope) {
	c.status = code
	response.Write(c.W, code, body)
}

func (c *Context) Success(data any) { c.envelope(http.StatusOK, response.Envelope{Data: data}) }
func (c *Context) Created(data any) { c.envelope(http.StatusCreated, response.Envelope{Data: data}) }
func (c *Context) Message(msg string) {
	c.envelope(http.StatusOK, response.Envelope{Message: msg})
}

func (c *Context) Paginated(items any, p orm.Pagination) {
	c.Success(response.Page{Items: items, Pagination: p})
}

func (c *Context) Error(code int, message string) {
	c.envelope(code, response.Envelope{Message: message})
}

func (c *Context) ValidationError(errs map[string]string) {
	c.envelope(http.StatusUnprocessableEntity, response.Envelope{Message: "Validation failed", Errors: errs})
}

func (c *Context) Unauthorized(message ...string) { c.Error(http.StatusUnauthorized, first(message, "Unauthorized")) }
func (c *Context) Forbidden(message ...string)    { c.Error(http.StatusForbidden, first(message, "Forbidden")) }
func (c *Context) NotFound(message ...string)     { c.Error(http.StatusNotFound, first(message, "Not found")) }

func first(list []string, def string) string {
	if len(list) > 0 && list[0] != "" {
		return list[0]
	}
	return def
}

// Fail writes the response for err. Errors exposing Fields() become a 422,
// errors exposing StatusCode() use that status and their message, anything
// else is logged and answered with a bare 500.
func (c *Context) Fail(err error) {
	var fields interface{ Fields() map[string]string }
	if errors.As(err, &fields) {
		c.ValidationError(fields.Fields())
		return
	}
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		c.Error(coded.StatusCode(), err.Error())
		return
	}
	if errors.Is(err, bind.ErrTooLarge) {
		c.Error(http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	c.Log().Error("request failed", "error", err, "path", c.R.URL.Path)
	c.Error(http.StatusInternalServerError, "Internal Server Error")
}

// WrittenStatus is 0 until a response has been written.
func (c *Context) WrittenStatus() int { return c.status }
