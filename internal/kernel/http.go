// Package kernel builds the HTTP handler: the global middleware stack
// followed by the route table.
package kernel

import (
	"net/http"
	"time"

	"github.com/shashiranjanraj/panaya/app/routes"
	"github.com/shashiranjanraj/panaya/config"
	"github.com/shashiranjanraj/panaya/pkg/metrics"
	"github.com/shashiranjanraj/panaya/pkg/middleware"
	"github.com/shashiranjanraj/panaya/pkg/reqid"
	"github.com/shashiranjanraj/panaya/pkg/router"
)

type HTTP struct {
	router  *router.Router
	limiter *middleware.Limiter
}

// New wires the middleware and mounts every route from d.
func New(d routes.Deps) (*HTTP, error) {
	r := router.New()
	limiter := middleware.NewLimiter(rateLimit(), time.Minute)

	// Global middleware stack (outermost → innermost):
	//  1. Prometheus metrics  outermost for accurate total latency
	//  2. Recovery            catches panics before they kill the goroutine
	//  3. Request ID          inject unique ID before anything logs
	//  4. Logger              logs request_id from context
	//  5. CORS                set CORS headers
	//  6. Rate limiter        reject abusers early
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions()))
	r.Use(limiter.Middleware)

	if err := routes.Register(r, d); err != nil {
		limiter.Stop()
		return nil, err
	}
	return &HTTP{router: r, limiter: limiter}, nil
}

func rateLimit() int {
	if n := config.GetInt("RATE_LIMIT_PER_MINUTE"); n > 0 {
		return n
	}
	return 200
}

func (k *HTTP) Handler() http.Handler { return k.router.Handler() }

func (k *HTTP) Routes() []router.RouteInfo { return k.router.Routes() }

// Stop ends the limiter's eviction loop.
func (k *HTTP) Stop() { k.limiter.Stop() }
