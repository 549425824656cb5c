// Package routes maps URLs to controllers.
package routes

import (
	"context"
	"net/http"

	"github.com/shashiranjanraj/panaya/app/controllers"
	"github.com/shashiranjanraj/panaya/app/graph"
	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/bind"
	"github.com/shashiranjanraj/panaya/pkg/ctx"
	"github.com/shashiranjanraj/panaya/pkg/graphql"
	"github.com/shashiranjanraj/panaya/pkg/metrics"
	"github.com/shashiranjanraj/panaya/pkg/middleware"
	"github.com/shashiranjanraj/panaya/pkg/rbac"
	"github.com/shashiranjanraj/panaya/pkg/response"
	"github.com/shashiranjanraj/panaya/pkg/router"
	"github.com/shashiranjanraj/panaya/pkg/sse"
	"github.com/shashiranjanraj/panaya/pkg/ws"
)

// Deps is what the route table needs besides the services. Broker and Hub
// may be nil; their endpoints then answer 503.
type Deps struct {
	Services      *services.Services
	Broker        *sse.Broker
	Hub           *ws.Hub
	ProofMaxBytes int64
	// Ready backs /healthz. Nil always reports ok.
	Ready func(context.Context) error
}

var (
	admin    = rbac.HasRole(string(models.RoleAdmin))
	customer = rbac.HasRole(string(models.RoleCustomer))
)

// Register mounts every endpoint on r.
func Register(r *router.Router, d Deps) error {
	s := d.Services
	if d.ProofMaxBytes <= 0 {
		d.ProofMaxBytes = 5 << 20
	}
	authC := controllers.NewAuthController(s)
	users := controllers.NewUserController(s)
	categories := controllers.NewCategoryController(s)
	products := controllers.NewProductController(s)
	reviews := controllers.NewReviewController(s)
	carts := controllers.NewCartController(s)
	cartItems := controllers.NewCartItemController(s)
	orders := controllers.NewOrderController(s, d.Broker)
	orderItems := controllers.NewOrderItemController(s)
	payments := controllers.NewPaymentController(s, d.ProofMaxBytes)
	shipments := controllers.NewShipmentController(s, d.Hub)

	schema, err := graph.NewSchema(s.Catalog)
	if err != nil {
		return err
	}

	r.Get("/healthz", "health", health(d.Ready))
	r.Handle("/metrics", "metrics", metrics.Handler())
	r.Post("/graphql", "graphql", graphql.Handler(schema).ServeHTTP)
	r.Handle("/ws/shipments", "shipments.feed", http.HandlerFunc(shipments.Feed), middleware.StreamAuth, admin)

	api := r.Group("/api")

	// ── Guest ────────────────────────────────────────────────────────────
	guest := api.Group("/auth", middleware.OptionalAuth, rbac.Guest)
	guest.Post("/login", "auth.login", ctx.Wrap(authC.Login))
	guest.Post("/admin", "auth.admin", ctx.Wrap(authC.Admin))

	// ── Public ───────────────────────────────────────────────────────────
	api.Post("/users", "users.store", ctx.Wrap(users.Store), middleware.OptionalAuth)

	api.Get("/categories", "categories.index", ctx.Wrap(categories.Index))
	api.Get("/categories/{id}", "categories.show", ctx.Wrap(categories.Show))
	api.Get("/products", "products.index", ctx.Wrap(products.Index))
	api.Get("/products/{id}", "products.show", ctx.Wrap(products.Show))
	api.Get("/reviews", "reviews.index", ctx.Wrap(reviews.Index))
	api.Get("/reviews/{id}", "reviews.show", ctx.Wrap(reviews.Show))

	// EventSource cannot set headers, so the token may come as ?token=.
	api.Get("/orders/{id}/events", "orders.events", ctx.Wrap(orders.Events), middleware.StreamAuth)

	// ── Authenticated ────────────────────────────────────────────────────
	auth := api.Group("", middleware.AuthMiddleware)
	auth.Get("/auth/me", "auth.me", ctx.Wrap(authC.Me))

	auth.Get("/users/{id}", "users.show", ctx.Wrap(users.Show))
	auth.Put("/users/{id}", "users.update", ctx.Wrap(users.Update))
	auth.Delete("/users/{id}", "users.destroy", ctx.Wrap(users.Destroy))

	auth.Post("/reviews", "reviews.store", ctx.Wrap(reviews.Store), customer)
	auth.Put("/reviews/{id}", "reviews.update", ctx.Wrap(reviews.Update))
	auth.Delete("/reviews/{id}", "reviews.destroy", ctx.Wrap(reviews.Destroy))

	auth.Get("/carts", "carts.index", ctx.Wrap(carts.Index))
	auth.Post("/carts", "carts.store", ctx.Wrap(carts.Store))
	auth.Get("/carts/{id}", "carts.show", ctx.Wrap(carts.Show))
	auth.Put("/carts/{id}", "carts.update", ctx.Wrap(carts.Update))
	auth.Delete("/carts/{id}", "carts.destroy", ctx.Wrap(carts.Destroy))
	auth.Post("/carts/{id}/checkout", "carts.checkout", ctx.Wrap(carts.Checkout))

	auth.Get("/cart-items", "cart-items.index", ctx.Wrap(cartItems.Index))
	auth.Post("/cart-items", "cart-items.store", ctx.Wrap(cartItems.Store))
	auth.Get("/cart-items/{id}", "cart-items.show", ctx.Wrap(cartItems.Show))
	auth.Put("/cart-items/{id}", "cart-items.update", ctx.Wrap(cartItems.Update))
	auth.Delete("/cart-items/{id}", "cart-items.destroy", ctx.Wrap(cartItems.Destroy))

	auth.Get("/orders", "orders.index", ctx.Wrap(orders.Index))
	auth.Post("/orders", "orders.store", ctx.Wrap(orders.Store), customer)
	auth.Get("/orders/{id}", "orders.show", ctx.Wrap(orders.Show))
	// submit_proof carries the image as a data URL.
	auth.Post("/orders/{id}/transition", "orders.transition", ctx.Wrap(orders.Transition), bind.Limit(bind.DataURLLimit(d.ProofMaxBytes)))

	auth.Get("/payments", "payments.index", ctx.Wrap(payments.Index))
	auth.Post("/payments", "payments.store", ctx.Wrap(payments.Store))
	auth.Get("/payments/{id}", "payments.show", ctx.Wrap(payments.Show))
	auth.Post("/payments/{id}/proof", "payments.proof.store", ctx.Wrap(payments.UploadProof))
	auth.Get("/payments/{id}/proof", "payments.proof.show", ctx.Wrap(payments.Proof))

	auth.Get("/shipments", "shipments.index", ctx.Wrap(shipments.Index))
	auth.Get("/shipments/{id}", "shipments.show", ctx.Wrap(shipments.Show))

	// ── Admin ────────────────────────────────────────────────────────────
	adm := auth.Group("", admin)
	adm.Get("/users", "users.index", ctx.Wrap(users.Index))

	adm.Post("/categories", "categories.store", ctx.Wrap(categories.Store))
	adm.Put("/categories/{id}", "categories.update", ctx.Wrap(categories.Update))
	adm.Delete("/categories/{id}", "categories.destroy", ctx.Wrap(categories.Destroy))

	adm.Post("/products", "products.store", ctx.Wrap(products.Store))
	adm.Put("/products/{id}", "products.update", ctx.Wrap(products.Update))
	adm.Delete("/products/{id}", "products.destroy", ctx.Wrap(products.Destroy))

	adm.Get("/orders/export", "orders.export", ctx.Wrap(orders.Export))
	adm.Put("/orders/{id}", "orders.update", ctx.Wrap(orders.Update))
	adm.Delete("/orders/{id}", "orders.destroy", ctx.Wrap(orders.Destroy))
	adm.Get("/order-items", "order-items.index", ctx.Wrap(orderItems.Index))

	adm.Put("/payments/{id}", "payments.update", ctx.Wrap(payments.Update))
	adm.Delete("/payments/{id}", "payments.destroy", ctx.Wrap(payments.Destroy))

	adm.Post("/shipments", "shipments.store", ctx.Wrap(shipments.Store))
	adm.Put("/shipments/{id}", "shipments.update", ctx.Wrap(shipments.Update))
	adm.Delete("/shipments/{id}", "shipments.destroy", ctx.Wrap(shipments.Destroy))
	adm.Post("/shipment-events", "shipment-events.store", ctx.Wrap(shipments.AddEvent))

	return nil
}

func health(ready func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				response.Error(w, http.StatusServiceUnavailable, "unavailable: "+err.Error())
				return
			}
		}
		response.Success(w, map[string]string{"status": "ok"})
	}
}
