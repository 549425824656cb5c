package routes_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/listeners"
	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/routes"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/config"
	"github.com/shashiranjanraj/panaya/pkg/auth"
	"github.com/shashiranjanraj/panaya/pkg/cache"
	"github.com/shashiranjanraj/panaya/pkg/database"
	"github.com/shashiranjanraj/panaya/pkg/event"
	"github.com/shashiranjanraj/panaya/pkg/idempotency"
	"github.com/shashiranjanraj/panaya/pkg/router"
	"github.com/shashiranjanraj/panaya/pkg/sse"
	"github.com/shashiranjanraj/panaya/pkg/storage"
	"github.com/shashiranjanraj/panaya/pkg/testkit"
)

var dbSeq int64

const proofMax = 5 << 20

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

type api struct {
	db     *gorm.DB
	router *router.Router
	client *testkit.Client
	admin  *testkit.Client
	alice  *testkit.Client
	bob    *testkit.Client
}

func newAPI(t *testing.T) *api {
	t.Helper()
	config.Set("APP_KEY", "routes-test-key")
	t.Cleanup(config.Reset)

	db, err := database.Open("sqlite", fmt.Sprintf("file:routes_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1)))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	idem, err := idempotency.Open(t.TempDir()+"/idem.db", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idem.Close() })
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	events := event.New(nil)
	broker := sse.NewBroker()
	listeners.Register(events, listeners.Options{Broker: broker})

	svc, err := services.New(services.Deps{
		DB:          db,
		Cache:       cache.NewMemory(),
		Disk:        storage.NewLocal(t.TempDir(), ""),
		Events:      events,
		Idempotency: idem,
		Node:          node,
		ShippingFee:   5,
		ProofMaxBytes: proofMax,
	})
	require.NoError(t, err)

	r := router.New()
	require.NoError(t, routes.Register(r, routes.Deps{Services: svc, Broker: broker, ProofMaxBytes: proofMax}))

	a := &api{db: db, router: r, client: testkit.NewClient(t, r.Handler())}
	a.admin = a.as(t, "admin@panaya.test", models.RoleAdmin)
	a.alice = a.as(t, "alice@panaya.test", models.RoleCustomer)
	a.bob = a.as(t, "bob@panaya.test", models.RoleCustomer)
	return a
}

// as creates a user and returns a client carrying their token.
func (a *api) as(t *testing.T, email string, role models.Role) *testkit.Client {
	t.Helper()
	hash, err := auth.HashPassword("password1")
	require.NoError(t, err)
	u := models.User{Name: email, Email: email, Password: hash, Role: role}
	require.NoError(t, a.db.Create(&u).Error)
	tok, err := auth.GenerateToken(u.ID, string(role))
	require.NoError(t, err)
	return a.client.As(tok)
}

func (a *api) product(t *testing.T, price float64, stock int) models.Product {
	t.Helper()
	var cat models.Category
	require.NoError(t, a.db.Where(models.Category{Name: "General"}).FirstOrCreate(&cat).Error)
	p := models.Product{Name: "Teapot", Price: price, StockQuantity: stock, CategoryID: cat.ID}
	require.NoError(t, a.db.Create(&p).Error)
	return p
}

func (a *api) checkout(t *testing.T, c *testkit.Client, productID uint) models.Order {
	t.Helper()
	var o models.Order
	c.Post("/api/orders", map[string]any{
		"items": []map[string]any{{"product_id": productID, "quantity": 1}},
	}).Data(http.StatusCreated, &o)
	return o
}

func TestLoginAndMe(t *testing.T) {
	a := newAPI(t)

	var u models.User
	a.client.Post("/api/users", map[string]any{
		"name": "Carol", "email": "carol@panaya.test", "password": "password1",
	}).Data(http.StatusCreated, &u)
	assert.Equal(t, models.RoleCustomer, u.Role)

	var sess struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	a.client.Post("/api/auth/login", map[string]any{"email": "carol@panaya.test", "password": "password1"}).
		Data(http.StatusOK, &sess)
	require.NotEmpty(t, sess.Token)
	assert.Empty(t, sess.User.Password)

	var me models.User
	a.client.As(sess.Token).Get("/api/auth/me").Data(http.StatusOK, &me)
	assert.Equal(t, u.ID, me.ID)

	a.client.Post("/api/auth/admin", map[string]any{"email": "carol@panaya.test", "password": "password1"}).
		Expect(http.StatusUnauthorized)
	a.client.Post("/api/auth/login", map[string]any{"email": "carol@panaya.test", "password": "nope"}).
		Expect(http.StatusUnauthorized)
	a.client.Post("/api/auth/login", map[string]any{"email": "not-an-email"}).
		Expect(http.StatusUnprocessableEntity)
}

func TestAccessControl(t *testing.T) {
	a := newAPI(t)

	a.client.Get("/api/orders").Expect(http.StatusUnauthorized)
	a.alice.Get("/api/users").Expect(http.StatusForbidden)
	a.alice.Post("/api/categories", map[string]any{"name": "Toys"}).Expect(http.StatusForbidden)
	a.admin.Post("/api/categories", map[string]any{"name": "Toys"}).Expect(http.StatusCreated)
	a.client.Get("/api/categories").Expect(http.StatusOK)
	a.alice.Get("/api/orders/abc").Expect(http.StatusNotFound)
	a.alice.Get("/api/orders/999").Expect(http.StatusNotFound)

	p := a.product(t, 10, 5)
	o := a.checkout(t, a.alice, p.ID)
	a.bob.Get(fmt.Sprintf("/api/orders/%d", o.ID)).Expect(http.StatusForbidden)
	a.bob.Get(fmt.Sprintf("/api/orders/%d/events", o.ID)).Expect(http.StatusForbidden)
	a.admin.Get(fmt.Sprintf("/api/orders/%d", o.ID)).Expect(http.StatusOK)
}

func TestCheckoutReplaysWithIdempotencyKey(t *testing.T) {
	a := newAPI(t)
	p := a.product(t, 10, 5)
	body := map[string]any{"items": []map[string]any{{"product_id": p.ID, "quantity": 2}}}
	c := a.alice.With("Idempotency-Key", "order-1")

	var first, again models.Order
	c.Post("/api/orders", body).Data(http.StatusCreated, &first)
	assert.Equal(t, 25.0, first.TotalAmount)
	assert.Equal(t, models.OrderPendingPayment, first.Status)

	res := c.Post("/api/orders", body)
	res.Data(http.StatusOK, &again)
	assert.Equal(t, "true", res.Header.Get("Idempotent-Replayed"))
	assert.Equal(t, first.ID, again.ID)

	var n int64
	require.NoError(t, a.db.Model(&models.Order{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	a.alice.Post("/api/orders", map[string]any{
		"items": []map[string]any{{"product_id": p.ID, "quantity": 9}},
	}).Expect(http.StatusConflict)
}

func TestTransitionEndpoint(t *testing.T) {
	a := newAPI(t)
	p := a.product(t, 10, 5)
	o := a.checkout(t, a.alice, p.ID)
	path := fmt.Sprintf("/api/orders/%d/transition", o.ID)

	proof := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	var got models.Order
	a.alice.Post(path, map[string]any{"action": "submit_proof", "proof_image": proof}).Data(http.StatusOK, &got)
	assert.Equal(t, models.OrderPendingReview, got.Status)
	require.NotNil(t, got.Payment)
	assert.Equal(t, models.PaymentUnderReview, got.Payment.PaymentStatus)

	a.alice.Post(path, map[string]any{"action": "approve_payment"}).Expect(http.StatusForbidden)
	a.admin.Post(path, map[string]any{"action": "approve_payment"}).Data(http.StatusOK, &got)
	assert.Equal(t, models.OrderProcessing, got.Status)

	a.admin.Post(path, map[string]any{"action": "update_shipment", "status": "delivered"}).Data(http.StatusOK, &got)
	assert.Equal(t, models.OrderCompleted, got.Status)

	env := a.admin.Post(path, map[string]any{"action": "update_shipment", "status": "in_transit"}).Expect(http.StatusConflict)
	assert.NotEmpty(t, env.Message)
	a.admin.Post(path, map[string]any{"action": "teleport"}).Expect(http.StatusUnprocessableEntity)
}

// png pads a PNG signature to n bytes.
func png(n int) []byte {
	b := make([]byte, n)
	copy(b, pngBytes)
	return b
}

func TestTransitionAcceptsLargeDataURLProof(t *testing.T) {
	a := newAPI(t)
	p := a.product(t, 10, 5)
	path := fmt.Sprintf("/api/orders/%d/transition", a.checkout(t, a.alice, p.ID).ID)
	dataURL := func(n int) string {
		return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png(n))
	}

	env := a.alice.Post(path, map[string]any{"action": "submit_proof", "proof_image": dataURL(proofMax + 1)}).
		Expect(http.StatusUnprocessableEntity)
	assert.Contains(t, env.Errors, "proof_image")

	var got models.Order
	a.alice.Post(path, map[string]any{"action": "submit_proof", "proof_image": dataURL(proofMax - 1024)}).Data(http.StatusOK, &got)
	assert.Equal(t, models.OrderPendingReview, got.Status)
}

func TestProofUploadAndDownload(t *testing.T) {
	a := newAPI(t)
	p := a.product(t, 10, 5)
	o := a.checkout(t, a.alice, p.ID)
	require.NotNil(t, o.Payment)

	upload := func(c *testkit.Client, name string, data []byte) *testkit.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile(name, "proof.png")
		require.NoError(t, err)
		_, _ = fw.Write(data)
		require.NoError(t, mw.Close())
		return c.With("Content-Type", mw.FormDataContentType()).
			Do(http.MethodPost, fmt.Sprintf("/api/payments/%d/proof", o.Payment.ID), &buf)
	}

	upload(a.alice, "wrong", pngBytes).Expect(http.StatusUnprocessableEntity)
	upload(a.alice, "proof", []byte("%PDF-1.4 not an image")).Expect(http.StatusUnprocessableEntity)
	upload(a.bob, "proof", pngBytes).Expect(http.StatusForbidden)
	env := upload(a.alice, "proof", png(proofMax+1)).Expect(http.StatusUnprocessableEntity)
	assert.Contains(t, env.Errors, "proof")

	var pay models.Payment
	upload(a.alice, "proof", pngBytes).Data(http.StatusOK, &pay)
	assert.Equal(t, models.PaymentUnderReview, pay.PaymentStatus)

	res := a.admin.Get(fmt.Sprintf("/api/payments/%d/proof", pay.ID))
	require.Equal(t, http.StatusOK, res.Code, res.String())
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	assert.Equal(t, pngBytes, res.Body)
}

func TestExportCSV(t *testing.T) {
	a := newAPI(t)
	p := a.product(t, 10, 5)
	o := a.checkout(t, a.alice, p.ID)

	res := a.admin.Get("/api/orders/export?format=csv")
	require.Equal(t, http.StatusOK, res.Code, res.String())
	assert.True(t, strings.HasPrefix(res.Header.Get("Content-Type"), "text/csv"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), ".csv")
	lines := strings.Split(strings.TrimSpace(string(res.Body)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], fmt.Sprintf("%d,", o.ID)))

	a.admin.Get("/api/orders/export?format=pdf").Expect(http.StatusUnprocessableEntity)
	a.alice.Get("/api/orders/export").Expect(http.StatusForbidden)
}

func TestCartCheckoutRoute(t *testing.T) {
	a := newAPI(t)
	p := a.product(t, 4, 5)

	var cart models.Cart
	a.alice.Post("/api/carts", nil).Data(http.StatusOK, &cart)
	a.alice.Post("/api/cart-items", map[string]any{"product_id": p.ID, "quantity": 2}).Expect(http.StatusCreated)
	a.alice.Post("/api/cart-items", map[string]any{"product_id": p.ID, "quantity": 1}).Expect(http.StatusCreated)

	a.alice.Get(fmt.Sprintf("/api/carts/%d", cart.ID)).Data(http.StatusOK, &cart)
	assert.Equal(t, 3, cart.ItemCount)

	a.bob.Post(fmt.Sprintf("/api/carts/%d/checkout", cart.ID), nil).Expect(http.StatusForbidden)
	var o models.Order
	a.alice.Post(fmt.Sprintf("/api/carts/%d/checkout", cart.ID), nil).Data(http.StatusCreated, &o)
	assert.Equal(t, 17.0, o.TotalAmount)
}

func TestGraphQLCatalog(t *testing.T) {
	a := newAPI(t)
	a.product(t, 12.5, 3)

	res := a.client.Post("/graphql", map[string]any{"query": `{ products(q: "tea") { name price category { name } } }`})
	require.Equal(t, http.StatusOK, res.Code, res.String())
	var out struct {
		Data struct {
			Products []struct {
				Name     string  `json:"name"`
				Price    float64 `json:"price"`
				Category struct {
					Name string `json:"name"`
				} `json:"category"`
			} `json:"products"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body, &out))
	require.Len(t, out.Data.Products, 1)
	assert.Equal(t, "Teapot", out.Data.Products[0].Name)
	assert.Equal(t, 12.5, out.Data.Products[0].Price)
	assert.Equal(t, "General", out.Data.Products[0].Category.Name)

	assert.Equal(t, http.StatusBadRequest, a.client.Post("/graphql", map[string]any{}).Code)
}

func TestHealthAndRouteNames(t *testing.T) {
	a := newAPI(t)
	a.client.Get("/healthz").Expect(http.StatusOK)

	names := map[string]bool{}
	for _, ri := range a.router.Routes() {
		names[ri.Name] = true
	}
	for _, want := range []string{"orders.transition", "orders.events", "payments.proof.store", "shipment-events.store", "graphql"} {
		assert.True(t, names[want], want)
	}
}
