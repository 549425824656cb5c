package services_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/config"
	"github.com/shashiranjanraj/panaya/pkg/cache"
	"github.com/shashiranjanraj/panaya/pkg/database"
	"github.com/shashiranjanraj/panaya/pkg/event"
	"github.com/shashiranjanraj/panaya/pkg/idempotency"
	"github.com/shashiranjanraj/panaya/pkg/storage"
)

var dbSeq int64

// pngBytes sniffs as image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

type fixture struct {
	db     *gorm.DB
	svc    *services.Services
	events *event.Dispatcher
	disk   *storage.Local

	admin services.Actor
	alice services.Actor
	bob   services.Actor
}

type option func(*services.Deps)

func withIdempotency(t *testing.T) option {
	return func(d *services.Deps) {
		store, err := idempotency.Open(t.TempDir()+"/idem.db", time.Hour)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		d.Idempotency = store
	}
}

func setup(t *testing.T, opts ...option) *fixture {
	t.Helper()
	config.Set("APP_KEY", "services-test-key")
	t.Cleanup(config.Reset)

	dsn := fmt.Sprintf("file:services_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	f := &fixture{db: db, events: event.New(nil), disk: storage.NewLocal(t.TempDir(), "")}
	d := services.Deps{
		DB:          db,
		Cache:       cache.NewMemory(),
		Disk:        f.disk,
		Events:      f.events,
		Node:        node,
		ShippingFee: 5,
	}
	for _, o := range opts {
		o(&d)
	}
	f.svc, err = services.New(d)
	require.NoError(t, err)

	f.admin = f.user(t, "admin@panaya.test", models.RoleAdmin)
	f.alice = f.user(t, "alice@panaya.test", models.RoleCustomer)
	f.bob = f.user(t, "bob@panaya.test", models.RoleCustomer)
	return f
}

func (f *fixture) user(t *testing.T, email string, role models.Role) services.Actor {
	t.Helper()
	u := models.User{Name: email, Email: email, Password: "x", Role: role}
	require.NoError(t, f.db.Create(&u).Error)
	return services.Actor{ID: u.ID, Role: role}
}

func (f *fixture) product(t *testing.T, name string, price float64, stock int) models.Product {
	t.Helper()
	var cat models.Category
	require.NoError(t, f.db.Where(models.Category{Name: "General"}).FirstOrCreate(&cat).Error)
	p := models.Product{Name: name, Price: price, StockQuantity: stock, CategoryID: cat.ID}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) stock(t *testing.T, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.First(&p, productID).Error)
	return p.StockQuantity
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

// place checks out one unit of a fresh product for a.
func (f *fixture) place(t *testing.T, a services.Actor) *models.Order {
	t.Helper()
	p := f.product(t, fmt.Sprintf("Item %d", atomic.AddInt64(&dbSeq, 1)), 10, 5)
	res, err := f.svc.Checkout.Checkout(context.Background(), a, services.CheckoutInput{
		Items: []services.CheckoutLine{{ProductID: p.ID, Quantity: 1}},
	}, "")
	require.NoError(t, err)
	return res.Order
}

// paid takes a fresh order through proof upload and approval.
func (f *fixture) paid(t *testing.T, a services.Actor) *models.Order {
	t.Helper()
	ctx := context.Background()
	o := f.place(t, a)
	_, err := f.svc.Lifecycle.SubmitProof(ctx, a, o.ID, pngBytes)
	require.NoError(t, err)
	o, err = f.svc.Lifecycle.Transition(ctx, f.admin, o.ID, services.TransitionInput{Action: "approve_payment"})
	require.NoError(t, err)
	return o
}
