// Package services holds the storefront's business rules. Controllers call
// them with an Actor; every multi-row write runs in one transaction.
package services

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/config"
	"github.com/shashiranjanraj/panaya/pkg/cache"
	"github.com/shashiranjanraj/panaya/pkg/event"
	"github.com/shashiranjanraj/panaya/pkg/idempotency"
	"github.com/shashiranjanraj/panaya/pkg/logger"
	"github.com/shashiranjanraj/panaya/pkg/storage"
)

// Deps are the shared collaborators. Zero fields fall back to the package
// defaults in New.
type Deps struct {
	DB          *gorm.DB
	Cache       cache.Store
	Disk        storage.Disk
	Events      *event.Dispatcher
	Idempotency *idempotency.Store
	Node        *snowflake.Node

	ShippingFee   float64
	ProofMaxBytes int64
	CatalogTTL    time.Duration
	Now           func() time.Time
}

// Services is every service wired to the same Deps.
type Services struct {
	Auth      *AuthService
	Users     *UserService
	Catalog   *CatalogService
	Reviews   *ReviewService
	Carts     *CartService
	Checkout  *CheckoutService
	Orders    *OrderService
	Lifecycle *LifecycleService
	Payments  *PaymentService
	Shipments *ShipmentService
	Reconcile *ReconcileService
	Export    *ExportService
}

// DepsFromConfig fills the tunables from config.
func DepsFromConfig(db *gorm.DB) Deps {
	return Deps{
		DB:            db,
		ShippingFee:   config.ShippingFee(),
		ProofMaxBytes: config.ProofMaxBytes(),
		CatalogTTL:    config.CatalogCacheTTL(),
	}
}

func New(d Deps) (*Services, error) {
	if d.Cache == nil {
		d.Cache = cache.Default
	}
	if d.Disk == nil {
		d.Disk = storage.Default()
	}
	if d.Events == nil {
		d.Events = event.Default()
	}
	if d.Node == nil {
		n, err := snowflake.NewNode(int64(config.GetInt("NODE_ID")) % 1024)
		if err != nil {
			return nil, err
		}
		d.Node = n
	}
	if d.ProofMaxBytes <= 0 {
		d.ProofMaxBytes = 5 << 20
	}
	if d.CatalogTTL <= 0 {
		d.CatalogTTL = time.Minute
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	lc := &LifecycleService{d: d}
	return &Services{
		Auth:      &AuthService{d: d},
		Users:     &UserService{d: d},
		Catalog:   &CatalogService{d: d},
		Reviews:   &ReviewService{d: d},
		Carts:     &CartService{d: d},
		Checkout:  &CheckoutService{d: d},
		Orders:    &OrderService{d: d, lifecycle: lc},
		Lifecycle: lc,
		Payments:  &PaymentService{d: d, lifecycle: lc},
		Shipments: &ShipmentService{d: d, lifecycle: lc},
		Reconcile: &ReconcileService{d: d},
		Export:    &ExportService{d: d},
	}, nil
}

// fire publishes an event without blocking. Listener failures are logged
// by the dispatcher and never reach the caller.
func (d Deps) fire(ctx context.Context, name string, payload interface{}) {
	if d.Events == nil {
		return
	}
	d.Events.FireAsync(ctx, name, payload)
}

// removeObjects deletes storage keys after a commit, logging failures.
func (d Deps) removeObjects(ctx context.Context, keys ...string) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if err := d.Disk.Delete(ctx, k); err != nil {
			logger.WithCtx(ctx).Warn("storage: delete failed", "key", k, "error", err)
		}
	}
}

func (d Deps) removeDir(ctx context.Context, dir string) {
	if err := d.Disk.DeleteDirectory(ctx, dir); err != nil {
		logger.WithCtx(ctx).Warn("storage: delete directory failed", "dir", dir, "error", err)
	}
}
