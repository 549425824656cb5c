package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/pkg/orm"
)

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	UserID uint
	Status models.OrderStatus
}

func (f OrderFilter) where(q *gorm.DB) *gorm.DB {
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// scope filters and sorts newest first.
func (f OrderFilter) scope(q *gorm.DB) *gorm.DB {
	return f.where(q).Order("order_date DESC").Order("id DESC")
}

// EventsAscending orders shipment events oldest first.
func EventsAscending(q *gorm.DB) *gorm.DB {
	return q.Order("created_at ASC").Order("id ASC")
}

// OrderDetails preloads everything an order page shows.
func OrderDetails(q *gorm.DB) *gorm.DB {
	return q.Preload("User").
		Preload("Items").
		Preload("Items.Product").
		Preload("Payment").
		Preload("Shipment").
		Preload("Shipment.Events", EventsAscending)
}

type OrderRepository struct {
	Repository[models.Order]
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{Repository: New[models.Order](db)}
}

func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{Repository: r.Repository.WithTx(tx)}
}

func (r *OrderRepository) List(ctx context.Context, f OrderFilter, req orm.PageRequest) ([]models.Order, orm.Pagination, error) {
	return r.Paginate(ctx, req, f.scope, OrderDetails)
}

func (r *OrderRepository) Detail(ctx context.Context, id uint) (*models.Order, error) {
	return r.Find(ctx, id, OrderDetails)
}

// Each walks every order matching f in id order, batch rows at a time.
func (r *OrderRepository) Each(ctx context.Context, f OrderFilter, batch int, fn func([]models.Order) error) error {
	var rows []models.Order
	q := f.where(r.query(ctx)).Preload("Payment").Preload("Shipment").Preload("User").Preload("Items")
	res := q.FindInBatches(&rows, batch, func(_ *gorm.DB, _ int) error { return fn(rows) })
	return res.Error
}

// Open returns every order that is not cancelled, with the payment and
// shipment rows loaded.
func (r *OrderRepository) Open(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	err := r.query(ctx).
		Where("status NOT IN ?", []models.OrderStatus{models.OrderCancelled}).
		Preload("Payment").Preload("Shipment").
		Order("id").
		Find(&out).Error
	return out, err
}
