package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/orm"
)

type OrderService struct {
	d         Deps
	lifecycle *LifecycleService
}

// OrderUpdate is the legacy PUT body. Only status is honoured.
type OrderUpdate struct {
	Status string `json:"status" validate:"required"`
}

func (s *OrderService) repo() *repositories.OrderRepository {
	return repositories.NewOrderRepository(s.d.DB)
}

// List shows admins every order, optionally for one user, and customers
// their own. Newest first.
func (s *OrderService) List(ctx context.Context, a Actor, userID uint, req orm.PageRequest) ([]models.Order, orm.Pagination, error) {
	f := repositories.OrderFilter{UserID: userID}
	if !a.Admin() {
		f.UserID = a.ID
	}
	return s.repo().List(ctx, f, req)
}

func (s *OrderService) Get(ctx context.Context, a Actor, id uint) (*models.Order, error) {
	o, err := s.repo().Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.authorize(o.UserID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) Update(ctx context.Context, a Actor, id uint, in OrderUpdate) (*models.Order, error) {
	return s.lifecycle.SetOrderStatus(ctx, a, id, in.Status)
}

// Delete removes the order with its items, payment, shipment and events,
// then the stored proofs.
func (s *OrderService) Delete(ctx context.Context, id uint) error {
	err := s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Order{}, id).Error; err != nil {
			return translateNotFound(err)
		}
		return deleteOrders(tx, []uint{id})
	})
	if err != nil {
		return err
	}
	s.d.removeDir(ctx, proofDir(id))
	return nil
}

// Items lists order lines for the admin view.
func (s *OrderService) Items(ctx context.Context, orderID uint, req orm.PageRequest) ([]models.OrderItem, orm.Pagination, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		if orderID != 0 {
			q = q.Where("order_id = ?", orderID)
		}
		return q.Order("id")
	}
	return repositories.New[models.OrderItem](s.d.DB).Paginate(ctx, req, filter, repositories.Preload("Product"))
}
