package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/lifecycle"
	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/orm"
)

type ShipmentService struct {
	d         Deps
	lifecycle *LifecycleService
}

type ShipmentInput struct {
	OrderID uint `json:"order_id" validate:"required"`
}

// ShipmentEventInput appends an audit line without moving the shipment.
type ShipmentEventInput struct {
	ShipmentID uint   `json:"shipment_id" validate:"required"`
	Status     string `json:"status" validate:"required"`
	Note       string `json:"note" validate:"max:1000"`
}

var errShipmentExists = &Error{"order already has a shipment", http.StatusConflict}

func shipmentDetails(q *gorm.DB) *gorm.DB {
	return q.Preload("Events", repositories.EventsAscending).Preload("Order")
}

func (s *ShipmentService) repo() repositories.Repository[models.Shipment] {
	return repositories.New[models.Shipment](s.d.DB)
}

func (s *ShipmentService) List(ctx context.Context, a Actor, req orm.PageRequest) ([]models.Shipment, orm.Pagination, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		if !a.Admin() {
			q = q.Where("order_id IN (?)", s.d.DB.Model(&models.Order{}).Select("id").Where("user_id = ?", a.ID))
		}
		return q.Order("id DESC")
	}
	return s.repo().Paginate(ctx, req, filter, shipmentDetails)
}

func (s *ShipmentService) Get(ctx context.Context, a Actor, id uint) (*models.Shipment, error) {
	sh, err := s.repo().Find(ctx, id, shipmentDetails)
	if err != nil {
		return nil, err
	}
	if sh.Order == nil {
		return nil, ErrNotFound
	}
	if err := a.authorize(sh.Order.UserID); err != nil {
		return nil, err
	}
	return sh, nil
}

// Create adds the shipment an order is missing. Its status follows the
// payment: preparing when already paid, pending otherwise.
func (s *ShipmentService) Create(ctx context.Context, in ShipmentInput) (*models.Shipment, error) {
	var sh *models.Shipment
	err := s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("order_id", "The selected order_id is invalid.")
			}
			return err
		}
		if o.Status.Terminal() {
			return errOrderClosed
		}
		existing, err := optional[models.Shipment](tx, "order_id = ?", o.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errShipmentExists
		}
		payment, err := optional[models.Payment](tx, "order_id = ?", o.ID)
		if err != nil {
			return err
		}
		status, note := models.ShipmentPendingPayment, lifecycle.NoteCheckout
		if payment != nil && payment.PaymentStatus == models.PaymentPaid {
			status, note = models.ShipmentPreparingShipment, lifecycle.NoteApproved
		}
		sh, err = createShipment(tx, s.d, o.ID, status, note)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *ShipmentService) Update(ctx context.Context, a Actor, id uint, in ShipmentUpdate) (*models.Shipment, error) {
	sh, err := s.repo().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.lifecycle.UpdateShipment(ctx, a, sh.OrderID, in); err != nil {
		return nil, err
	}
	return s.repo().Find(ctx, id, shipmentDetails)
}

// Delete removes the shipment and its events.
func (s *ShipmentService) Delete(ctx context.Context, id uint) error {
	return s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Shipment{}, id).Error; err != nil {
			return translateNotFound(err)
		}
		if err := tx.Where("shipment_id = ?", id).Delete(&models.ShipmentEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Shipment{}, id).Error
	})
}

// AddEvent records an audit line. The shipment status is left alone.
func (s *ShipmentService) AddEvent(ctx context.Context, in ShipmentEventInput) (*models.ShipmentEvent, error) {
	status, err := lifecycle.ParseShipmentStatus(in.Status)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo().Exists(ctx, in.ShipmentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("shipment_id", "The selected shipment_id is invalid.")
	}
	ev := &models.ShipmentEvent{
		ShipmentID: in.ShipmentID,
		Status:     status,
		Note:       strings.TrimSpace(in.Note),
		CreatedAt:  s.d.Now(),
	}
	if err := s.d.DB.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}
