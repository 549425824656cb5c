package services

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/crypt"
	"github.com/shashiranjanraj/panaya/pkg/orm"
	"github.com/shashiranjanraj/panaya/pkg/storage"
)

type PaymentService struct {
	d         Deps
	lifecycle *LifecycleService
}

type PaymentInput struct {
	OrderID       uint   `json:"order_id" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"max:50"`
}

// PaymentUpdate writes the method directly unless a status is given; then
// both go through the order lifecycle.
type PaymentUpdate struct {
	PaymentMethod *string `json:"payment_method" validate:"max:50"`
	PaymentStatus *string `json:"payment_status"`
}

var (
	errPaymentExists = &Error{"order already has a payment", http.StatusConflict}
	errOrderClosed   = &Error{"order is closed", http.StatusConflict}
)

func paymentDetails(q *gorm.DB) *gorm.DB {
	return q.Preload("Order").Preload("Order.Shipment").Preload("User")
}

func (s *PaymentService) repo() repositories.Repository[models.Payment] {
	return repositories.New[models.Payment](s.d.DB)
}

func (s *PaymentService) List(ctx context.Context, a Actor, req orm.PageRequest) ([]models.Payment, orm.Pagination, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		if !a.Admin() {
			q = q.Where("user_id = ?", a.ID)
		}
		return q.Order("id DESC")
	}
	return s.repo().Paginate(ctx, req, filter, paymentDetails)
}

func (s *PaymentService) Get(ctx context.Context, a Actor, id uint) (*models.Payment, error) {
	p, err := s.repo().Find(ctx, id, paymentDetails)
	if err != nil {
		return nil, err
	}
	if err := a.authorize(p.UserID); err != nil {
		return nil, err
	}
	return p, nil
}

// Create adds a pending payment to an order that has none.
func (s *PaymentService) Create(ctx context.Context, a Actor, in PaymentInput) (*models.Payment, error) {
	method := in.PaymentMethod
	if method == "" {
		method = models.PaymentMethodManualTransfer
	}
	var p models.Payment
	err := s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("order_id", "The selected order_id is invalid.")
			}
			return err
		}
		if err := a.authorize(o.UserID); err != nil {
			return err
		}
		if o.Status.Terminal() {
			return errOrderClosed
		}
		existing, err := optional[models.Payment](tx, "order_id = ?", o.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errPaymentExists
		}
		p = models.Payment{
			OrderID:       o.ID,
			UserID:        o.UserID,
			PaymentMethod: method,
			PaymentStatus: models.PaymentPending,
			Amount:        o.TotalAmount,
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update runs a present payment_status through the lifecycle, so asking
// for the status a payment already has is rejected like any other invalid
// transition.
func (s *PaymentService) Update(ctx context.Context, a Actor, id uint, in PaymentUpdate) (*models.Payment, error) {
	p, err := s.repo().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case in.PaymentStatus != nil:
		if _, err := s.lifecycle.SetPaymentStatus(ctx, a, p.OrderID, *in.PaymentStatus, in.PaymentMethod); err != nil {
			return nil, err
		}
	case in.PaymentMethod != nil:
		if err := s.repo().Update(ctx, id, map[string]interface{}{"payment_method": *in.PaymentMethod}); err != nil {
			return nil, err
		}
	}
	return s.repo().Find(ctx, id, paymentDetails)
}

func (s *PaymentService) Delete(ctx context.Context, id uint) error {
	p, err := s.repo().Find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo().Delete(ctx, id); err != nil {
		return err
	}
	s.d.removeObjects(ctx, p.ProofPath)
	return nil
}

// UploadProof stores data as the proof of payment id and moves the order
// to review.
func (s *PaymentService) UploadProof(ctx context.Context, a Actor, id uint, data []byte) (*models.Payment, error) {
	p, err := s.Get(ctx, a, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.lifecycle.SubmitProof(ctx, a, p.OrderID, data); err != nil {
		return nil, err
	}
	return s.repo().Find(ctx, id, paymentDetails)
}

// Proof returns the decrypted proof image and its content type.
func (s *PaymentService) Proof(ctx context.Context, a Actor, id uint) ([]byte, string, error) {
	p, err := s.Get(ctx, a, id)
	if err != nil {
		return nil, "", err
	}
	if !p.HasProof() {
		return nil, "", ErrNotFound
	}
	sealed, err := s.d.Disk.Get(ctx, p.ProofPath)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	data, err := crypt.Open(sealed, []byte(p.ProofPath))
	if err != nil {
		return nil, "", err
	}
	return data, p.ProofContentType, nil
}
