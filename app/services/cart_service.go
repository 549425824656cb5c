package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/orm"
)

type CartService struct {
	d Deps
}

type CartLine struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required|gte:1|lte:1000"`
}

// CartUpdate replaces the cart contents.
type CartUpdate struct {
	Items []CartLine `json:"items" validate:"dive"`
}

type CartItemInput struct {
	CartID    uint `json:"cart_id"`
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"gte:1|lte:1000"`
}

type CartItemUpdate struct {
	Quantity int `json:"quantity" validate:"required|gte:1|lte:1000"`
}

func cartContents(q *gorm.DB) *gorm.DB {
	return q.Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id") }).Preload("Items.Product")
}

func (s *CartService) List(ctx context.Context, a Actor, req orm.PageRequest) ([]models.Cart, orm.Pagination, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		if !a.Admin() {
			q = q.Where("user_id = ?", a.ID)
		}
		return q.Order("id")
	}
	carts, p, err := repositories.New[models.Cart](s.d.DB).Paginate(ctx, req, filter, cartContents)
	for i := range carts {
		carts[i].Count()
	}
	return carts, p, err
}

// Mine returns the caller's cart, creating it on first use.
func (s *CartService) Mine(ctx context.Context, a Actor) (*models.Cart, error) {
	return s.mine(ctx, s.d.DB, a.ID)
}

func (s *CartService) mine(ctx context.Context, db *gorm.DB, userID uint) (*models.Cart, error) {
	c := models.Cart{UserID: userID}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error
	if err != nil {
		return nil, err
	}
	out, err := repositories.New[models.Cart](db).FindBy(ctx, "user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, db, out.ID)
}

func (s *CartService) load(ctx context.Context, db *gorm.DB, id uint) (*models.Cart, error) {
	c, err := repositories.New[models.Cart](db).Find(ctx, id, cartContents)
	if err != nil {
		return nil, err
	}
	c.Count()
	return c, nil
}

func (s *CartService) Get(ctx context.Context, a Actor, id uint) (*models.Cart, error) {
	c, err := s.load(ctx, s.d.DB, id)
	if err != nil {
		return nil, err
	}
	if err := a.authorize(c.UserID); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace swaps the cart contents for in.Items. Repeated products are
// merged.
func (s *CartService) Replace(ctx context.Context, a Actor, id uint, in CartUpdate) (*models.Cart, error) {
	if _, err := s.Get(ctx, a, id); err != nil {
		return nil, err
	}
	merged := map[uint]int{}
	var order []uint
	for _, l := range in.Items {
		if _, seen := merged[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		merged[l.ProductID] += l.Quantity
	}

	err := s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		for _, pid := range order {
			if err := productExists(ctx, tx, pid); err != nil {
				return err
			}
			if err := tx.Create(&models.CartItem{CartID: id, ProductID: pid, Quantity: merged[pid]}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.d.DB, id)
}

func (s *CartService) Delete(ctx context.Context, a Actor, id uint) error {
	if _, err := s.Get(ctx, a, id); err != nil {
		return err
	}
	return s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteCarts(tx, []uint{id})
	})
}

// ─── Items ───────────────────────────────────────────────────────────────────

func (s *CartService) Items(ctx context.Context, a Actor, req orm.PageRequest) ([]models.CartItem, orm.Pagination, error) {
	filter := func(q *gorm.DB) *gorm.DB {
		if !a.Admin() {
			q = q.Where("cart_id IN (?)", s.d.DB.Model(&models.Cart{}).Select("id").Where("user_id = ?", a.ID))
		}
		return q.Order("id")
	}
	return repositories.New[models.CartItem](s.d.DB).Paginate(ctx, req, filter, repositories.Preload("Product"))
}

func (s *CartService) Item(ctx context.Context, a Actor, id uint) (*models.CartItem, error) {
	it, err := repositories.New[models.CartItem](s.d.DB).Find(ctx, id, repositories.Preload("Product", "Cart"))
	if err != nil {
		return nil, err
	}
	if it.Cart == nil {
		return nil, ErrNotFound
	}
	if err := a.authorize(it.Cart.UserID); err != nil {
		return nil, err
	}
	return it, nil
}

// AddItem puts a product in a cart, adding to the quantity when the
// product is already there. Without a cart id the caller's own cart is
// used.
func (s *CartService) AddItem(ctx context.Context, a Actor, in CartItemInput) (*models.CartItem, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	var out models.CartItem
	err := s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cartID := in.CartID
		if cartID == 0 {
			c, err := s.mine(ctx, tx, a.ID)
			if err != nil {
				return err
			}
			cartID = c.ID
		} else {
			var c models.Cart
			if err := tx.First(&c, cartID).Error; err != nil {
				return translateNotFound(err)
			}
			if err := a.authorize(c.UserID); err != nil {
				return err
			}
		}
		if err := productExists(ctx, tx, in.ProductID); err != nil {
			return err
		}

		err := tx.Where("cart_id = ? AND product_id = ?", cartID, in.ProductID).First(&out).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = models.CartItem{CartID: cartID, ProductID: in.ProductID, Quantity: in.Quantity}
			return tx.Create(&out).Error
		case err != nil:
			return err
		}
		out.Quantity += in.Quantity
		return tx.Model(&out).Update("quantity", out.Quantity).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CartService) UpdateItem(ctx context.Context, a Actor, id uint, in CartItemUpdate) (*models.CartItem, error) {
	it, err := s.Item(ctx, a, id)
	if err != nil {
		return nil, err
	}
	if err := repositories.New[models.CartItem](s.d.DB).Update(ctx, id, map[string]interface{}{"quantity": in.Quantity}); err != nil {
		return nil, err
	}
	it.Quantity = in.Quantity
	it.Cart = nil
	return it, nil
}

func (s *CartService) DeleteItem(ctx context.Context, a Actor, id uint) error {
	if _, err := s.Item(ctx, a, id); err != nil {
		return err
	}
	return repositories.New[models.CartItem](s.d.DB).Delete(ctx, id)
}

func productExists(ctx context.Context, tx *gorm.DB, id uint) error {
	ok, err := repositories.New[models.Product](tx).Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return invalid("product_id", "The selected product_id is invalid.")
	}
	return nil
}
