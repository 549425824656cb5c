package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
)

// The helpers below run inside the caller's transaction and delete
// children before parents, so a failure at any step rolls back the lot.

func deleteOrders(tx *gorm.DB, orderIDs []uint) error {
	if len(orderIDs) == 0 {
		return nil
	}
	shipments := tx.Model(&models.Shipment{}).Select("id").Where("order_id IN ?", orderIDs)
	steps := []struct {
		name string
		run  func() error
	}{
		{"shipment events", func() error {
			return tx.Where("shipment_id IN (?)", shipments).Delete(&models.ShipmentEvent{}).Error
		}},
		{"shipments", func() error { return tx.Where("order_id IN ?", orderIDs).Delete(&models.Shipment{}).Error }},
		{"payments", func() error { return tx.Where("order_id IN ?", orderIDs).Delete(&models.Payment{}).Error }},
		{"order items", func() error { return tx.Where("order_id IN ?", orderIDs).Delete(&models.OrderItem{}).Error }},
		{"orders", func() error { return tx.Where("id IN ?", orderIDs).Delete(&models.Order{}).Error }},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			return fmt.Errorf("delete %s: %w", s.name, err)
		}
	}
	return nil
}

func deleteProducts(tx *gorm.DB, productIDs []uint) error {
	if len(productIDs) == 0 {
		return nil
	}
	for _, m := range []interface{}{&models.Review{}, &models.OrderItem{}, &models.CartItem{}} {
		if err := tx.Where("product_id IN ?", productIDs).Delete(m).Error; err != nil {
			return fmt.Errorf("delete %T: %w", m, err)
		}
	}
	if err := tx.Where("id IN ?", productIDs).Delete(&models.Product{}).Error; err != nil {
		return fmt.Errorf("delete products: %w", err)
	}
	return nil
}

func deleteCarts(tx *gorm.DB, cartIDs []uint) error {
	if len(cartIDs) == 0 {
		return nil
	}
	if err := tx.Where("cart_id IN ?", cartIDs).Delete(&models.CartItem{}).Error; err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return tx.Where("id IN ?", cartIDs).Delete(&models.Cart{}).Error
}

func pluckIDs(tx *gorm.DB, model interface{}, cond string, args ...interface{}) ([]uint, error) {
	var ids []uint
	err := tx.Model(model).Where(cond, args...).Pluck("id", &ids).Error
	return ids, err
}

func proofDir(orderID uint) string { return fmt.Sprintf("proofs/%d", orderID) }

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
