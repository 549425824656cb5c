// Package models defines the storefront's persisted entities.
package models

import (
	"math"
	"time"
)

// Base replaces gorm.Model without soft deletes: rows removed by the cascade
// operations are gone for good.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// All lists every model in dependency order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Product{},
		&Review{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&Shipment{},
		&ShipmentEvent{},
	}
}
