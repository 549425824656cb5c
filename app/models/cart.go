package models

type Cart struct {
	Base
	UserID uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	User   *User      `json:"user,omitempty"`
	Items  []CartItem `gorm:"foreignKey:CartID" json:"cart_items"`

	ItemCount int `gorm:"-" json:"item_count"`
}

// Count sums item quantities, which is what the cart badge shows.
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	c.ItemCount = n
	return n
}

type CartItem struct {
	Base
	CartID    uint     `gorm:"not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uint     `gorm:"not null;uniqueIndex:idx_cart_product;index" json:"product_id"`
	Quantity  int      `gorm:"not null;default:1" json:"quantity"`
	Product   *Product `json:"product,omitempty"`
	Cart      *Cart    `json:"cart,omitempty"`
}
