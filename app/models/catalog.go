package models

type Category struct {
	Base
	Name        string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Products    []Product `json:"products,omitempty"`

	ProductCount int64 `gorm:"-" json:"product_count"`
}

type Product struct {
	Base
	Name          string    `gorm:"size:255;not null;index" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Price         float64   `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	StockQuantity int       `gorm:"not null;default:0" json:"stock_quantity"`
	CategoryID    uint      `gorm:"not null;index" json:"category_id"`
	Image         string    `gorm:"type:text" json:"image"`
	Category      *Category `json:"category,omitempty"`
	Reviews       []Review  `json:"reviews,omitempty"`
}

type Review struct {
	Base
	UserID    uint     `gorm:"not null;index" json:"user_id"`
	ProductID uint     `gorm:"not null;index" json:"product_id"`
	Rating    int      `gorm:"not null" json:"rating"`
	Comment   string   `gorm:"type:text" json:"comment"`
	User      *User    `json:"user,omitempty"`
	Product   *Product `json:"product,omitempty"`
}
