package models

type User struct {
	Base
	Name     string `gorm:"size:255;not null" json:"name"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"`
	Address  string `gorm:"size:500" json:"address"`
	Phone    string `gorm:"size:50" json:"phone"`
	Role     Role   `gorm:"size:20;not null;default:customer;index" json:"role"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserStats is a user row with its order aggregates.
type UserStats struct {
	User
	Orders     int64   `json:"orders"`
	TotalSpent float64 `json:"total_spent"`
}
