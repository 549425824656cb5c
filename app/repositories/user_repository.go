package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/pkg/orm"
)

type UserRepository struct {
	Repository[models.User]
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{Repository: New[models.User](db)}
}

// FindByEmail matches case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.FindBy(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

// ListWithStats pages users with their order count and total spent.
// Cancelled orders are not counted as spending.
func (r *UserRepository) ListWithStats(ctx context.Context, req orm.PageRequest) ([]models.UserStats, orm.Pagination, error) {
	users, p, err := r.Paginate(ctx, req, func(q *gorm.DB) *gorm.DB { return q.Order("id") })
	if err != nil || len(users) == 0 {
		return []models.UserStats{}, p, err
	}

	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	type agg struct {
		UserID     uint
		Orders     int64
		TotalSpent float64
	}
	var rows []agg
	err = r.db.WithContext(ctx).Model(&models.Order{}).
		Select("user_id, COUNT(*) AS orders, COALESCE(SUM(CASE WHEN status <> ? THEN total_amount ELSE 0 END), 0) AS total_spent", models.OrderCancelled).
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, p, err
	}

	byUser := make(map[uint]agg, len(rows))
	for _, a := range rows {
		byUser[a.UserID] = a
	}
	out := make([]models.UserStats, len(users))
	for i, u := range users {
		a := byUser[u.ID]
		out[i] = models.UserStats{User: u, Orders: a.Orders, TotalSpent: models.RoundMoney(a.TotalSpent)}
	}
	return out, p, nil
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string, except uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ? AND id <> ?", strings.ToLower(strings.TrimSpace(email)), except).
		Count(&n).Error
	return n > 0, err
}
