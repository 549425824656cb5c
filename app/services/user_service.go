package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/auth"
	"github.com/shashiranjanraj/panaya/pkg/orm"
)

type UserService struct {
	d Deps
}

type UserInput struct {
	Name     string `json:"name" validate:"required|max:255"`
	Email    string `json:"email" validate:"required|email|max:255"`
	Password string `json:"password" validate:"required|min:8|max:72"`
	Address  string `json:"address" validate:"max:500"`
	Phone    string `json:"phone" validate:"max:30"`
	Role     string `json:"role" validate:"in:customer,admin"`
}

// UserUpdate leaves nil fields untouched.
type UserUpdate struct {
	Name     *string `json:"name" validate:"max:255"`
	Email    *string `json:"email" validate:"email|max:255"`
	Password *string `json:"password" validate:"min:8|max:72"`
	Address  *string `json:"address" validate:"max:500"`
	Phone    *string `json:"phone" validate:"max:30"`
	Role     *string `json:"role" validate:"in:customer,admin"`
}

func (s *UserService) repo() *repositories.UserRepository {
	return repositories.NewUserRepository(s.d.DB)
}

func (s *UserService) List(ctx context.Context, req orm.PageRequest) ([]models.UserStats, orm.Pagination, error) {
	return s.repo().ListWithStats(ctx, req)
}

func (s *UserService) Get(ctx context.Context, a Actor, id uint) (*models.User, error) {
	if err := a.authorize(id); err != nil {
		return nil, err
	}
	return s.repo().Find(ctx, id)
}

// Register creates an account. Only an admin caller may choose the role.
func (s *UserService) Register(ctx context.Context, a *Actor, in UserInput) (*models.User, error) {
	role := models.RoleCustomer
	if in.Role != "" && in.Role != string(models.RoleCustomer) {
		if a == nil || !a.Admin() {
			return nil, ErrForbidden
		}
		role = models.Role(in.Role)
	}

	repo := s.repo()
	taken, err := repo.EmailTaken(ctx, in.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Password: hash,
		Address:  in.Address,
		Phone:    in.Phone,
		Role:     role,
	}
	if err := repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Update(ctx context.Context, a Actor, id uint, in UserUpdate) (*models.User, error) {
	if err := a.authorize(id); err != nil {
		return nil, err
	}
	repo := s.repo()
	if _, err := repo.Find(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		taken, err := repo.EmailTaken(ctx, email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailTaken
		}
		fields["email"] = email
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		fields["password"] = hash
	}
	if in.Address != nil {
		fields["address"] = *in.Address
	}
	if in.Phone != nil {
		fields["phone"] = *in.Phone
	}
	if in.Role != nil {
		if !a.Admin() {
			return nil, ErrForbidden
		}
		fields["role"] = models.Role(*in.Role)
	}
	if len(fields) > 0 {
		if err := repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return repo.Find(ctx, id)
}

// Delete removes the user with their carts, reviews and orders.
func (s *UserService) Delete(ctx context.Context, a Actor, id uint) error {
	if err := a.authorize(id); err != nil {
		return err
	}
	var orderIDs []uint
	err := s.d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, id).Error; err != nil {
			return translateNotFound(err)
		}
		cartIDs, err := pluckIDs(tx, &models.Cart{}, "user_id = ?", id)
		if err != nil {
			return err
		}
		if err := deleteCarts(tx, cartIDs); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if orderIDs, err = pluckIDs(tx, &models.Order{}, "user_id = ?", id); err != nil {
			return err
		}
		if err := deleteOrders(tx, orderIDs); err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return err
	}
	for _, oid := range orderIDs {
		s.d.removeDir(ctx, proofDir(oid))
	}
	return nil
}
