package services

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/repositories"
	"github.com/shashiranjanraj/panaya/pkg/auth"
)

type AuthService struct {
	d Deps
}

// Session is what a successful login returns.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login checks the credentials. With adminOnly set, customer accounts are
// refused with the same error as a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string, adminOnly bool) (*Session, error) {
	u, err := repositories.NewUserRepository(s.d.DB).FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if adminOnly && !u.IsAdmin() {
		return nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

func (s *AuthService) Me(ctx context.Context, a Actor) (*models.User, error) {
	return repositories.NewUserRepository(s.d.DB).Find(ctx, a.ID)
}
