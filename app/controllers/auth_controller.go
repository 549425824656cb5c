package controllers

import (
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/ctx"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(s *services.Services) *AuthController {
	return &AuthController{auth: s.Auth}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required|email"`
	Password string `json:"password" validate:"required"`
}

// Login issues a token for any account.
func (ac *AuthController) Login(c *ctx.Context) { ac.login(c, false) }

// Admin issues a token only for admin accounts.
func (ac *AuthController) Admin(c *ctx.Context) { ac.login(c, true) }

func (ac *AuthController) login(c *ctx.Context, adminOnly bool) {
	var body loginRequest
	if !c.BindJSON(&body) {
		return
	}
	sess, err := ac.auth.Login(c.Context(), body.Email, body.Password, adminOnly)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(sess)
}

func (ac *AuthController) Me(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	u, err := ac.auth.Me(c.Context(), a)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(u)
}
