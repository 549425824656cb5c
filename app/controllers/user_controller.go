package controllers

import (
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/ctx"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(s *services.Services) *UserController {
	return &UserController{users: s.Users}
}

func (uc *UserController) Index(c *ctx.Context) {
	users, page, err := uc.users.List(c.Context(), c.Page())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(users, page)
}

// Store registers an account. Anonymous callers always get a customer.
func (uc *UserController) Store(c *ctx.Context) {
	var in services.UserInput
	if !c.BindJSON(&in) {
		return
	}
	u, err := uc.users.Register(c.Context(), optionalActor(c), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(u)
}

func (uc *UserController) Show(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := uc.users.Get(c.Context(), a, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(u)
}

func (uc *UserController) Update(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.UserUpdate
	if !c.BindJSON(&in) {
		return
	}
	u, err := uc.users.Update(c.Context(), a, id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(u)
}

func (uc *UserController) Destroy(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := uc.users.Delete(c.Context(), a, id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("User deleted")
}
