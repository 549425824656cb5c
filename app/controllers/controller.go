// Package controllers turns HTTP requests into service calls. Handlers
// parse the path and body, call one service method and answer through
// ctx.Fail on error.
package controllers

import (
	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/ctx"
)

// actor is the caller of an authenticated route. Routes behind
// AuthMiddleware always carry claims; without them the request is
// answered with 401 and ok is false.
func actor(c *ctx.Context) (services.Actor, bool) {
	cl, ok := c.Claims()
	if !ok {
		c.Unauthorized()
		return services.Actor{}, false
	}
	return services.Actor{ID: cl.UserID, Role: models.Role(cl.Role)}, true
}

// optionalActor is nil for anonymous requests.
func optionalActor(c *ctx.Context) *services.Actor {
	cl, ok := c.Claims()
	if !ok {
		return nil
	}
	return &services.Actor{ID: cl.UserID, Role: models.Role(cl.Role)}
}

// pathID reads {key}, answering 404 for anything that is not a positive id.
func pathID(c *ctx.Context, key string) (uint, bool) {
	id, ok := c.ParamUint(key)
	if !ok {
		c.NotFound()
	}
	return id, ok
}
