package controllers

import (
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/ctx"
)

type CartController struct {
	carts    *services.CartService
	checkout *services.CheckoutService
}

func NewCartController(s *services.Services) *CartController {
	return &CartController{carts: s.Carts, checkout: s.Checkout}
}

// Index lists every cart for admins and the caller's own otherwise.
func (cc *CartController) Index(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	carts, page, err := cc.carts.List(c.Context(), a, c.Page())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(carts, page)
}

// Store returns the caller's cart, creating it when missing.
func (cc *CartController) Store(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	cart, err := cc.carts.Mine(c.Context(), a)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cart)
}

func (cc *CartController) Show(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cart, err := cc.carts.Get(c.Context(), a, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cart)
}

// Update replaces the cart lines with the posted ones.
func (cc *CartController) Update(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.CartUpdate
	if !c.BindJSON(&in) {
		return
	}
	cart, err := cc.carts.Replace(c.Context(), a, id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cart)
}

func (cc *CartController) Destroy(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := cc.carts.Delete(c.Context(), a, id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Cart deleted")
}

// Checkout turns the cart into an order and empties it.
func (cc *CartController) Checkout(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := cc.checkout.CheckoutCart(c.Context(), a, id, c.Header(idempotencyHeader))
	if err != nil {
		c.Fail(err)
		return
	}
	placed(c, res)
}

type CartItemController struct {
	carts *services.CartService
}

func NewCartItemController(s *services.Services) *CartItemController {
	return &CartItemController{carts: s.Carts}
}

func (ic *CartItemController) Index(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	items, page, err := ic.carts.Items(c.Context(), a, c.Page())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(items, page)
}

// Store adds a product to the caller's cart, merging with an existing line.
func (ic *CartItemController) Store(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in services.CartItemInput
	if !c.BindJSON(&in) {
		return
	}
	it, err := ic.carts.AddItem(c.Context(), a, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(it)
}

func (ic *CartItemController) Show(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	it, err := ic.carts.Item(c.Context(), a, id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(it)
}

func (ic *CartItemController) Update(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.CartItemUpdate
	if !c.BindJSON(&in) {
		return
	}
	it, err := ic.carts.UpdateItem(c.Context(), a, id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(it)
}

func (ic *CartItemController) Destroy(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ic.carts.DeleteItem(c.Context(), a, id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Cart item deleted")
}
