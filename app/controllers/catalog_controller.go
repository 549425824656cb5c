package controllers

import (
	"github.com/shashiranjanraj/panaya/app/services"
	"github.com/shashiranjanraj/panaya/pkg/ctx"
)

type CategoryController struct {
	catalog *services.CatalogService
}

func NewCategoryController(s *services.Services) *CategoryController {
	return &CategoryController{catalog: s.Catalog}
}

func (cc *CategoryController) Index(c *ctx.Context) {
	cats, page, err := cc.catalog.Categories(c.Context(), c.Page())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(cats, page)
}

func (cc *CategoryController) Show(c *ctx.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cat, err := cc.catalog.Category(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cat)
}

func (cc *CategoryController) Store(c *ctx.Context) {
	var in services.CategoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, err := cc.catalog.CreateCategory(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(cat)
}

func (cc *CategoryController) Update(c *ctx.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.CategoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, err := cc.catalog.UpdateCategory(c.Context(), id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(cat)
}

// Destroy removes the category and everything hanging off its products.
func (cc *CategoryController) Destroy(c *ctx.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := cc.catalog.DeleteCategory(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Category deleted")
}

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(s *services.Services) *ProductController {
	return &ProductController{catalog: s.Catalog}
}

// Index filters by ?category_id= and ?q=.
func (pc *ProductController) Index(c *ctx.Context) {
	f := services.ProductFilter{CategoryID: c.QueryUint("category_id"), Query: c.Query("q")}
	items, page, err := pc.catalog.Products(c.Context(), f, c.Page())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(items, page)
}

func (pc *ProductController) Show(c *ctx.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := pc.catalog.Product(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (pc *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.catalog.CreateProduct(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(p)
}

func (pc *ProductController) Update(c *ctx.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.ProductUpdate
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.catalog.UpdateProduct(c.Context(), id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (pc *ProductController) Destroy(c *ctx.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := pc.catalog.DeleteProduct(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Product deleted")
}

type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(s *services.Services) *ReviewController {
	return &ReviewController{reviews: s.Reviews}
}

func (rc *ReviewController) Index(c *ctx.Context) {
	items, page, err := rc.reviews.List(c.Context(), c.QueryUint("product_id"), c.Page())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(items, page)
}

func (rc *ReviewController) Show(c *ctx.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := rc.reviews.Get(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(r)
}

// Store attributes the review to the caller; a user_id in the body is ignored.
func (rc *ReviewController) Store(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in services.ReviewInput
	if !c.BindJSON(&in) {
		return
	}
	r, err := rc.reviews.Create(c.Context(), a, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(r)
}

func (rc *ReviewController) Update(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in services.ReviewUpdate
	if !c.BindJSON(&in) {
		return
	}
	r, err := rc.reviews.Update(c.Context(), a, id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(r)
}

func (rc *ReviewController) Destroy(c *ctx.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := rc.reviews.Delete(c.Context(), a, id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("Review deleted")
}
