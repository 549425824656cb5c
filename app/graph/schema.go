// Package graph exposes the public catalog as a read-only GraphQL schema:
//
//	{ products(category_id: 2, q: "mug") { id name price category { name } } }
package graph

import (
	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/panaya/app/models"
	"github.com/shashiranjanraj/panaya/app/services"
	pgraphql "github.com/shashiranjanraj/panaya/pkg/graphql"
	"github.com/shashiranjanraj/panaya/pkg/orm"
)

var categoryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Category",
	Fields: graphql.Fields{
		"id":            &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"name":          &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description":   &graphql.Field{Type: graphql.String},
		"product_count": &graphql.Field{Type: graphql.Int},
	},
})

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":             &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"name":           &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description":    &graphql.Field{Type: graphql.String},
		"price":          &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		"stock_quantity": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"category_id":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"image":          &graphql.Field{Type: graphql.String},
		"category":       &graphql.Field{Type: categoryType},
	},
})

var pageArgs = graphql.FieldConfigArgument{
	"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
	"per_page": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: orm.DefaultPerPage},
}

func withPage(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	out := graphql.FieldConfigArgument{}
	for k, v := range pageArgs {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func pageOf(args map[string]interface{}) orm.PageRequest {
	page, _ := args["page"].(int)
	per, _ := args["per_page"].(int)
	return orm.NewPageRequest(page, per)
}

// NewSchema builds the catalog schema over the catalog service.
func NewSchema(catalog *services.CatalogService) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: withPage(graphql.FieldConfigArgument{
					"category_id": &graphql.ArgumentConfig{Type: graphql.Int},
					"q":           &graphql.ArgumentConfig{Type: graphql.String},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f := services.ProductFilter{}
					if id, ok := p.Args["category_id"].(int); ok && id > 0 {
						f.CategoryID = uint(id)
					}
					f.Query, _ = p.Args["q"].(string)
					items, _, err := catalog.Products(p.Context, f, pageOf(p.Args))
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, len(items))
					for i := range items {
						out[i] = productView(&items[i])
					}
					return out, nil
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int)
					if id <= 0 {
						return nil, services.ErrNotFound
					}
					prod, err := catalog.Product(p.Context, uint(id))
					if err != nil {
						return nil, err
					}
					return productView(prod), nil
				},
			},
			"categories": &graphql.Field{
				Type: graphql.NewList(categoryType),
				Args: withPage(nil),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					cats, _, err := catalog.Categories(p.Context, pageOf(p.Args))
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, len(cats))
					for i := range cats {
						out[i] = categoryView(&cats[i])
					}
					return out, nil
				},
			},
		},
	})
	return pgraphql.NewSchema(query)
}

func categoryView(c *models.Category) map[string]interface{} {
	if c == nil {
		return nil
	}
	return map[string]interface{}{
		"id":            int(c.ID),
		"name":          c.Name,
		"description":   c.Description,
		"product_count": int(c.ProductCount),
	}
}

func productView(p *models.Product) map[string]interface{} {
	v := map[string]interface{}{
		"id":             int(p.ID),
		"name":           p.Name,
		"description":    p.Description,
		"price":          p.Price,
		"stock_quantity": p.StockQuantity,
		"category_id":    int(p.CategoryID),
		"image":          p.Image,
	}
	if p.Category != nil {
		v["category"] = categoryView(p.Category)
	}
	return v
}
