package service

import (
	"github.com/recetteplus/recette-backend/internal/app/model"
)

type CartSourceKind string

const (
	SourcePersonal CartSourceKind = "personal"
	SourceRecipe   CartSourceKind = "recipe"
)

// CartLineSource records which basket contributed to a folded line.
type CartLineSource struct {
	Kind       CartSourceKind `json:"kind"`
	CartID     uint           `json:"cart_id"`
	RecipeID   string         `json:"recipe_id,omitempty"`
	RecipeName string         `json:"recipe_name,omitempty"`
	CartItemID uint           `json:"cart_item_id"`
	Quantity   int            `json:"quantity"`
}

// MainCartLine is one product of the main cart with its quantity summed over
// every included basket. Prices are the product's current price.
type MainCartLine struct {
	ProductID   uint             `json:"product_id"`
	Name        string           `json:"name"`
	Unit        string           `json:"unit"`
	Category    string           `json:"category"`
	ImageURL    string           `json:"image_url,omitempty"`
	UnitPrice   int64            `json:"unit_price"`
	Quantity    int              `json:"quantity"`
	LineTotal   int64            `json:"line_total"`
	Unavailable bool             `json:"unavailable"`
	Sources     []CartLineSource `json:"sources"`
}

// MainCartView is the computed union of the personal cart (when included) and
// every included recipe cart. ItemCount and AvailableCount are unit totals.
type MainCartView struct {
	Lines                []MainCartLine `json:"lines"`
	Subtotal             int64          `json:"subtotal"`
	ItemCount            int            `json:"item_count"`
	AvailableCount       int            `json:"available_count"`
	PersonalCartIncluded bool           `json:"personal_cart_included"`
	IncludedRecipeCarts  []uint         `json:"included_recipe_carts"`
}

// AvailableLines returns the lines that can be ordered.
func (v *MainCartView) AvailableLines() []MainCartLine {
	lines := make([]MainCartLine, 0, len(v.Lines))
	for _, line := range v.Lines {
		if !line.Unavailable {
			lines = append(lines, line)
		}
	}
	return lines
}

// buildMainCartView folds the included baskets into one view. personal may be
// nil when the user never created one; recipes must already be filtered to
// the included ones. Line order follows first appearance.
func buildMainCartView(personal *model.PersonalCart, recipes []model.RecipeCart) *MainCartView {
	view := &MainCartView{
		Lines:                []MainCartLine{},
		PersonalCartIncluded: personal == nil || personal.IsAddedToMainCart,
		IncludedRecipeCarts:  []uint{},
	}
	index := make(map[uint]int)

	add := func(product *model.Product, productID uint, quantity int, source CartLineSource) {
		i, ok := index[productID]
		if !ok {
			line := MainCartLine{
				ProductID:   productID,
				Name:        product.Name,
				Unit:        product.Unit,
				Category:    string(product.Category),
				ImageURL:    product.ImageURL,
				UnitPrice:   product.Price,
				Unavailable: !product.Available(),
			}
			view.Lines = append(view.Lines, line)
			i = len(view.Lines) - 1
			index[productID] = i
		}
		view.Lines[i].Quantity += quantity
		view.Lines[i].Sources = append(view.Lines[i].Sources, source)
	}

	if personal != nil && personal.IsAddedToMainCart {
		for j := range personal.Items {
			item := &personal.Items[j]
			add(&item.Product, item.ProductID, item.Quantity, CartLineSource{
				Kind:       SourcePersonal,
				CartID:     personal.ID,
				CartItemID: item.ID,
				Quantity:   item.Quantity,
			})
		}
	}

	for _, recipe := range recipes {
		if !recipe.IsAddedToMainCart {
			continue
		}
		view.IncludedRecipeCarts = append(view.IncludedRecipeCarts, recipe.ID)
		for j := range recipe.Items {
			item := &recipe.Items[j]
			add(&item.Product, item.ProductID, item.Quantity, CartLineSource{
				Kind:       SourceRecipe,
				CartID:     recipe.ID,
				RecipeID:   recipe.RecipeID,
				RecipeName: recipe.RecipeName,
				CartItemID: item.ID,
				Quantity:   item.Quantity,
			})
		}
	}

	for i := range view.Lines {
		line := &view.Lines[i]
		view.ItemCount += line.Quantity
		if line.Unavailable {
			continue
		}
		line.LineTotal = int64(line.Quantity) * line.UnitPrice
		view.Subtotal += line.LineTotal
		view.AvailableCount += line.Quantity
	}

	return view
}
