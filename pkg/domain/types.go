package domain

import "time"

type RecipeState int

const (
	// StatePending marks a freshly ingested recipe whose enrichment
	// fields are still null.
	StatePending RecipeState = 0
	// StateEnriched marks a recipe filled in by the enrichment callback.
	StateEnriched RecipeState = 1
)

// Recipe is one ingested video's derived cooking content.
// Title, Name, Channel, Items and Ingredients stay nil until enrichment
// completes and State flips to StateEnriched.
type Recipe struct {
	ID          int64        `json:"id"`
	VideoID     string       `json:"video_id"`
	Title       *string      `json:"title"`
	Name        *string      `json:"name"`
	Channel     *string      `json:"channel"`
	Items       []string     `json:"item"`
	Ingredients []Ingredient `json:"ingredients"`
	State       RecipeState  `json:"state"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Ingredient is an embedded entry inside a recipe; it has no identity or
// lifecycle of its own.
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// Enrichment carries the derived content written back onto a pending recipe.
type Enrichment struct {
	VideoID     string       `json:"video_id"`
	Title       string       `json:"title"`
	Name        string       `json:"name"`
	Channel     string       `json:"channel"`
	Items       []string     `json:"item"`
	Ingredients []Ingredient `json:"ingredients"`
}

// LinkedRecipe is a recipe annotated with the timestamp of the user's link
// row, as returned by the user-scoped list endpoint.
type LinkedRecipe struct {
	Recipe
	LinkedAt time.Time `json:"created_at"`
}

// Recommendations holds the two independently ranked related-recipe lists.
type Recommendations struct {
	ByMenu        []Recipe `json:"by_menu"`
	ByIngredients []Recipe `json:"by_ingredients"`
}
