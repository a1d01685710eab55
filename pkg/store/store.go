package store

import (
	"cooktube/pkg/domain"
)

// Store defines persistence operations for recipes and user-recipe links.
type Store interface {
	// CreateOrGetRecipe inserts a placeholder recipe for videoID or returns
	// the existing one. The bool reports whether this call created the row;
	// concurrent callers for the same new video see it true exactly once.
	CreateOrGetRecipe(videoID string) (domain.Recipe, bool, error)
	GetRecipe(id int64) (domain.Recipe, bool, error)

	// links
	LinkUserRecipe(userID string, recipeID int64) error
	HasUserLink(userID string, recipeID int64) (bool, error)
	ListRecipesByUser(userID string) ([]domain.LinkedRecipe, error)

	// enrichment
	ApplyEnrichment(id int64, e domain.Enrichment) error

	// recommendation candidates; all restrict to enriched recipes and
	// exclude the target id
	SearchEnrichedByMenu(keywords []string, excludeID int64, limit int) ([]domain.Recipe, error)
	SearchEnrichedByIngredients(names []string, excludeID int64, limit int) ([]domain.Recipe, error)
	ListEnrichedExcluding(excludeIDs []int64, limit int) ([]domain.Recipe, error)
}
