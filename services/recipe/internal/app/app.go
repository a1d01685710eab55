package app

import (
	"errors"
	"fmt"
	"log/slog"

	"cooktube/pkg/domain"
	"cooktube/pkg/store"
)

var (
	// ErrInvalidURL means no known YouTube URL form matched.
	ErrInvalidURL = errors.New("invalid youtube url")
	// ErrNotFound means the recipe does not exist or the user has no link
	// to it.
	ErrNotFound = errors.New("recipe not found")
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	Store       store.Store
	AimockURL   string
}

// App wires the recipe store and the enrichment producer client.
type App struct {
	store  store.Store
	enrich enrichClient
}

// New constructs the application. When cfg.Store is nil a Postgres store is
// opened from cfg.DatabaseURL.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	if cfg.AimockURL == "" {
		return nil, fmt.Errorf("aimock URL required")
	}
	return &App{
		store:  dataStore,
		enrich: newEnrichClient(cfg.AimockURL),
	}, nil
}

// IngestResult reports the outcome of one ingestion request.
type IngestResult struct {
	RecipeID    int64
	VideoID     string
	IsNewRecipe bool
}

// Ingest resolves url to a recipe record, creating a placeholder on first
// sighting of the video, and links the user to it. A brand-new recipe also
// kicks off enrichment; failure to notify the producer is logged, not
// surfaced — ingestion still succeeds.
func (a *App) Ingest(userID, url string) (IngestResult, error) {
	videoID, ok := ExtractVideoID(url)
	if !ok {
		return IngestResult{}, ErrInvalidURL
	}
	recipe, created, err := a.store.CreateOrGetRecipe(videoID)
	if err != nil {
		return IngestResult{}, fmt.Errorf("create or get recipe: %w", err)
	}
	if created {
		go func(videoID string, recipeID int64) {
			if err := a.enrich.Notify(videoID, recipeID); err != nil {
				slog.Error("enrichment notify failed", "video_id", videoID, "recipe_id", recipeID, "err", err)
				return
			}
			slog.Info("enrichment requested", "video_id", videoID, "recipe_id", recipeID)
		}(videoID, recipe.ID)
	}
	if err := a.store.LinkUserRecipe(userID, recipe.ID); err != nil {
		return IngestResult{}, fmt.Errorf("link user recipe: %w", err)
	}
	return IngestResult{RecipeID: recipe.ID, VideoID: videoID, IsNewRecipe: created}, nil
}

// List returns the user's linked recipes, newest link first.
func (a *App) List(userID string) ([]domain.LinkedRecipe, error) {
	return a.store.ListRecipesByUser(userID)
}

// Detail returns one recipe, gated on the user holding a link row to it.
func (a *App) Detail(userID string, recipeID int64) (domain.Recipe, error) {
	linked, err := a.store.HasUserLink(userID, recipeID)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("check link: %w", err)
	}
	if !linked {
		return domain.Recipe{}, ErrNotFound
	}
	recipe, ok, err := a.store.GetRecipe(recipeID)
	if err != nil {
		return domain.Recipe{}, fmt.Errorf("get recipe: %w", err)
	}
	if !ok {
		return domain.Recipe{}, ErrNotFound
	}
	return recipe, nil
}

// ProcessEnrichment writes the callback payload onto the recipe and flips
// its state to enriched. A no-op update is not distinguished from success.
func (a *App) ProcessEnrichment(recipeID int64, e domain.Enrichment) error {
	return a.store.ApplyEnrichment(recipeID, e)
}
