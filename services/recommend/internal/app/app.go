package app

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"cooktube/pkg/domain"
	"cooktube/pkg/store"
)

// ErrNotFound means the target recipe does not exist.
var ErrNotFound = errors.New("recipe not found")

const (
	// resultSize is the exact length of each recommendation list, padded
	// with arbitrary enriched recipes when matching falls short.
	resultSize = 5
	// maxKeywords caps how many menu tokens drive the by-menu query.
	maxKeywords = 3
	// maxIngredientTerms caps how many target ingredient names drive the
	// by-ingredients query.
	maxIngredientTerms = 5
	// candidatePoolSize bounds the prefiltered pool that gets scored.
	candidatePoolSize = 50
)

var tokenSplit = regexp.MustCompile(`[\s,]+`)

// Config holds runtime configuration for the recommendation engine.
type Config struct {
	DatabaseURL string
	Store       store.Store
}

// App ranks recipes related to a target by menu text and by ingredient
// overlap.
type App struct {
	store store.Store
}

// New constructs the engine. When cfg.Store is nil a Postgres store is
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
	return &App{store: dataStore}, nil
}

// Recommend builds the two related-recipe lists for the target.
func (a *App) Recommend(recipeID int64) (domain.Recommendations, error) {
	target, ok, err := a.store.GetRecipe(recipeID)
	if err != nil {
		return domain.Recommendations{}, fmt.Errorf("get recipe: %w", err)
	}
	if !ok {
		return domain.Recommendations{}, ErrNotFound
	}

	byMenu, err := a.byMenu(target)
	if err != nil {
		return domain.Recommendations{}, err
	}
	byIngredients, err := a.byIngredients(target)
	if err != nil {
		return domain.Recommendations{}, err
	}

	if byMenu, err = a.pad(byMenu, target.ID); err != nil {
		return domain.Recommendations{}, err
	}
	if byIngredients, err = a.pad(byIngredients, target.ID); err != nil {
		return domain.Recommendations{}, err
	}
	return domain.Recommendations{ByMenu: byMenu, ByIngredients: byIngredients}, nil
}

// byMenu finds enriched recipes whose title or name shares a keyword with
// the target's.
func (a *App) byMenu(target domain.Recipe) ([]domain.Recipe, error) {
	keywords := MenuKeywords(target)
	if len(keywords) == 0 {
		return []domain.Recipe{}, nil
	}
	recipes, err := a.store.SearchEnrichedByMenu(keywords, target.ID, resultSize)
	if err != nil {
		return nil, fmt.Errorf("search by menu: %w", err)
	}
	return recipes, nil
}

// byIngredients scores a prefiltered candidate pool by ingredient-name
// overlap, drops zero scores, and keeps the top results.
func (a *App) byIngredients(target domain.Recipe) ([]domain.Recipe, error) {
	names := ingredientTerms(target)
	if len(names) == 0 {
		return []domain.Recipe{}, nil
	}
	candidates, err := a.store.SearchEnrichedByIngredients(names, target.ID, candidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("search by ingredients: %w", err)
	}
	type scored struct {
		recipe domain.Recipe
		score  int
	}
	kept := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		score := IngredientMatchScore(names, candidate)
		if score == 0 {
			continue
		}
		kept = append(kept, scored{recipe: candidate, score: score})
	}
	// Ties keep the original query order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})
	if len(kept) > resultSize {
		kept = kept[:resultSize]
	}
	res := make([]domain.Recipe, 0, len(kept))
	for _, entry := range kept {
		res = append(res, entry.recipe)
	}
	return res, nil
}

// pad fills the list up to resultSize with arbitrary enriched recipes,
// skipping the target and anything already included.
func (a *App) pad(recipes []domain.Recipe, targetID int64) ([]domain.Recipe, error) {
	if len(recipes) >= resultSize {
		return recipes[:resultSize], nil
	}
	exclude := make([]int64, 0, len(recipes)+1)
	exclude = append(exclude, targetID)
	for _, recipe := range recipes {
		exclude = append(exclude, recipe.ID)
	}
	fill, err := a.store.ListEnrichedExcluding(exclude, resultSize-len(recipes))
	if err != nil {
		return nil, fmt.Errorf("pad recommendations: %w", err)
	}
	recipes = append(recipes, fill...)
	if len(recipes) > resultSize {
		recipes = recipes[:resultSize]
	}
	return recipes, nil
}

// MenuKeywords tokenizes the target's title and name into up to maxKeywords
// search terms, keeping tokens longer than one character.
func MenuKeywords(target domain.Recipe) []string {
	var parts []string
	if target.Title != nil && *target.Title != "" {
		parts = append(parts, *target.Title)
	}
	if target.Name != nil && *target.Name != "" {
		parts = append(parts, *target.Name)
	}
	if len(parts) == 0 {
		return nil
	}
	tokens := tokenSplit.Split(strings.Join(parts, " "), -1)
	keywords := make([]string, 0, maxKeywords)
	for _, token := range tokens {
		if utf8.RuneCountInString(token) <= 1 {
			continue
		}
		keywords = append(keywords, token)
		if len(keywords) == maxKeywords {
			break
		}
	}
	if len(keywords) == 0 {
		return nil
	}
	return keywords
}

// ingredientTerms returns the target's non-empty ingredient names, up to
// maxIngredientTerms.
func ingredientTerms(target domain.Recipe) []string {
	names := make([]string, 0, maxIngredientTerms)
	for _, ingredient := range target.Ingredients {
		if ingredient.Name == "" {
			continue
		}
		names = append(names, ingredient.Name)
		if len(names) == maxIngredientTerms {
			break
		}
	}
	return names
}

// IngredientMatchScore counts how many target ingredient names match any of
// the candidate's ingredient names, where "match" is a case-insensitive
// substring relation in either direction.
func IngredientMatchScore(targetNames []string, candidate domain.Recipe) int {
	candidateNames := make([]string, 0, len(candidate.Ingredients))
	for _, ingredient := range candidate.Ingredients {
		if ingredient.Name == "" {
			continue
		}
		candidateNames = append(candidateNames, strings.ToLower(ingredient.Name))
	}
	if len(candidateNames) == 0 {
		return 0
	}
	score := 0
	for _, targetName := range targetNames {
		lowered := strings.ToLower(targetName)
		for _, candidateName := range candidateNames {
			if strings.Contains(candidateName, lowered) || strings.Contains(lowered, candidateName) {
				score++
				break
			}
		}
	}
	return score
}
