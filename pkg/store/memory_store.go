package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"cooktube/pkg/domain"
)

// MemoryStore keeps recipes in-process. It mirrors GormStore's semantics
// closely enough for handler tests and local boots without Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	recipes map[int64]domain.Recipe
	byVideo map[string]int64
	links   []UserRecipeModel
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:  1,
		recipes: make(map[int64]domain.Recipe),
		byVideo: make(map[string]int64),
	}
}

// CreateOrGetRecipe inserts a placeholder or returns the existing recipe.
func (m *MemoryStore) CreateOrGetRecipe(videoID string) (domain.Recipe, bool, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return domain.Recipe{}, false, fmt.Errorf("video id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byVideo[videoID]; ok {
		return m.recipes[id], false, nil
	}
	recipe := domain.Recipe{
		ID:        m.nextID,
		VideoID:   videoID,
		State:     domain.StatePending,
		CreatedAt: time.Now().UTC(),
	}
	m.nextID++
	m.recipes[recipe.ID] = recipe
	m.byVideo[videoID] = recipe.ID
	return recipe, true, nil
}

// GetRecipe retrieves a recipe by ID.
func (m *MemoryStore) GetRecipe(id int64) (domain.Recipe, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recipe, ok := m.recipes[id]
	return recipe, ok, nil
}

// SeedRecipe inserts a fully formed recipe, assigning an ID when unset.
// Test helper; the GORM store has no equivalent.
func (m *MemoryStore) SeedRecipe(recipe domain.Recipe) domain.Recipe {
	m.mu.Lock()
	defer m.mu.Unlock()
	if recipe.ID == 0 {
		recipe.ID = m.nextID
		m.nextID++
	} else if recipe.ID >= m.nextID {
		m.nextID = recipe.ID + 1
	}
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now().UTC()
	}
	m.recipes[recipe.ID] = recipe
	m.byVideo[recipe.VideoID] = recipe.ID
	return recipe
}

// LinkUserRecipe appends a link row; repeat calls add repeat rows.
func (m *MemoryStore) LinkUserRecipe(userID string, recipeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, UserRecipeModel{
		ID:        int64(len(m.links) + 1),
		UserID:    userID,
		RecipeID:  recipeID,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// HasUserLink reports whether any link row pairs the user with the recipe.
func (m *MemoryStore) HasUserLink(userID string, recipeID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, link := range m.links {
		if link.UserID == userID && link.RecipeID == recipeID {
			return true, nil
		}
	}
	return false, nil
}

// ListRecipesByUser returns the user's linked recipes, newest link first.
func (m *MemoryStore) ListRecipesByUser(userID string) ([]domain.LinkedRecipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.LinkedRecipe, 0)
	for i := len(m.links) - 1; i >= 0; i-- {
		link := m.links[i]
		if link.UserID != userID {
			continue
		}
		recipe, ok := m.recipes[link.RecipeID]
		if !ok {
			continue
		}
		res = append(res, domain.LinkedRecipe{Recipe: recipe, LinkedAt: link.CreatedAt})
	}
	return res, nil
}

// ApplyEnrichment fills in derived fields and flips state; a missing id is a
// no-op success, matching the SQL UPDATE.
func (m *MemoryStore) ApplyEnrichment(id int64, e domain.Enrichment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipe, ok := m.recipes[id]
	if !ok {
		return nil
	}
	title, name, channel := e.Title, e.Name, e.Channel
	recipe.Title = &title
	recipe.Name = &name
	recipe.Channel = &channel
	recipe.Items = e.Items
	recipe.Ingredients = e.Ingredients
	recipe.State = domain.StateEnriched
	m.recipes[id] = recipe
	return nil
}

// SearchEnrichedByMenu matches title/name keywords case-insensitively.
func (m *MemoryStore) SearchEnrichedByMenu(keywords []string, excludeID int64, limit int) ([]domain.Recipe, error) {
	if len(keywords) == 0 || limit <= 0 {
		return []domain.Recipe{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Recipe, 0, limit)
	for _, recipe := range m.enrichedByID() {
		if recipe.ID == excludeID {
			continue
		}
		if !menuMatches(recipe, keywords) {
			continue
		}
		res = append(res, recipe)
		if len(res) == limit {
			break
		}
	}
	return res, nil
}

// SearchEnrichedByIngredients prefilters recipes whose ingredient list
// mentions any of the names, like the jsonb ILIKE in the GORM store.
func (m *MemoryStore) SearchEnrichedByIngredients(names []string, excludeID int64, limit int) ([]domain.Recipe, error) {
	if len(names) == 0 || limit <= 0 {
		return []domain.Recipe{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Recipe, 0, limit)
	for _, recipe := range m.enrichedByID() {
		if recipe.ID == excludeID {
			continue
		}
		if !ingredientsMention(recipe, names) {
			continue
		}
		res = append(res, recipe)
		if len(res) == limit {
			break
		}
	}
	return res, nil
}

// ListEnrichedExcluding returns enriched recipes not in excludeIDs.
func (m *MemoryStore) ListEnrichedExcluding(excludeIDs []int64, limit int) ([]domain.Recipe, error) {
	if limit <= 0 {
		return []domain.Recipe{}, nil
	}
	excluded := make(map[int64]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Recipe, 0, limit)
	for _, recipe := range m.enrichedByID() {
		if _, skip := excluded[recipe.ID]; skip {
			continue
		}
		res = append(res, recipe)
		if len(res) == limit {
			break
		}
	}
	return res, nil
}

// enrichedByID returns enriched recipes in ascending id order. Callers hold
// the read lock.
func (m *MemoryStore) enrichedByID() []domain.Recipe {
	res := make([]domain.Recipe, 0, len(m.recipes))
	for id := int64(1); id < m.nextID; id++ {
		recipe, ok := m.recipes[id]
		if !ok || recipe.State != domain.StateEnriched {
			continue
		}
		res = append(res, recipe)
	}
	return res
}

func menuMatches(recipe domain.Recipe, keywords []string) bool {
	title := ""
	if recipe.Title != nil {
		title = strings.ToLower(*recipe.Title)
	}
	name := ""
	if recipe.Name != nil {
		name = strings.ToLower(*recipe.Name)
	}
	for _, keyword := range keywords {
		k := strings.ToLower(keyword)
		if k == "" {
			continue
		}
		if strings.Contains(title, k) || strings.Contains(name, k) {
			return true
		}
	}
	return false
}

func ingredientsMention(recipe domain.Recipe, names []string) bool {
	for _, ingredient := range recipe.Ingredients {
		entry := strings.ToLower(ingredient.Name)
		for _, name := range names {
			n := strings.ToLower(name)
			if n == "" {
				continue
			}
			if strings.Contains(entry, n) {
				return true
			}
		}
	}
	return false
}
