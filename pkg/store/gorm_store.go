package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"cooktube/pkg/domain"
)

const migrateLockID int64 = 47104710

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&RecipeModel{}, &UserRecipeModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateOrGetRecipe inserts a placeholder row for videoID, or fetches the
// existing one. The unique index on video_id makes concurrent first
// ingestions of the same video race safely: one insert wins, the rest fall
// through to the fetch.
func (s *GormStore) CreateOrGetRecipe(videoID string) (domain.Recipe, bool, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return domain.Recipe{}, false, fmt.Errorf("video id required")
	}
	model := RecipeModel{
		VideoID:   videoID,
		State:     int(domain.StatePending),
		CreatedAt: time.Now().UTC(),
	}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "video_id"}},
		DoNothing: true,
	}).Create(&model)
	if res.Error != nil {
		return domain.Recipe{}, false, res.Error
	}
	if res.RowsAffected == 1 {
		return recipeFromModel(model), true, nil
	}
	var existing RecipeModel
	if err := s.db.First(&existing, "video_id = ?", videoID).Error; err != nil {
		return domain.Recipe{}, false, err
	}
	return recipeFromModel(existing), false, nil
}

// GetRecipe retrieves a recipe by ID.
func (s *GormStore) GetRecipe(id int64) (domain.Recipe, bool, error) {
	var model RecipeModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Recipe{}, false, nil
		}
		return domain.Recipe{}, false, err
	}
	return recipeFromModel(model), true, nil
}

// LinkUserRecipe records a user-recipe link; every ingestion call adds one.
func (s *GormStore) LinkUserRecipe(userID string, recipeID int64) error {
	link := UserRecipeModel{
		UserID:    userID,
		RecipeID:  recipeID,
		CreatedAt: time.Now().UTC(),
	}
	return s.db.Create(&link).Error
}

// HasUserLink reports whether the user has any link row to the recipe.
func (s *GormStore) HasUserLink(userID string, recipeID int64) (bool, error) {
	var count int64
	if err := s.db.Model(&UserRecipeModel{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type linkedRecipeRow struct {
	ID          int64
	VideoID     string
	Title       *string
	Name        *string
	Channel     *string
	Items       datatypes.JSON
	Ingredients datatypes.JSON
	State       int
	CreatedAt   time.Time
	LinkedAt    time.Time
}

// ListRecipesByUser returns the user's linked recipes, newest link first,
// each annotated with the link timestamp.
func (s *GormStore) ListRecipesByUser(userID string) ([]domain.LinkedRecipe, error) {
	var rows []linkedRecipeRow
	if err := s.db.Table("user_recipe_models AS ur").
		Select("r.id, r.video_id, r.title, r.name, r.channel, r.items, r.ingredients, r.state, r.created_at, ur.created_at AS linked_at").
		Joins("JOIN recipe_models AS r ON r.id = ur.recipe_id").
		Where("ur.user_id = ?", userID).
		Order("ur.created_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	res := make([]domain.LinkedRecipe, 0, len(rows))
	for _, row := range rows {
		res = append(res, domain.LinkedRecipe{
			Recipe: recipeFromModel(RecipeModel{
				ID:          row.ID,
				VideoID:     row.VideoID,
				Title:       row.Title,
				Name:        row.Name,
				Channel:     row.Channel,
				Items:       row.Items,
				Ingredients: row.Ingredients,
				State:       row.State,
				CreatedAt:   row.CreatedAt,
			}),
			LinkedAt: row.LinkedAt,
		})
	}
	return res, nil
}

// ApplyEnrichment overwrites the derived content fields and flips the state
// to enriched. Updating a missing or already enriched id is a no-op success.
func (s *GormStore) ApplyEnrichment(id int64, e domain.Enrichment) error {
	items, err := json.Marshal(e.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	ingredients, err := json.Marshal(e.Ingredients)
	if err != nil {
		return fmt.Errorf("marshal ingredients: %w", err)
	}
	return s.db.Model(&RecipeModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":       e.Title,
			"name":        e.Name,
			"channel":     e.Channel,
			"items":       datatypes.JSON(items),
			"ingredients": datatypes.JSON(ingredients),
			"state":       int(domain.StateEnriched),
		}).Error
}

// SearchEnrichedByMenu returns enriched recipes whose title or name contains
// any keyword (case-insensitive), excluding the target.
func (s *GormStore) SearchEnrichedByMenu(keywords []string, excludeID int64, limit int) ([]domain.Recipe, error) {
	if len(keywords) == 0 || limit <= 0 {
		return []domain.Recipe{}, nil
	}
	match := s.db.Session(&gorm.Session{NewDB: true})
	for i, keyword := range keywords {
		pattern := "%" + keyword + "%"
		if i == 0 {
			match = match.Where("title ILIKE ? OR name ILIKE ?", pattern, pattern)
		} else {
			match = match.Or("title ILIKE ? OR name ILIKE ?", pattern, pattern)
		}
	}
	var models []RecipeModel
	if err := s.db.
		Where("state = ? AND id <> ?", int(domain.StateEnriched), excludeID).
		Where(match).
		Order("id ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return recipesFromModels(models), nil
}

// SearchEnrichedByIngredients prefilters enriched recipes whose ingredient
// list mentions any of the given names. Exact scoring happens in the caller;
// this casts the jsonb column to text for a loose ILIKE match.
func (s *GormStore) SearchEnrichedByIngredients(names []string, excludeID int64, limit int) ([]domain.Recipe, error) {
	if len(names) == 0 || limit <= 0 {
		return []domain.Recipe{}, nil
	}
	match := s.db.Session(&gorm.Session{NewDB: true})
	for i, name := range names {
		pattern := "%" + name + "%"
		if i == 0 {
			match = match.Where("ingredients::text ILIKE ?", pattern)
		} else {
			match = match.Or("ingredients::text ILIKE ?", pattern)
		}
	}
	var models []RecipeModel
	if err := s.db.
		Where("state = ? AND id <> ?", int(domain.StateEnriched), excludeID).
		Where(match).
		Order("id ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return recipesFromModels(models), nil
}

// ListEnrichedExcluding returns enriched recipes not in excludeIDs, used to
// pad short recommendation lists.
func (s *GormStore) ListEnrichedExcluding(excludeIDs []int64, limit int) ([]domain.Recipe, error) {
	if limit <= 0 {
		return []domain.Recipe{}, nil
	}
	tx := s.db.Where("state = ?", int(domain.StateEnriched))
	if len(excludeIDs) > 0 {
		tx = tx.Where("id NOT IN ?", excludeIDs)
	}
	var models []RecipeModel
	if err := tx.Order("id ASC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	return recipesFromModels(models), nil
}

func recipesFromModels(models []RecipeModel) []domain.Recipe {
	res := make([]domain.Recipe, 0, len(models))
	for _, m := range models {
		res = append(res, recipeFromModel(m))
	}
	return res
}

func recipeFromModel(m RecipeModel) domain.Recipe {
	var items []string
	if len(m.Items) > 0 {
		_ = json.Unmarshal(m.Items, &items)
	}
	var ingredients []domain.Ingredient
	if len(m.Ingredients) > 0 {
		_ = json.Unmarshal(m.Ingredients, &ingredients)
	}
	return domain.Recipe{
		ID:          m.ID,
		VideoID:     m.VideoID,
		Title:       m.Title,
		Name:        m.Name,
		Channel:     m.Channel,
		Items:       items,
		Ingredients: ingredients,
		State:       domain.RecipeState(m.State),
		CreatedAt:   m.CreatedAt,
	}
}
