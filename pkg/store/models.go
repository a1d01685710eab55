package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type RecipeModel struct {
	ID          int64   `gorm:"primaryKey"`
	VideoID     string  `gorm:"uniqueIndex;not null"`
	Title       *string
	Name        *string
	Channel     *string
	Items       datatypes.JSON `gorm:"type:jsonb"`
	Ingredients datatypes.JSON `gorm:"type:jsonb"`
	State       int            `gorm:"not null;default:0;index"`
	CreatedAt   time.Time      `gorm:"not null"`
}

type UserRecipeModel struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index:idx_user_recipe"`
	RecipeID  int64     `gorm:"not null;index:idx_user_recipe"`
	CreatedAt time.Time `gorm:"not null;index"`
}
