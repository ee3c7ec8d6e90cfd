// Package gorm provides GORM model definitions and the GORM-backed recipe store
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"
)

// RecipeModel represents the GORM model for searchable recipes
type RecipeModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Title       string `gorm:"type:varchar(255);not null;index"`
	Description string `gorm:"type:text"`

	// Categorization
	Cuisine  string      `gorm:"type:varchar(50);index"`
	Category string      `gorm:"type:varchar(50);index"`
	MealRole string      `gorm:"type:varchar(30)"`
	Tags     StringSlice `gorm:"type:json"`

	Ingredients StringSlice `gorm:"type:json"`

	// Timing (stored in minutes)
	TotalTimeMinutes int `gorm:"column:total_time_minutes;default:0;index"`

	// Intelligence flags
	IsEasy           bool `gorm:"default:false;index"`
	IsOnePot         bool `gorm:"default:false"`
	KidFriendly      bool `gorm:"default:false;index"`
	LeftoverFriendly bool `gorm:"default:false"`

	Popularity float64 `gorm:"default:0;index"`

	// SearchText is the space-padded token stream every term matches against
	SearchText string `gorm:"type:text;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the recipes table name
func (RecipeModel) TableName() string {
	return "recipes"
}

// BeforeSave keeps the denormalised search column in step with the row
func (r *RecipeModel) BeforeSave(tx *gorm.DB) error {
	r.SearchText = buildSearchText(r)
	return nil
}

func buildSearchText(r *RecipeModel) string {
	parts := []string{r.Title, r.Description, r.Cuisine, r.Category, r.MealRole}
	parts = append(parts, r.Tags...)
	parts = append(parts, r.Ingredients...)
	return " " + strings.Join(tokenize(strings.Join(parts, " ")), " ") + " "
}

// tokenize lower-cases text and splits it into letter/digit runs
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// StringSlice custom type for handling string arrays
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
