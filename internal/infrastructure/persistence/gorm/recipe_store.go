package gorm

import (
	"context"
	"fmt"
	"strings"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/ports/outbound"
	"gorm.io/gorm"
)

// excludeChunk bounds the size of each NOT IN list
const excludeChunk = 500

// RecipeStore implements outbound.RecipeStore using GORM
type RecipeStore struct {
	db *gorm.DB
}

var _ outbound.RecipeStore = (*RecipeStore)(nil)

// NewRecipeStore creates a new recipe store
func NewRecipeStore(db *gorm.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

type scoredRecipe struct {
	RecipeModel `gorm:"embedded"`
	Score       float64
}

// Search returns recipes matching any term and every required term, ranked by
// how many terms matched and then by popularity
func (r *RecipeStore) Search(ctx context.Context, query discovery.RecipeQuery) ([]discovery.RecipeCandidate, error) {
	if query.Limit <= 0 {
		return []discovery.RecipeCandidate{}, nil
	}

	terms := matchableTerms(query.Terms)
	scoreExpr, scoreArgs := scoreExpression(terms)

	var rows []scoredRecipe
	err := r.filtered(ctx, query, terms).
		Select("recipes.*, "+scoreExpr+" AS score", scoreArgs...).
		Order("score DESC").
		Order("popularity DESC").
		Order("id ASC").
		Limit(query.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search recipes: %w", err)
	}

	candidates := make([]discovery.RecipeCandidate, len(rows))
	for i := range rows {
		candidates[i] = toCandidate(&rows[i], terms)
	}
	return candidates, nil
}

// Count returns how many recipes match the query, ignoring Limit
func (r *RecipeStore) Count(ctx context.Context, query discovery.RecipeQuery) (int, error) {
	var total int64
	err := r.filtered(ctx, query, matchableTerms(query.Terms)).Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("count recipes: %w", err)
	}
	return int(total), nil
}

func (r *RecipeStore) filtered(ctx context.Context, query discovery.RecipeQuery, terms []string) *gorm.DB {
	db := r.db.WithContext(ctx).Table(RecipeModel{}.TableName())

	if len(terms) > 0 {
		conds := make([]string, 0, len(terms))
		args := make([]interface{}, 0, len(terms)*2)
		for _, t := range terms {
			cond, condArgs := termCondition(t)
			conds = append(conds, cond)
			args = append(args, condArgs...)
		}
		db = db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}

	for _, req := range matchableTerms(query.Required) {
		cond, args := termCondition(req)
		db = db.Where(cond, args...)
	}

	for start := 0; start < len(query.ExcludeIDs); start += excludeChunk {
		end := start + excludeChunk
		if end > len(query.ExcludeIDs) {
			end = len(query.ExcludeIDs)
		}
		ids := make([]int64, 0, end-start)
		for _, id := range query.ExcludeIDs[start:end] {
			ids = append(ids, int64(id))
		}
		db = db.Where("id NOT IN ?", ids)
	}

	f := query.Filters
	if f.MaxMinutes > 0 {
		db = db.Where("total_time_minutes <= ?", f.MaxMinutes)
	}
	if f.IsEasy != nil && *f.IsEasy {
		db = db.Where("is_easy = ?", true)
	}
	if f.KidFriendly != nil && *f.KidFriendly {
		db = db.Where("kid_friendly = ?", true)
	}

	return db
}

// termCondition matches a whole-word term or its simple plural
func termCondition(term string) (string, []interface{}) {
	return "(search_text LIKE ? OR search_text LIKE ?)",
		[]interface{}{"% " + term + " %", "% " + term + "s %"}
}

func scoreExpression(terms []string) (string, []interface{}) {
	if len(terms) == 0 {
		return "0", nil
	}
	parts := make([]string, 0, len(terms))
	args := make([]interface{}, 0, len(terms)*2)
	for _, t := range terms {
		cond, condArgs := termCondition(t)
		parts = append(parts, "(CASE WHEN "+cond+" THEN 1 ELSE 0 END)")
		args = append(args, condArgs...)
	}
	return "(" + strings.Join(parts, " + ") + ")", args
}

// matchableTerms reduces terms to the token form stored in search_text
func matchableTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		norm := strings.Join(tokenize(t), " ")
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	return out
}

func toCandidate(row *scoredRecipe, terms []string) discovery.RecipeCandidate {
	var matched []string
	for _, t := range terms {
		if strings.Contains(row.SearchText, " "+t+" ") || strings.Contains(row.SearchText, " "+t+"s ") {
			matched = append(matched, t)
		}
	}

	explanation := ""
	if len(matched) > 0 {
		explanation = "Matches " + strings.Join(matched, ", ")
	}

	return discovery.RecipeCandidate{
		ID:           discovery.RecipeID(row.ID),
		Title:        row.Title,
		Cuisine:      row.Cuisine,
		Category:     row.Category,
		MealRole:     row.MealRole,
		TotalMinutes: row.TotalTimeMinutes,
		Flags: discovery.IntelligenceFlags{
			IsEasy:           row.IsEasy,
			IsOnePot:         row.IsOnePot,
			KidFriendly:      row.KidFriendly,
			LeftoverFriendly: row.LeftoverFriendly,
		},
		Ingredients: append([]string(nil), row.Ingredients...),
		Explanation: explanation,
		Score:       row.Score,
	}
}
