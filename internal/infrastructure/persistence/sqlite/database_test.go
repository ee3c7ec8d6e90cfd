package sqlite

import (
	"context"
	"testing"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	gormModels "github.com/alchemorsel/discovery/internal/infrastructure/persistence/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestSeedDatabase(t *testing.T) {
	db, err := SetupDatabase("", logger.Silent)
	require.NoError(t, err)
	ctx := context.Background()

	n, err := SeedDatabase(ctx, db, 25)
	require.NoError(t, err)
	assert.Equal(t, len(catalogue)+25, n)

	again, err := SeedDatabase(ctx, db, 25)
	require.NoError(t, err)
	assert.Zero(t, again, "seeding is skipped once recipes exist")

	store := gormModels.NewRecipeStore(db)
	results, err := store.Search(ctx, discovery.RecipeQuery{
		Terms:    []string{"chicken"},
		Required: []string{"chicken"},
		Limit:    50,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(results), 12)
	for _, r := range results {
		if int(r.ID) > len(catalogue) {
			continue
		}
		assert.True(t, discovery.ContainsTerm(r.Title+" "+joinAll(r.Ingredients), "chicken"), r.Title)
	}
}

func TestCatalogueCoversVariationTiers(t *testing.T) {
	db, err := SetupDatabase("", logger.Silent)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = SeedDatabase(ctx, db, 0)
	require.NoError(t, err)

	store := gormModels.NewRecipeStore(db)
	for _, q := range []discovery.RecipeQuery{
		{Terms: []string{"turkey", "duck", "cornish hen"}, Limit: 10},
		{Terms: []string{"italian"}, Required: []string{"chicken", "italian"}, Limit: 10},
		{Terms: []string{"soup"}, Limit: 10},
		{Terms: []string{"breakfast"}, Limit: 10},
	} {
		results, err := store.Search(ctx, q)
		require.NoError(t, err)
		assert.NotEmpty(t, results, "%v", q.Terms)
	}
}

func TestFakeRecipesAreDeterministic(t *testing.T) {
	a := FakeRecipes(5, 7)
	b := FakeRecipes(5, 7)

	require.Len(t, a, 5)
	for i := range a {
		assert.Equal(t, a[i].Title, b[i].Title)
		assert.NotEmpty(t, a[i].Title)
		assert.GreaterOrEqual(t, a[i].TotalTimeMinutes, 10)
	}
	assert.Nil(t, FakeRecipes(0, 7))
}

func joinAll(items []string) string {
	out := ""
	for _, s := range items {
		out += " " + s
	}
	return out
}
