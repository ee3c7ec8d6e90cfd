package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "chicken", "chicken"},
		{"mixed case with suffix", "Chicken Recipes", "chicken"},
		{"filler and suffix", "show me chicken recipes", "chicken"},
		{"trailing punctuation", "  chicken recipes!! ", "chicken"},
		{"collapses whitespace", "quick    chicken   dinner", "quick chicken dinner"},
		{"find me", "find me some pasta dishes", "pasta"},
		{"keeps bare suffix word", "recipes", "recipes"},
		{"stacked suffixes", "chicken dinner ideas", "chicken dinner"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQuery(tt.raw))
		})
	}
}

func TestNormalizeQuery_SharedHistoryKey(t *testing.T) {
	key := NormalizeQuery("chicken")
	assert.Equal(t, key, NormalizeQuery("Chicken Recipes"))
	assert.Equal(t, key, NormalizeQuery("show me chicken recipes"))
	assert.Equal(t, key, NormalizeQuery("CHICKEN dishes."))
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"quick", "chicken", "dinner"}, Keywords("Show me a quick chicken dinner, please"))
	assert.Equal(t, []string{"gluten-free", "pasta"}, Keywords("gluten-free pasta pasta"))
	assert.Empty(t, Keywords("show me some recipes"))
}

func TestContainsTerm(t *testing.T) {
	assert.True(t, ContainsTerm("Lemon Chicken Thighs", "chicken"))
	assert.True(t, ContainsTerm("Three Bean Tacos", "taco"))
	assert.True(t, ContainsTerm("Sheet Pan Gnocchi", "sheet pan"))
	assert.False(t, ContainsTerm("Chickpea Curry", "chicken"))
	assert.False(t, ContainsTerm("Pineapple Salsa", "apple"))
	assert.False(t, ContainsTerm("anything", ""))
}
