// Package testutil provides test data factories and store fakes
package testutil

import (
	"sync/atomic"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/brianvoe/gofakeit/v6"
)

var nextID atomic.Int64

// CandidateFactory creates recipe candidates with seeded fake data
type CandidateFactory struct {
	faker *gofakeit.Faker
}

// NewCandidateFactory creates a new candidate factory with seeded faker
func NewCandidateFactory(seed int64) *CandidateFactory {
	return &CandidateFactory{faker: gofakeit.New(seed)}
}

// Candidate returns a random candidate with a unique ID
func (f *CandidateFactory) Candidate() discovery.RecipeCandidate {
	return discovery.RecipeCandidate{
		ID:           discovery.RecipeID(nextID.Add(1)),
		Title:        f.faker.Dinner(),
		Cuisine:      f.faker.RandomString([]string{"italian", "mexican", "indian", "thai", "french"}),
		Category:     "main",
		MealRole:     "main",
		TotalMinutes: f.faker.Number(10, 90),
		Flags: discovery.IntelligenceFlags{
			IsEasy:           f.faker.Bool(),
			IsOnePot:         f.faker.Bool(),
			KidFriendly:      f.faker.Bool(),
			LeftoverFriendly: f.faker.Bool(),
		},
		Ingredients: []string{f.faker.RandomString([]string{"chicken", "beef", "tofu", "rice", "beans"})},
	}
}

// Candidates returns n random candidates
func (f *CandidateFactory) Candidates(n int) []discovery.RecipeCandidate {
	out := make([]discovery.RecipeCandidate, n)
	for i := range out {
		out[i] = f.Candidate()
	}
	return out
}

// CandidateBuilder provides a fluent interface for building test candidates
type CandidateBuilder struct {
	c discovery.RecipeCandidate
}

// NewCandidate starts a candidate with the given ID and title
func NewCandidate(id int64, title string) *CandidateBuilder {
	return &CandidateBuilder{c: discovery.RecipeCandidate{
		ID:           discovery.RecipeID(id),
		Title:        title,
		TotalMinutes: 30,
	}}
}

// WithCuisine sets the cuisine
func (b *CandidateBuilder) WithCuisine(cuisine string) *CandidateBuilder {
	b.c.Cuisine = cuisine
	return b
}

// WithCategory sets the category
func (b *CandidateBuilder) WithCategory(category string) *CandidateBuilder {
	b.c.Category = category
	return b
}

// WithMinutes sets the total time
func (b *CandidateBuilder) WithMinutes(minutes int) *CandidateBuilder {
	b.c.TotalMinutes = minutes
	return b
}

// WithIngredients sets the ingredient list
func (b *CandidateBuilder) WithIngredients(ingredients ...string) *CandidateBuilder {
	b.c.Ingredients = ingredients
	return b
}

// WithPantryMatches sets the pantry match count
func (b *CandidateBuilder) WithPantryMatches(n int) *CandidateBuilder {
	b.c.PantryMatches = n
	return b
}

// Easy marks the candidate easy
func (b *CandidateBuilder) Easy() *CandidateBuilder {
	b.c.Flags.IsEasy = true
	return b
}

// OnePot marks the candidate one-pot
func (b *CandidateBuilder) OnePot() *CandidateBuilder {
	b.c.Flags.IsOnePot = true
	return b
}

// KidFriendly marks the candidate kid-friendly
func (b *CandidateBuilder) KidFriendly() *CandidateBuilder {
	b.c.Flags.KidFriendly = true
	return b
}

// LeftoverFriendly marks the candidate leftover-friendly
func (b *CandidateBuilder) LeftoverFriendly() *CandidateBuilder {
	b.c.Flags.LeftoverFriendly = true
	return b
}

// Build returns the candidate
func (b *CandidateBuilder) Build() discovery.RecipeCandidate {
	return b.c
}
