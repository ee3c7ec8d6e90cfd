package cache

import (
	"crypto/md5"
	"fmt"
	"strconv"
	"strings"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
)

// KeyBuilder provides consistent cache key generation
type KeyBuilder struct {
	prefix    string
	separator string
}

// NewKeyBuilder creates a new key builder
func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{
		prefix:    "discovery:v1",
		separator: ":",
	}
}

// BuildKey creates a cache key from components
func (kb *KeyBuilder) BuildKey(components ...string) string {
	parts := make([]string, 0, len(components)+1)
	parts = append(parts, kb.prefix)
	parts = append(parts, components...)
	return strings.Join(parts, kb.separator)
}

// BuildSearchKey creates a key for a recipe store search
func (kb *KeyBuilder) BuildSearchKey(query discovery.RecipeQuery) string {
	return kb.BuildKey("search", kb.hashString(canonicalQuery(query)), "l"+strconv.Itoa(query.Limit))
}

// BuildCountKey creates a key for a recipe store count
func (kb *KeyBuilder) BuildCountKey(query discovery.RecipeQuery) string {
	return kb.BuildKey("count", kb.hashString(canonicalQuery(query)))
}

func canonicalQuery(q discovery.RecipeQuery) string {
	var b strings.Builder
	b.WriteString("t=")
	b.WriteString(strings.Join(q.Terms, "|"))
	b.WriteString("&r=")
	b.WriteString(strings.Join(q.Required, "|"))
	fmt.Fprintf(&b, "&max=%d", q.Filters.MaxMinutes)
	if q.Filters.IsEasy != nil {
		fmt.Fprintf(&b, "&easy=%t", *q.Filters.IsEasy)
	}
	if q.Filters.KidFriendly != nil {
		fmt.Fprintf(&b, "&kid=%t", *q.Filters.KidFriendly)
	}
	return b.String()
}

// hashString creates a short hash of a string
func (kb *KeyBuilder) hashString(s string) string {
	hash := md5.Sum([]byte(s))
	return fmt.Sprintf("%x", hash)[:16]
}
