package aligner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "dont stop", normalize("Don't   STOP!"))
	assert.Equal(t, "by product", normalize("by-product"))
	assert.Equal(t, "cafe au lait", normalize("Cafe, au lait..."))
	assert.Equal(t, "", normalize(" ... "))
}

func TestContentTokens(t *testing.T) {
	assert.Equal(t, []string{"mitochondria", "powerhouse", "cell"}, contentTokens("The mitochondria is the powerhouse of the cell"))
	assert.Equal(t, []string{"and", "so", "on"}, contentTokens("and so on"))
	assert.Empty(t, contentTokens("?!"))
}

func TestContainsAtBoundary(t *testing.T) {
	assert.True(t, containsAtBoundary("art of science", "art"))
	assert.False(t, containsAtBoundary("restart", "art"))
	assert.True(t, containsAtBoundary("restart, art.", "art"))
	assert.True(t, containsAtBoundary("Remember: oxygen", ": oxygen"))
	assert.False(t, containsAtBoundary("anything", ""))
}
