package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"book", "a", "cheap", "hotel"}, Tokenize("Book a CHEAP hotel!"))
	assert.Empty(t, Tokenize("  ...  "))
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard("book a hotel", "Book a hotel"))
	assert.Equal(t, 0.0, Jaccard("hello there", "goodbye friend"))
	assert.Equal(t, 1.0, Jaccard("", ""))

	// {book, a, hotel} vs {book, a, taxi}: 2 shared of 4 total.
	assert.InDelta(t, 0.5, Jaccard("book a hotel", "book a taxi"), 1e-9)
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "one two three", TruncateWords("one two three", 5))
	assert.Equal(t, "one two", TruncateWords("one two three", 2))
	assert.Equal(t, "one two three", TruncateWords("one two three", 0))
}
