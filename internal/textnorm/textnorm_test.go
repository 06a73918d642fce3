package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripEdgePunctuation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "korean with symbols and spaces", input: "  !!케이크!!  ", expected: "케이크"},
		{name: "interior punctuation kept", input: "설탕 2스푼, 밀가루 1컵", expected: "설탕 2스푼, 밀가루 1컵"},
		{name: "quoted english", input: "'Kimchi fried rice.'", expected: "Kimchi fried rice"},
		{name: "only symbols", input: "!!!", expected: ""},
		{name: "empty", input: "", expected: ""},
		{name: "blank", input: "   ", expected: "   "},
		{name: "already clean", input: "Bibimbap", expected: "Bibimbap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripEdgePunctuation(tt.input))
		})
	}
}

func TestStripLabelPrefix(t *testing.T) {
	assert.Equal(t, "설탕 2컵, 밀가루 1컵", StripLabelPrefix("재료: 설탕 2컵, 밀가루 1컵"))
	assert.Equal(t, "설탕 2컵", StripLabelPrefix("설탕 2컵"))
	assert.Equal(t, "b: c", StripLabelPrefix("a: b: c"))
	assert.Equal(t, "", StripLabelPrefix("재료:"))
}

func TestParseDishAnswer(t *testing.T) {
	t.Run("name and description", func(t *testing.T) {
		c, err := ParseDishAnswer("김치볶음밥(Kimchi fried rice with vegetables)")
		require.NoError(t, err)
		assert.Equal(t, "김치볶음밥", c.Name)
		assert.Equal(t, "Kimchi fried rice with vegetables", c.Description)
	})

	t.Run("surrounding noise is stripped", func(t *testing.T) {
		c, err := ParseDishAnswer(" '된장찌개' (Doenjang jjigae, a savory soybean paste stew). ")
		require.NoError(t, err)
		assert.Equal(t, "된장찌개", c.Name)
		assert.Equal(t, "Doenjang jjigae, a savory soybean paste stew", c.Description)
	})

	t.Run("missing separator", func(t *testing.T) {
		_, err := ParseDishAnswer("에러")
		assert.ErrorIs(t, err, ErrNoSeparator)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := ParseDishAnswer("!!(Something tasty)")
		assert.ErrorIs(t, err, ErrEmptyName)
	})

	t.Run("empty description", func(t *testing.T) {
		_, err := ParseDishAnswer("비빔밥()")
		assert.ErrorIs(t, err, ErrEmptyDescription)
	})
}
