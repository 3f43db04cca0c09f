package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayTitle(t *testing.T) {
	t.Run("explicit title wins", func(t *testing.T) {
		s := &Segment{Title: "Opener", Text: "gas station hands"}
		assert.Equal(t, "Opener", s.DisplayTitle())
	})

	t.Run("falls back to text prefix", func(t *testing.T) {
		s := &Segment{Text: "  gas station hands  "}
		assert.Equal(t, "gas station hands", s.DisplayTitle())
	})

	t.Run("long text is truncated", func(t *testing.T) {
		s := &Segment{Text: strings.Repeat("a", 200)}
		assert.Len(t, s.DisplayTitle(), defaultTitleLen)
	})

	t.Run("truncation respects rune boundaries", func(t *testing.T) {
		s := &Segment{Text: strings.Repeat("é", 200)}
		title := s.DisplayTitle()
		assert.True(t, strings.HasSuffix(title, "é"))
	})
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 3, CountWords("gas station hands"))
	assert.Equal(t, 0, CountWords("   "))
	assert.Equal(t, 2, CountWords("one\ntwo"))
}

func TestAssociationType(t *testing.T) {
	assert.True(t, AssociationCallback.Valid())
	assert.True(t, AssociationVersion.Valid())
	assert.False(t, AssociationType("remix").Valid())

	assert.True(t, AssociationCallback.CreatesCopy())
	assert.True(t, AssociationDerivative.CreatesCopy())
	assert.False(t, AssociationReference.CreatesCopy())
	assert.False(t, AssociationVersion.CreatesCopy())
}

func TestValidHexColor(t *testing.T) {
	assert.True(t, ValidHexColor("#F94144"))
	assert.True(t, ValidHexColor("#abcdef"))
	assert.False(t, ValidHexColor("F94144"))
	assert.False(t, ValidHexColor("#F9414"))
	assert.False(t, ValidHexColor("#F94144AA"))
	assert.False(t, ValidHexColor("#GGGGGG"))
}

func TestEffectivePalette(t *testing.T) {
	u := &User{}
	assert.Equal(t, DefaultPalette, u.EffectivePalette())

	u.Palette = []string{"#111111", "#222222"}
	assert.Equal(t, u.Palette, u.EffectivePalette())
}
