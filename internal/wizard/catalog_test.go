package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_LoadsEmbeddedTemplates(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	cats := c.Categories()
	assert.Contains(t, cats, "arcade")
	assert.Contains(t, cats, "platformer")
	assert.Contains(t, cats, "puzzle")
	assert.Contains(t, cats, "shooter")
}

func TestCatalog_KnownCategory(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	steps, resolved := c.Steps("platformer")
	assert.Equal(t, "platformer", resolved)
	require.NotEmpty(t, steps)

	// Required steps come before the optional tail.
	assert.Equal(t, StepCharacter, steps[0].Type)
	assert.False(t, steps[0].Skippable)
}

func TestCatalog_UnknownCategoryFallsBack(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	steps, resolved := c.Steps("visual-novel")
	assert.Equal(t, DefaultCategory, resolved)

	defaults, _ := c.Steps(DefaultCategory)
	assert.Equal(t, defaults, steps)
}

func TestCatalog_StepsReturnsCopies(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	a, _ := c.Steps("arcade")
	a[0].Name = "mutated"

	b, _ := c.Steps("arcade")
	assert.NotEqual(t, "mutated", b[0].Name)
}
