package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	assert.Equal(t, "GBP", NormalizeCurrency(" gbp "))
	assert.True(t, IsValidCurrency("EUR"))
	assert.False(t, IsValidCurrency("eur"))
	assert.False(t, IsValidCurrency("EURO"))
	assert.False(t, IsValidCurrency(""))
}

func TestCategory(t *testing.T) {
	assert.True(t, IsValidCategory("Whisky"))
	assert.True(t, IsValidCategory("Côtes du Rhône"))
	assert.True(t, IsValidCategory("Gin & Tonic"))
	assert.False(t, IsValidCategory("  "))
	assert.False(t, IsValidCategory("wine; drop table"))
}

func TestTitle(t *testing.T) {
	assert.True(t, IsValidTitle("Lagavulin 16"))
	assert.False(t, IsValidTitle(" "))
}
