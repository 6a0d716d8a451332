package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikePhone(t *testing.T) {
	assert.True(t, LooksLikePhone("+358 40 123 4567"))
	assert.True(t, LooksLikePhone("(09) 123-456"))
	assert.False(t, LooksLikePhone("call me"))
	assert.False(t, LooksLikePhone(""))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+358401234567", NormalizePhone(" 040 123 4567 "))
	assert.Equal(t, "+358401234567", NormalizePhone("+358 40 123 4567"))
	assert.Equal(t, "12", NormalizePhone(" 12 "))
	assert.Equal(t, "", NormalizePhone("   "))
}
