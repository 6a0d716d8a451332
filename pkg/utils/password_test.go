package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("s3cretpass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", h)
	assert.True(t, CheckPassword("s3cretpass", h))
	assert.False(t, CheckPassword("wrong", h))
}
