package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("user-1", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestJWTDefaultTTL(t *testing.T) {
	token, err := GenerateJWT("user-1", "secret", -time.Minute)
	require.NoError(t, err)
	// a non-positive ttl falls back to the default lifetime
	_, err = ParseJWT(token, "secret")
	assert.NoError(t, err)
}

func TestCacheHelpersWithoutRedis(t *testing.T) {
	ctx := context.Background()
	var dest map[string]int

	found, err := GetCache(ctx, nil, "k", &dest)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetCache(ctx, nil, "k", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, DeleteCache(ctx, nil, "k"))
	assert.NoError(t, DeleteCachePrefix(ctx, nil, "k"))
}
