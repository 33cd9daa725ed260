package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	rc := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}))
	defer rc.Close()

	assert.Equal(t, "predictor:saves:abc", rc.Key("abc"))
	assert.Equal(t, time.Duration(0), rc.ttl)
	assert.Equal(t, time.Hour, rc.WithTTL(time.Hour).ttl)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing redis url")
}
