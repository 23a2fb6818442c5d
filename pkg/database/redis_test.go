package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/survey-api/internal/config"
)

func TestRedisOptions(t *testing.T) {
	opts, err := RedisOptions(config.RedisConfig{Addr: "localhost:6379", DB: 2, MinRetryBackoff: 8})
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:6379"}, opts.Addrs)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 8*time.Millisecond, opts.MinRetryBackoff)
	assert.Empty(t, opts.MasterName)

	opts, err = RedisOptions(config.RedisConfig{Mode: "sentinel", Addrs: []string{"a:26379", "b:26379"}, MasterName: "main"})
	require.NoError(t, err)
	assert.Equal(t, "main", opts.MasterName)
	assert.Len(t, opts.Addrs, 2)
}

func TestRedisOptions_Invalid(t *testing.T) {
	for name, cfg := range map[string]config.RedisConfig{
		"no address":          {},
		"sentinel w/o master": {Mode: "sentinel", Addr: "a:26379"},
		"unknown mode":        {Mode: "ring", Addr: "a:6379"},
	} {
		_, err := RedisOptions(cfg)
		assert.Error(t, err, name)
	}
}
