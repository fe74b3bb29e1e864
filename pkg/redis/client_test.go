package redis

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/docindex/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestNewClient_Unreachable(t *testing.T) {
	_, err := NewClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1", PoolSize: 1})
	assert.Error(t, err)
}
