package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/store"
)

// newTestTree 建立 miniredis 后端的树存储（各仓库测试共用）
func newTestTree(t *testing.T) store.Tree {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return store.NewRedisTree(client, "mc:", zap.NewNop())
}

func testContext() context.Context {
	return context.Background()
}

func floatPtr(v float64) *float64 { return &v }
