package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const eventNamespace = "events:"

// RedisTree Redis 实现的层级树存储
// 路径 "a/b/c" 映射为键 "{prefix}a:b:c"，值为 JSON 文档
// 每次写入向 "{prefix}events:a:b:c" 频道推送写入后的文档
type RedisTree struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisTree 创建树存储
func NewRedisTree(client *redis.Client, prefix string, logger *zap.Logger) *RedisTree {
	return &RedisTree{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (t *RedisTree) key(path string) string {
	return t.prefix + strings.ReplaceAll(path, "/", ":")
}

func (t *RedisTree) channel(path string) string {
	return t.prefix + eventNamespace + strings.ReplaceAll(path, "/", ":")
}

// pathFromChannel 从频道名还原路径
func (t *RedisTree) pathFromChannel(channel string) string {
	trimmed := strings.TrimPrefix(channel, t.prefix+eventNamespace)
	return strings.ReplaceAll(trimmed, ":", "/")
}

// GetJSON 读取路径节点
func (t *RedisTree) GetJSON(ctx context.Context, path string, dest interface{}) error {
	val, err := t.client.Get(ctx, t.key(path)).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get %s: %w", path, err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}

// SetJSON 整体覆盖写入并推送
func (t *RedisTree) SetJSON(ctx context.Context, path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	if err := t.client.Set(ctx, t.key(path), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}

	// 推送失败不影响写入结果，只记录
	if err := t.client.Publish(ctx, t.channel(path), data).Err(); err != nil {
		t.logger.Warn("Failed to publish store event",
			zap.String("path", path),
			zap.Error(err),
		)
	}
	return nil
}

// MergeJSON 字段级部分合并更新（nil 字段删除，其余 last-write-wins）
func (t *RedisTree) MergeJSON(ctx context.Context, path string, fields map[string]interface{}) error {
	doc := make(map[string]interface{})

	val, err := t.client.Get(ctx, t.key(path)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read %s for merge: %w", path, err)
	}
	if err == nil {
		if err := json.Unmarshal([]byte(val), &doc); err != nil {
			return fmt.Errorf("failed to unmarshal %s for merge: %w", path, err)
		}
	}

	for k, v := range fields {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}

	return t.SetJSON(ctx, path, doc)
}

// Delete 删除多个路径（pipeline 单次提交）
func (t *RedisTree) Delete(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	pipe := t.client.TxPipeline()
	for _, p := range paths {
		pipe.Del(ctx, t.key(p))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete paths: %w", err)
	}
	return nil
}

// DeleteTree 删除路径节点及其子树
func (t *RedisTree) DeleteTree(ctx context.Context, path string) error {
	keys, err := t.scanKeys(ctx, t.key(path)+":*")
	if err != nil {
		return err
	}
	keys = append(keys, t.key(path))

	pipe := t.client.TxPipeline()
	for _, k := range keys {
		pipe.Del(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete tree %s: %w", path, err)
	}
	return nil
}

// Children 列出直接子节点名
func (t *RedisTree) Children(ctx context.Context, path string) ([]string, error) {
	base := t.key(path) + ":"
	keys, err := t.scanKeys(ctx, base+"*")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, k := range keys {
		rest := strings.TrimPrefix(k, base)
		if idx := strings.Index(rest, ":"); idx >= 0 {
			rest = rest[:idx]
		}
		if rest != "" {
			seen[rest] = struct{}{}
		}
	}

	children := make([]string, 0, len(seen))
	for name := range seen {
		children = append(children, name)
	}
	sortChildren(children)
	return children, nil
}

// LastChildren 按键序取最后 N 个子节点名
func (t *RedisTree) LastChildren(ctx context.Context, path string, n int) ([]string, error) {
	children, err := t.Children(ctx, path)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(children) {
		return children, nil
	}
	return children[len(children)-n:], nil
}

// Subscribe 订阅路径写入事件
func (t *RedisTree) Subscribe(ctx context.Context, pattern string) (<-chan Event, func(), error) {
	chPattern := t.prefix + eventNamespace + strings.ReplaceAll(pattern, "/", ":")
	pubsub := t.client.PSubscribe(ctx, chPattern)

	// 确认订阅建立
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe %s: %w", pattern, err)
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- Event{
				Path:    t.pathFromChannel(msg.Channel),
				Payload: []byte(msg.Payload),
			}
		}
	}()

	stop := func() { pubsub.Close() }
	return out, stop, nil
}

// scanKeys SCAN 分页取全部匹配键
func (t *RedisTree) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := t.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// sortChildren 子节点排序：全部为数字时按数值（时间戳历史键），否则按字典序
func sortChildren(names []string) {
	sort.Slice(names, func(i, j int) bool {
		a, errA := strconv.ParseInt(names[i], 10, 64)
		b, errB := strconv.ParseInt(names[j], 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return names[i] < names[j]
	})
}
