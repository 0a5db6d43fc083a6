package store

import (
	"context"
	"errors"
)

// ErrNotFound 路径不存在
var ErrNotFound = errors.New("store: path not found")

// Event 订阅推送事件（写入路径 + 写入后的完整 JSON 文档）
type Event struct {
	Path    string
	Payload []byte
}

// Tree 层级键值树存储
// 路径形如 "sensors/{siteId}/{sensorKey}"，节点值为 JSON 文档
type Tree interface {
	// GetJSON 读取路径节点并反序列化到 dest
	GetJSON(ctx context.Context, path string, dest interface{}) error

	// SetJSON 整体覆盖写入路径节点，并向订阅者推送
	SetJSON(ctx context.Context, path string, value interface{}) error

	// MergeJSON 部分合并更新（字段级，last-write-wins；值为 nil 的字段删除）
	MergeJSON(ctx context.Context, path string, fields map[string]interface{}) error

	// Delete 删除多个路径节点（单次原子提交）
	Delete(ctx context.Context, paths ...string) error

	// DeleteTree 删除路径节点及其整个子树
	DeleteTree(ctx context.Context, path string) error

	// Children 列出路径的直接子节点名（排序后）
	Children(ctx context.Context, path string) ([]string, error)

	// LastChildren 按键序取最后 N 个直接子节点名（历史截断查询用）
	LastChildren(ctx context.Context, path string, n int) ([]string, error)

	// Subscribe 订阅匹配 pattern 的路径写入（如 "sensors/*"）
	// 返回事件通道和取消函数；取消后通道关闭
	Subscribe(ctx context.Context, pattern string) (<-chan Event, func(), error)
}
