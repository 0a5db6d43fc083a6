package repository

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
	"github.com/sunbangamen/aj-mc-sub000/internal/store"
)

// 读取当前读数时附带的历史条目数量
const attachedHistoryLimit = 5

// SensorRepository 传感器读数仓库（sensors/{siteId}/{sensorKey} 子树）
type SensorRepository struct {
	tree   store.Tree
	logger *zap.Logger
}

// NewSensorRepository 创建传感器仓库
func NewSensorRepository(tree store.Tree, logger *zap.Logger) *SensorRepository {
	return &SensorRepository{
		tree:   tree,
		logger: logger,
	}
}

func sensorPath(siteID, sensorKey string) string {
	return fmt.Sprintf("sensors/%s/%s", siteID, sensorKey)
}

func historyPath(siteID, sensorKey string) string {
	return sensorPath(siteID, sensorKey) + "/history"
}

// WriteReading 写入当前读数并追加历史快照
// 时间戳统一为毫秒后再持久化
func (r *SensorRepository) WriteReading(ctx context.Context, siteID, sensorKey string, reading *models.SensorReading) error {
	ts := reading.EffectiveTimestamp()
	if ts == 0 {
		return fmt.Errorf("reading for %s/%s has no timestamp", siteID, sensorKey)
	}

	current := *reading
	current.Timestamp = ts
	current.LastUpdate = ts
	current.History = nil

	if err := r.tree.SetJSON(ctx, sensorPath(siteID, sensorKey), &current); err != nil {
		return fmt.Errorf("failed to write reading %s/%s: %w", siteID, sensorKey, err)
	}

	snapshotPath := fmt.Sprintf("%s/%d", historyPath(siteID, sensorKey), ts)
	if err := r.tree.SetJSON(ctx, snapshotPath, &current); err != nil {
		return fmt.Errorf("failed to append history %s/%s: %w", siteID, sensorKey, err)
	}
	return nil
}

// GetReading 读取当前读数，附带最近的历史快照
func (r *SensorRepository) GetReading(ctx context.Context, siteID, sensorKey string) (*models.SensorReading, error) {
	var reading models.SensorReading
	if err := r.tree.GetJSON(ctx, sensorPath(siteID, sensorKey), &reading); err != nil {
		return nil, err
	}

	history, err := r.recentHistory(ctx, siteID, sensorKey, attachedHistoryLimit)
	if err != nil {
		// 历史读取失败不影响当前读数
		r.logger.Debug("Failed to attach history",
			zap.String("site_id", siteID),
			zap.String("sensor_key", sensorKey),
			zap.Error(err),
		)
	} else {
		reading.History = history
	}
	return &reading, nil
}

// SiteSensors 读取站点的全部传感器读数（原始子树，键 → 读数）
func (r *SensorRepository) SiteSensors(ctx context.Context, siteID string) (map[string]*models.SensorReading, error) {
	keys, err := r.tree.Children(ctx, "sensors/"+siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sensors of %s: %w", siteID, err)
	}

	sensors := make(map[string]*models.SensorReading, len(keys))
	for _, key := range keys {
		reading, err := r.GetReading(ctx, siteID, key)
		if err != nil {
			continue
		}
		sensors[key] = reading
	}
	return sensors, nil
}

// recentHistory 取最近 n 条历史快照（时间戳键 → 读数）
func (r *SensorRepository) recentHistory(ctx context.Context, siteID, sensorKey string, n int) (map[string]*models.SensorReading, error) {
	names, err := r.tree.LastChildren(ctx, historyPath(siteID, sensorKey), n)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	history := make(map[string]*models.SensorReading, len(names))
	for _, name := range names {
		var entry models.SensorReading
		path := historyPath(siteID, sensorKey) + "/" + name
		if err := r.tree.GetJSON(ctx, path, &entry); err != nil {
			continue
		}
		history[name] = &entry
	}
	return history, nil
}

// DeleteHistoryBefore 删除早于 cutoff（毫秒）的历史快照，按批提交
// 返回删除的条目数
func (r *SensorRepository) DeleteHistoryBefore(ctx context.Context, siteID, sensorKey string, cutoffMs int64, batchSize int) (int, error) {
	names, err := r.tree.Children(ctx, historyPath(siteID, sensorKey))
	if err != nil {
		return 0, fmt.Errorf("failed to list history of %s/%s: %w", siteID, sensorKey, err)
	}

	var expired []string
	for _, name := range names {
		ts, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			continue
		}
		if models.ToMillis(ts) < cutoffMs {
			expired = append(expired, historyPath(siteID, sensorKey)+"/"+name)
		}
	}

	if batchSize < 1 {
		batchSize = len(expired)
	}
	deleted := 0
	for i := 0; i < len(expired); i += batchSize {
		end := i + batchSize
		if end > len(expired) {
			end = len(expired)
		}
		if err := r.tree.Delete(ctx, expired[i:end]...); err != nil {
			return deleted, fmt.Errorf("failed to delete history batch: %w", err)
		}
		deleted += end - i
	}
	return deleted, nil
}
