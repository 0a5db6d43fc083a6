package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
	"github.com/sunbangamen/aj-mc-sub000/internal/store"
)

const (
	activeAlertBase  = "alerts/active"
	alertHistoryBase = "alerts/history"

	// 二次去重时回看的历史条目数
	duplicateLookback = 100
)

// AlertRepository 报警仓库（活跃集合 + 只追加历史镜像）
type AlertRepository struct {
	tree   store.Tree
	logger *zap.Logger
}

// NewAlertRepository 创建报警仓库
func NewAlertRepository(tree store.Tree, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{
		tree:   tree,
		logger: logger,
	}
}

// Create 持久化报警：写入活跃集合，同时镜像到历史
// Data 中的 nil 字段在持久化前剥除
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	alert.StripNilData()

	if err := r.tree.SetJSON(ctx, activeAlertBase+"/"+alert.ID, alert); err != nil {
		return fmt.Errorf("failed to create alert %s: %w", alert.ID, err)
	}

	// 历史键按时间戳前缀排序，便于按龄裁剪
	pushID := fmt.Sprintf("%013d_%s", alert.Timestamp, uuid.New().String()[:8])
	if err := r.tree.SetJSON(ctx, alertHistoryBase+"/"+pushID, alert); err != nil {
		return fmt.Errorf("failed to mirror alert %s to history: %w", alert.ID, err)
	}

	r.logger.Info("Alert created",
		zap.String("alert_id", alert.ID),
		zap.String("type", string(alert.Type)),
		zap.String("site_id", alert.SiteID),
		zap.String("sensor_key", alert.SensorKey),
	)
	return nil
}

// Acknowledge 确认报警
func (r *AlertRepository) Acknowledge(ctx context.Context, alertID string) error {
	fields := map[string]interface{}{
		"acknowledged":   true,
		"acknowledgedAt": time.Now().UnixMilli(),
	}
	if err := r.tree.MergeJSON(ctx, activeAlertBase+"/"+alertID, fields); err != nil {
		return fmt.Errorf("failed to acknowledge alert %s: %w", alertID, err)
	}
	return nil
}

// Delete 从活跃集合删除报警（历史镜像保留）
func (r *AlertRepository) Delete(ctx context.Context, alertID string) error {
	if err := r.tree.Delete(ctx, activeAlertBase+"/"+alertID); err != nil {
		return fmt.Errorf("failed to delete alert %s: %w", alertID, err)
	}
	return nil
}

// ListActive 列出活跃报警，按优先级排序（同级按时间戳新者优先）
func (r *AlertRepository) ListActive(ctx context.Context) ([]models.Alert, error) {
	ids, err := r.tree.Children(ctx, activeAlertBase)
	if err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}

	alerts := make([]models.Alert, 0, len(ids))
	for _, id := range ids {
		var alert models.Alert
		if err := r.tree.GetJSON(ctx, activeAlertBase+"/"+id, &alert); err != nil {
			continue
		}
		alerts = append(alerts, alert)
	}

	sort.Slice(alerts, func(i, j int) bool {
		pi, pj := alerts[i].Type.Priority(), alerts[j].Type.Priority()
		if pi != pj {
			return pi < pj
		}
		return alerts[i].Timestamp > alerts[j].Timestamp
	})
	return alerts, nil
}

// HasRecentDuplicate 二次去重检查（持久化前调用）
// 同 {siteId, sensorKey, type} 的未确认活跃报警存在，或同三元组在窗口内已创建过，视为重复
func (r *AlertRepository) HasRecentDuplicate(ctx context.Context, siteID, sensorKey string, alertType models.AlertType, nowMs, windowMs int64) (bool, error) {
	active, err := r.ListActive(ctx)
	if err != nil {
		return false, err
	}
	for _, a := range active {
		if a.SiteID != siteID || a.SensorKey != sensorKey || a.Type != alertType {
			continue
		}
		if !a.Acknowledged {
			return true, nil
		}
		if nowMs-a.Timestamp <= windowMs {
			return true, nil
		}
	}

	// 活跃集合中已被删除的报警：回看最近的历史镜像
	names, err := r.tree.LastChildren(ctx, alertHistoryBase, duplicateLookback)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		ts, ok := historyTimestamp(name)
		if !ok || nowMs-ts > windowMs {
			continue
		}
		var a models.Alert
		if err := r.tree.GetJSON(ctx, alertHistoryBase+"/"+name, &a); err != nil {
			continue
		}
		if a.SiteID == siteID && a.SensorKey == sensorKey && a.Type == alertType {
			return true, nil
		}
	}
	return false, nil
}

// ListHistory 列出 since（毫秒）之后的历史报警，时间升序
func (r *AlertRepository) ListHistory(ctx context.Context, sinceMs int64) ([]models.Alert, error) {
	names, err := r.tree.Children(ctx, alertHistoryBase)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert history: %w", err)
	}

	var alerts []models.Alert
	for _, name := range names {
		ts, ok := historyTimestamp(name)
		if !ok || ts < sinceMs {
			continue
		}
		var alert models.Alert
		if err := r.tree.GetJSON(ctx, alertHistoryBase+"/"+name, &alert); err != nil {
			continue
		}
		alerts = append(alerts, alert)
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].Timestamp < alerts[j].Timestamp
	})
	return alerts, nil
}

// DeleteHistoryOlderThan 删除早于 cutoff（毫秒）的历史报警，按批提交
// 返回删除的条目数
func (r *AlertRepository) DeleteHistoryOlderThan(ctx context.Context, cutoffMs int64, batchSize int) (int, error) {
	names, err := r.tree.Children(ctx, alertHistoryBase)
	if err != nil {
		return 0, fmt.Errorf("failed to list alert history: %w", err)
	}

	var expired []string
	for _, name := range names {
		if ts, ok := historyTimestamp(name); ok && ts < cutoffMs {
			expired = append(expired, alertHistoryBase+"/"+name)
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
			return deleted, fmt.Errorf("failed to delete alert history batch: %w", err)
		}
		deleted += end - i
	}
	return deleted, nil
}

// historyTimestamp 从历史键 "{ts}_{suffix}" 解析时间戳
func historyTimestamp(name string) (int64, bool) {
	idx := strings.Index(name, "_")
	if idx < 0 {
		return 0, false
	}
	ts, err := strconv.ParseInt(name[:idx], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
