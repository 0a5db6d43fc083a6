package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
	"github.com/sunbangamen/aj-mc-sub000/internal/store"
)

const (
	globalThresholdPath = "settings/thresholds/global"
	siteThresholdBase   = "settings/thresholds/sites"
)

// ThresholdRepository 阈值配置仓库（全局默认 + 站点覆盖两层）
type ThresholdRepository struct {
	tree   store.Tree
	logger *zap.Logger
}

// NewThresholdRepository 创建阈值仓库
func NewThresholdRepository(tree store.Tree, logger *zap.Logger) *ThresholdRepository {
	return &ThresholdRepository{
		tree:   tree,
		logger: logger,
	}
}

// Global 读取全局阈值配置，未设置时返回默认表
func (r *ThresholdRepository) Global(ctx context.Context) (models.ThresholdConfig, error) {
	var cfg models.ThresholdConfig
	err := r.tree.GetJSON(ctx, globalThresholdPath, &cfg)
	if err == store.ErrNotFound {
		return models.DefaultThresholds(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read global thresholds: %w", err)
	}
	// 存储中缺失的类型补默认值
	return models.MergeThresholds(models.DefaultThresholds(), cfg), nil
}

// SiteOverride 读取站点阈值覆盖（可能为空）
func (r *ThresholdRepository) SiteOverride(ctx context.Context, siteID string) (models.ThresholdConfig, error) {
	var cfg models.ThresholdConfig
	err := r.tree.GetJSON(ctx, siteThresholdBase+"/"+siteID, &cfg)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read site thresholds for %s: %w", siteID, err)
	}
	return cfg, nil
}

// Resolve 解析站点生效阈值：站点覆盖按类型逐字段合并到全局之上
func (r *ThresholdRepository) Resolve(ctx context.Context, siteID string) (models.ThresholdConfig, error) {
	global, err := r.Global(ctx)
	if err != nil {
		return nil, err
	}

	override, err := r.SiteOverride(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if override == nil {
		return global, nil
	}
	return models.MergeThresholds(global, override), nil
}

// SaveGlobal 保存全局阈值配置
// 校验失败时返回错误消息列表且不保存
func (r *ThresholdRepository) SaveGlobal(ctx context.Context, cfg models.ThresholdConfig) ([]string, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return problems, nil
	}
	if err := r.tree.SetJSON(ctx, globalThresholdPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to save global thresholds: %w", err)
	}
	r.logger.Info("Global thresholds saved")
	return nil, nil
}

// SaveSite 保存站点阈值覆盖
// 校验失败时返回错误消息列表且不保存
func (r *ThresholdRepository) SaveSite(ctx context.Context, siteID string, cfg models.ThresholdConfig) ([]string, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return problems, nil
	}
	if err := r.tree.SetJSON(ctx, siteThresholdBase+"/"+siteID, cfg); err != nil {
		return nil, fmt.Errorf("failed to save site thresholds for %s: %w", siteID, err)
	}
	r.logger.Info("Site thresholds saved",
		zap.String("site_id", siteID),
	)
	return nil, nil
}
