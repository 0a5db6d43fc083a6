package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
	"github.com/sunbangamen/aj-mc-sub000/internal/store"
)

// SiteRepository 站点仓库（sites/{siteId} 子树）
type SiteRepository struct {
	tree   store.Tree
	logger *zap.Logger
}

// NewSiteRepository 创建站点仓库
func NewSiteRepository(tree store.Tree, logger *zap.Logger) *SiteRepository {
	return &SiteRepository{
		tree:   tree,
		logger: logger,
	}
}

func sitePath(siteID string) string {
	return "sites/" + siteID
}

// CreateSite 创建站点，并为每个配置的传感器实例预置默认读数
func (r *SiteRepository) CreateSite(ctx context.Context, site *models.Site) error {
	if site.ID == "" {
		return fmt.Errorf("site id is required")
	}

	now := time.Now().UnixMilli()
	site.CreatedAt = now
	site.UpdatedAt = now
	if site.Status == "" {
		site.Status = models.SiteActive
	}

	if err := r.tree.SetJSON(ctx, sitePath(site.ID), site); err != nil {
		return fmt.Errorf("failed to create site %s: %w", site.ID, err)
	}

	// 预置默认读数（status=normal，数值为空，时间戳取当前）
	for sensorType, count := range site.EffectiveSensorConfig() {
		for n := 1; n <= count; n++ {
			key := models.SensorKey(sensorType, n)
			reading := &models.SensorReading{
				Status:     models.StatusNormal,
				Timestamp:  now,
				LastUpdate: now,
				Location:   site.Location,
			}
			path := fmt.Sprintf("sensors/%s/%s", site.ID, key)
			if err := r.tree.SetJSON(ctx, path, reading); err != nil {
				return fmt.Errorf("failed to provision sensor %s/%s: %w", site.ID, key, err)
			}
		}
	}

	r.logger.Info("Site created",
		zap.String("site_id", site.ID),
		zap.String("name", site.Name),
	)
	return nil
}

// GetSite 读取站点记录
func (r *SiteRepository) GetSite(ctx context.Context, siteID string) (*models.Site, error) {
	var site models.Site
	if err := r.tree.GetJSON(ctx, sitePath(siteID), &site); err != nil {
		return nil, err
	}
	if site.ID == "" {
		site.ID = siteID
	}
	return &site, nil
}

// ListSites 列出全部站点
func (r *SiteRepository) ListSites(ctx context.Context) ([]models.Site, error) {
	ids, err := r.tree.Children(ctx, "sites")
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}

	sites := make([]models.Site, 0, len(ids))
	for _, id := range ids {
		site, err := r.GetSite(ctx, id)
		if err != nil {
			// 条目损坏时跳过，不中断列表
			r.logger.Warn("Skipping unreadable site record",
				zap.String("site_id", id),
				zap.Error(err),
			)
			continue
		}
		sites = append(sites, *site)
	}
	return sites, nil
}

// UpdateSite 部分合并更新站点记录
func (r *SiteRepository) UpdateSite(ctx context.Context, siteID string, fields map[string]interface{}) error {
	fields["updatedAt"] = time.Now().UnixMilli()
	if err := r.tree.MergeJSON(ctx, sitePath(siteID), fields); err != nil {
		return fmt.Errorf("failed to update site %s: %w", siteID, err)
	}
	return nil
}

// DeleteSite 删除站点记录及其全部传感器子树
func (r *SiteRepository) DeleteSite(ctx context.Context, siteID string) error {
	if err := r.tree.DeleteTree(ctx, "sensors/"+siteID); err != nil {
		return fmt.Errorf("failed to delete sensors of site %s: %w", siteID, err)
	}
	if err := r.tree.Delete(ctx, sitePath(siteID)); err != nil {
		return fmt.Errorf("failed to delete site %s: %w", siteID, err)
	}

	r.logger.Info("Site deleted",
		zap.String("site_id", siteID),
	)
	return nil
}
