package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

func newAlert(siteID, sensorKey string, t models.AlertType, tsMs int64) *models.Alert {
	return &models.Alert{
		ID:        models.NewAlertID(siteID, sensorKey, t),
		Type:      t,
		SiteID:    siteID,
		SensorKey: sensorKey,
		Message:   "test alert",
		Timestamp: tsMs,
	}
}

func TestCreateAndListActive(t *testing.T) {
	repo := NewAlertRepository(newTestTree(t), zap.NewNop())
	ctx := testContext()
	now := int64(1_700_000_000_000)

	require.NoError(t, repo.Create(ctx, newAlert("site_001", "ultrasonic_1", models.AlertLevelWarning, now)))
	require.NoError(t, repo.Create(ctx, newAlert("site_001", "ultrasonic_2", models.AlertLevelCritical, now+1000)))
	require.NoError(t, repo.Create(ctx, newAlert("site_002", "temperature_1", models.AlertLevelOffline, now+2000)))
	require.NoError(t, repo.Create(ctx, newAlert("site_002", "temperature_2", models.AlertLevelCritical, now+3000)))

	alerts, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 4)

	// 优先级排序：critical 在前，同级按时间戳新者优先
	assert.Equal(t, models.AlertLevelCritical, alerts[0].Type)
	assert.Equal(t, now+3000, alerts[0].Timestamp)
	assert.Equal(t, models.AlertLevelCritical, alerts[1].Type)
	assert.Equal(t, models.AlertLevelOffline, alerts[2].Type)
	assert.Equal(t, models.AlertLevelWarning, alerts[3].Type)
}

func TestAcknowledgeAndDelete(t *testing.T) {
	repo := NewAlertRepository(newTestTree(t), zap.NewNop())
	ctx := testContext()
	now := int64(1_700_000_000_000)

	alert := newAlert("site_001", "ultrasonic_1", models.AlertLevelAlert, now)
	require.NoError(t, repo.Create(ctx, alert))

	require.NoError(t, repo.Acknowledge(ctx, alert.ID))
	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].Acknowledged)
	assert.NotZero(t, active[0].AcknowledgedAt)

	// 删除只移出活跃集合，历史镜像保留
	require.NoError(t, repo.Delete(ctx, alert.ID))
	active, err = repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	history, err := repo.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, alert.ID, history[0].ID)
}

func TestHasRecentDuplicate(t *testing.T) {
	repo := NewAlertRepository(newTestTree(t), zap.NewNop())
	ctx := testContext()
	now := int64(1_700_000_000_000)
	window := int64(300_000)

	alert := newAlert("site_001", "ultrasonic_1", models.AlertLevelAlert, now)
	require.NoError(t, repo.Create(ctx, alert))

	// 未确认的活跃报警：同三元组视为重复
	dup, err := repo.HasRecentDuplicate(ctx, "site_001", "ultrasonic_1", models.AlertLevelAlert, now+1000, window)
	require.NoError(t, err)
	assert.True(t, dup)

	// 不同级别 / 不同传感器不算重复
	dup, err = repo.HasRecentDuplicate(ctx, "site_001", "ultrasonic_1", models.AlertLevelCritical, now+1000, window)
	require.NoError(t, err)
	assert.False(t, dup)
	dup, err = repo.HasRecentDuplicate(ctx, "site_001", "ultrasonic_2", models.AlertLevelAlert, now+1000, window)
	require.NoError(t, err)
	assert.False(t, dup)

	// 活跃条目被删除后窗口内仍算重复（历史镜像兜底）
	require.NoError(t, repo.Delete(ctx, alert.ID))
	dup, err = repo.HasRecentDuplicate(ctx, "site_001", "ultrasonic_1", models.AlertLevelAlert, now+1000, window)
	require.NoError(t, err)
	assert.True(t, dup)

	// 窗口过后不再算重复
	dup, err = repo.HasRecentDuplicate(ctx, "site_001", "ultrasonic_1", models.AlertLevelAlert, now+window+1000, window)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestListHistorySince(t *testing.T) {
	repo := NewAlertRepository(newTestTree(t), zap.NewNop())
	ctx := testContext()
	now := int64(1_700_000_000_000)

	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Create(ctx, newAlert("site_001", "ultrasonic_1", models.AlertLevelWarning, now+int64(i)*60_000)))
	}

	history, err := repo.ListHistory(ctx, now+2*60_000)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// 时间升序
	assert.Less(t, history[0].Timestamp, history[1].Timestamp)
}

func TestDeleteHistoryOlderThan(t *testing.T) {
	repo := NewAlertRepository(newTestTree(t), zap.NewNop())
	ctx := testContext()
	now := int64(1_700_000_000_000)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newAlert("site_001", "ultrasonic_1", models.AlertLevelWarning, now+int64(i)*60_000)))
	}

	deleted, err := repo.DeleteHistoryOlderThan(ctx, now+3*60_000, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	history, err := repo.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
