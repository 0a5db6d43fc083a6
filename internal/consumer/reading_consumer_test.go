package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/config"
	"github.com/sunbangamen/aj-mc-sub000/internal/evaluator"
	"github.com/sunbangamen/aj-mc-sub000/internal/models"
	"github.com/sunbangamen/aj-mc-sub000/internal/repository"
	"github.com/sunbangamen/aj-mc-sub000/internal/store"
)

type consumerFixture struct {
	consumer *ReadingConsumer
	alerts   *repository.AlertRepository
	notified []*models.Alert
}

type recordingNotifier struct {
	delivered *[]*models.Alert
}

func (n recordingNotifier) NotifyAlert(ctx context.Context, alert *models.Alert) error {
	*n.delivered = append(*n.delivered, alert)
	return nil
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tree := store.NewRedisTree(client, "mc:", zap.NewNop())
	thresholdRepo := repository.NewThresholdRepository(tree, zap.NewNop())
	alertRepo := repository.NewAlertRepository(tree, zap.NewNop())
	eval := evaluator.New(evaluator.NewStateCache(1000, 3_600_000), zap.NewNop())

	cfg := &config.Config{}
	cfg.Monitor.DuplicateWindowSec = 300

	f := &consumerFixture{alerts: alertRepo}
	f.consumer = NewReadingConsumer(cfg, tree, thresholdRepo, alertRepo, eval,
		recordingNotifier{delivered: &f.notified}, zap.NewNop())
	return f
}

func readingEvent(t *testing.T, siteID, sensorKey string, reading *models.SensorReading) store.Event {
	payload, err := json.Marshal(reading)
	require.NoError(t, err)
	return store.Event{
		Path:    "sensors/" + siteID + "/" + sensorKey,
		Payload: payload,
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestHandleEventCreatesAlert(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	now := int64(1_700_000_000_000)

	ev := readingEvent(t, "site_001", "ultrasonic_1", &models.SensorReading{
		Status:    models.StatusNormal,
		Timestamp: now,
		Distance:  floatPtr(400),
	})
	f.consumer.handleEvent(ctx, ev, now)

	active, err := f.alerts.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, models.AlertLevelCritical, active[0].Type)
	assert.Equal(t, "site_001", active[0].SiteID)

	// 已持久化的报警同步投递到通知器
	require.Len(t, f.notified, 1)
	assert.Equal(t, active[0].ID, f.notified[0].ID)
}

func TestHandleEventSecondaryDedup(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	now := int64(1_700_000_000_000)

	// 离线报警在评估层不去重，二次去重兜底：窗口内只持久化一次
	stale := &models.SensorReading{Status: models.StatusNormal, Timestamp: now - 120_000, Distance: floatPtr(50)}
	ev := readingEvent(t, "site_001", "ultrasonic_1", stale)

	f.consumer.handleEvent(ctx, ev, now)
	f.consumer.handleEvent(ctx, ev, now+10_000)
	f.consumer.handleEvent(ctx, ev, now+20_000)

	active, err := f.alerts.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, models.AlertLevelOffline, active[0].Type)
	assert.Len(t, f.notified, 1)
}

func TestHandleEventEndToEndFlow(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	now := int64(1_700_000_000_000)

	emit := func(value float64, offset int64, wantActive int) {
		t.Helper()
		ev := readingEvent(t, "site_001", "ultrasonic_1", &models.SensorReading{
			Status:    models.StatusNormal,
			Timestamp: now + offset,
			Distance:  floatPtr(value),
		})
		f.consumer.handleEvent(ctx, ev, now+offset)

		active, err := f.alerts.ListActive(ctx)
		require.NoError(t, err)
		assert.Len(t, active, wantActive, "value=%.0f offset=%d", value, offset)
	}

	emit(150, 0, 1)      // warning
	emit(250, 10_000, 2) // 升级突破冷却
	emit(50, 20_000, 2)  // normal：自动解除，无新报警

	// 同三元组的未确认活跃报警压制重复持久化
	emit(250, 30_000, 2)

	// 确认后且去重窗口已过：重新报警
	active, err := f.alerts.ListActive(ctx)
	require.NoError(t, err)
	for _, a := range active {
		require.NoError(t, f.alerts.Acknowledge(ctx, a.ID))
	}
	emit(250, 400_000, 3)
}

func TestHandleEventIgnoresHistoryPaths(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()
	now := int64(1_700_000_000_000)

	// 历史快照路径（5 段）不触发评估
	payload, _ := json.Marshal(&models.SensorReading{Status: models.StatusNormal, Timestamp: now, Distance: floatPtr(400)})
	f.consumer.handleEvent(ctx, store.Event{
		Path:    "sensors/site_001/ultrasonic_1/history/1700000000000",
		Payload: payload,
	}, now)

	// 非传感器路径同样跳过
	f.consumer.handleEvent(ctx, store.Event{Path: "sites/site_001", Payload: payload}, now)

	active, err := f.alerts.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestHandleEventBadPayload(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()

	f.consumer.handleEvent(ctx, store.Event{
		Path:    "sensors/site_001/ultrasonic_1",
		Payload: []byte("not json"),
	}, 1_700_000_000_000)

	assert.Equal(t, int64(1), f.consumer.ErrorCount())
}
