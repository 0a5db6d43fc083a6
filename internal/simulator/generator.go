package simulator

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sunbangamen/aj-mc-sub000/internal/models"
)

// Mode 模拟模式
type Mode string

const (
	ModeRandom   Mode = "random"   // 概率表随机
	ModeScenario Mode = "scenario" // 固定剧本循环
	ModeGradual  Mode = "gradual"  // 随机游走
)

// ParseMode 解析模式字符串
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRandom, ModeScenario, ModeGradual:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown simulation mode: %s", s)
}

// 随机模式的状态概率表：normal 70%、warning 20%、alert 8%、offline 2%
var randomStatusTable = []struct {
	status models.Status
	weight float64
}{
	{models.StatusNormal, 0.70},
	{models.StatusWarning, 0.20},
	{models.StatusAlert, 0.08},
	{models.StatusOffline, 0.02},
}

// 剧本模式的默认状态序列
var defaultScenario = []models.Status{
	models.StatusNormal,
	models.StatusWarning,
	models.StatusAlert,
	models.StatusNormal,
}

// 随机游走的单步最大偏移
const gradualMaxStep = 5.0

// Generator 传感器数据生成器
// 各传感器实例的游走/剧本状态按 "{siteId}_{type}_{n}_{mode}" 键独立维护
type Generator struct {
	thresholds models.ThresholdConfig
	scenario   []models.Status

	mu          sync.Mutex
	rng         *rand.Rand
	scenarioIdx map[string]int
	gradualVal  map[string]float64
}

// NewGenerator 创建生成器；seed 为 0 时按当前时间取种子
func NewGenerator(thresholds models.ThresholdConfig, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		thresholds:  thresholds,
		scenario:    defaultScenario,
		rng:         rand.New(rand.NewSource(seed)),
		scenarioIdx: make(map[string]int),
		gradualVal:  make(map[string]float64),
	}
}

func stateKey(siteID string, t models.SensorType, sensorNumber int, mode Mode) string {
	return fmt.Sprintf("%s_%s_%d_%s", siteID, t, sensorNumber, mode)
}

// Generate 按模式合成一条读数
// 未知传感器类型属于编程/配置错误，直接返回错误
func (g *Generator) Generate(siteID string, t models.SensorType, sensorNumber int, mode Mode, nowMs int64) (*models.SensorReading, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown sensor type: %s", t)
	}
	th, ok := g.thresholds[t]
	if !ok || th == nil {
		return nil, fmt.Errorf("no value bands configured for sensor type: %s", t)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch mode {
	case ModeRandom:
		return g.randomLocked(t, th, nowMs)
	case ModeScenario:
		return g.scenarioLocked(stateKey(siteID, t, sensorNumber, mode), t, th, nowMs)
	case ModeGradual:
		return g.gradualLocked(stateKey(siteID, t, sensorNumber, mode), t, th, nowMs)
	}
	return nil, fmt.Errorf("unknown simulation mode: %s", mode)
}

// GenerateForStatus 合成指定状态的读数（剧本/随机模式共用）
// offline 状态的数值为空
func (g *Generator) GenerateForStatus(t models.SensorType, status models.Status, nowMs int64) (*models.SensorReading, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown sensor type: %s", t)
	}
	th, ok := g.thresholds[t]
	if !ok || th == nil {
		return nil, fmt.Errorf("no value bands configured for sensor type: %s", t)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.readingForStatusLocked(t, th, status, nowMs)
}

func (g *Generator) randomLocked(t models.SensorType, th *models.SensorThresholds, nowMs int64) (*models.SensorReading, error) {
	roll := g.rng.Float64()
	status := models.StatusNormal
	acc := 0.0
	for _, entry := range randomStatusTable {
		acc += entry.weight
		if roll < acc {
			status = entry.status
			break
		}
	}
	return g.readingForStatusLocked(t, th, status, nowMs)
}

func (g *Generator) scenarioLocked(key string, t models.SensorType, th *models.SensorThresholds, nowMs int64) (*models.SensorReading, error) {
	idx := g.scenarioIdx[key]
	status := g.scenario[idx%len(g.scenario)]
	g.scenarioIdx[key] = idx + 1
	return g.readingForStatusLocked(t, th, status, nowMs)
}

func (g *Generator) gradualLocked(key string, t models.SensorType, th *models.SensorThresholds, nowMs int64) (*models.SensorReading, error) {
	minVal, maxVal, err := bandExtent(th)
	if err != nil {
		return nil, fmt.Errorf("sensor type %s: %w", t, err)
	}

	current, ok := g.gradualVal[key]
	if !ok {
		if th.Normal != nil {
			current = (th.Normal.Min + th.Normal.Max) / 2
		} else {
			current = (minVal + maxVal) / 2
		}
	}

	current += (g.rng.Float64()*2 - 1) * gradualMaxStep
	if current < minVal {
		current = minVal
	}
	if current > maxVal {
		current = maxVal
	}
	g.gradualVal[key] = current

	// 状态按数值落入的波段推导，首个匹配生效；gradual 模式不产生 offline
	status := models.StatusNormal
	switch {
	case th.Normal != nil && th.Normal.Contains(current):
		status = models.StatusNormal
	case th.Warning != nil && th.Warning.Contains(current):
		status = models.StatusWarning
	case th.Alert != nil && th.Alert.Contains(current):
		status = models.StatusAlert
	}

	value := current
	reading := &models.SensorReading{
		Status:     status,
		Timestamp:  nowMs,
		LastUpdate: nowMs,
	}
	reading.SetValue(t, &value)
	return reading, nil
}

func (g *Generator) readingForStatusLocked(t models.SensorType, th *models.SensorThresholds, status models.Status, nowMs int64) (*models.SensorReading, error) {
	reading := &models.SensorReading{
		Status:     status,
		Timestamp:  nowMs,
		LastUpdate: nowMs,
	}

	if status == models.StatusOffline {
		return reading, nil
	}

	band := bandForStatus(th, status)
	if band == nil {
		return nil, fmt.Errorf("no %s band configured for sensor type: %s", status, t)
	}

	value := band.Min + g.rng.Float64()*(band.Max-band.Min)
	reading.SetValue(t, &value)
	return reading, nil
}

func bandForStatus(th *models.SensorThresholds, status models.Status) *models.Range {
	switch status {
	case models.StatusNormal:
		return th.Normal
	case models.StatusWarning:
		return th.Warning
	case models.StatusAlert:
		return th.Alert
	}
	return nil
}

// bandExtent 全部非 offline 波段的整体最小/最大值
func bandExtent(th *models.SensorThresholds) (float64, float64, error) {
	bands := []*models.Range{th.Normal, th.Warning, th.Alert}
	first := true
	var minVal, maxVal float64
	for _, b := range bands {
		if b == nil {
			continue
		}
		if first {
			minVal, maxVal = b.Min, b.Max
			first = false
			continue
		}
		if b.Min < minVal {
			minVal = b.Min
		}
		if b.Max > maxVal {
			maxVal = b.Max
		}
	}
	if first {
		return 0, 0, fmt.Errorf("no value bands configured")
	}
	return minVal, maxVal, nil
}
