package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sunbangamen/aj-mc-sub000/internal/config"
	"github.com/sunbangamen/aj-mc-sub000/internal/models"
	"github.com/sunbangamen/aj-mc-sub000/internal/repository"
)

// MQTTConsumer MQTT 上报接入桥
// 订阅 "mc/sites/{siteId}/sensors/{sensorKey}"，把外部上报的读数写入树存储
// （模拟器之外的写入通道；真实硬件或外部喂数服务走这里）
type MQTTConsumer struct {
	cfg     *config.Config
	client  mqtt.Client
	sensors *repository.SensorRepository
	logger  *zap.Logger
}

// NewMQTTConsumer 创建 MQTT 接入桥并连接 Broker
func NewMQTTConsumer(cfg *config.Config, sensors *repository.SensorRepository, logger *zap.Logger) (*MQTTConsumer, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)
	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
	}
	if cfg.MQTT.Password != "" {
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTConsumer{
		cfg:     cfg,
		client:  client,
		sensors: sensors,
		logger:  logger,
	}, nil
}

// Start 订阅上报主题
func (c *MQTTConsumer) Start(ctx context.Context) error {
	token := c.client.Subscribe(c.cfg.MQTT.Topic, c.cfg.MQTT.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		if err := c.handleMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
			// 单条消息失败只记录，不中断订阅
			c.logger.Error("Failed to handle MQTT message",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.cfg.MQTT.Topic, token.Error())
	}

	c.logger.Info("MQTT ingest started",
		zap.String("broker", c.cfg.MQTT.Broker),
		zap.String("topic", c.cfg.MQTT.Topic),
	)
	return nil
}

// Stop 断开连接
func (c *MQTTConsumer) Stop() {
	c.client.Disconnect(250)
	c.logger.Info("MQTT ingest stopped")
}

// handleMessage 解析主题和负载，写入读数
// 主题格式: mc/sites/{siteId}/sensors/{sensorKey}
func (c *MQTTConsumer) handleMessage(ctx context.Context, topic string, payload []byte) error {
	siteID, sensorKey, err := parseTopic(topic)
	if err != nil {
		return err
	}

	var reading models.SensorReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return fmt.Errorf("invalid reading payload: %w", err)
	}

	if _, _, err := models.ParseSensorKey(sensorKey); err != nil {
		return err
	}

	if err := c.sensors.WriteReading(ctx, siteID, sensorKey, &reading); err != nil {
		return err
	}

	c.logger.Debug("Ingested MQTT reading",
		zap.String("site_id", siteID),
		zap.String("sensor_key", sensorKey),
	)
	return nil
}

func parseTopic(topic string) (string, string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[1] != "sites" || parts[3] != "sensors" {
		return "", "", fmt.Errorf("unexpected topic format: %s", topic)
	}
	return parts[2], parts[4], nil
}
