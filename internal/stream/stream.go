package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

// ShiftEventMessage 是发布到班次事件 topic 的消息体
type ShiftEventMessage struct {
	EventID           int64                 `json:"eventID"`
	ShiftAssignmentID int64                 `json:"shiftAssignmentID"`
	DriverID          int64                 `json:"driverID"`
	VehicleID         int64                 `json:"vehicleID"`
	EventType         domain.ShiftEventType `json:"eventType"`
	Status            domain.ShiftStatus    `json:"status"`
	Odometer          *float64              `json:"odometer,omitempty"`
	VehicleRange      *float64              `json:"vehicleRange,omitempty"`
	GPSLat            *float64              `json:"gpsLat,omitempty"`
	GPSLon            *float64              `json:"gpsLon,omitempty"`
	OccurredAt        time.Time             `json:"occurredAt"`
}

func NewShiftEventMessage(sa *domain.ShiftAssignment, e *domain.ShiftEvent) ShiftEventMessage {
	return ShiftEventMessage{
		EventID:           e.ID,
		ShiftAssignmentID: sa.ID,
		DriverID:          sa.DriverID,
		VehicleID:         sa.VehicleID,
		EventType:         e.EventType,
		Status:            sa.Status,
		Odometer:          e.Odometer,
		VehicleRange:      e.VehicleRange,
		GPSLat:            e.GPSLat,
		GPSLon:            e.GPSLon,
		OccurredAt:        e.CreatedAt,
	}
}

// Client 把班次事件写入 Kafka，以班次 ID 作为 key 保证同一班次的事件有序
type Client struct {
	brokers []string
	topic   string
	timeout time.Duration
	writer  *kafkago.Writer
}

func NewClient(brokers []string, topic string, timeout time.Duration) *Client {
	return &Client{
		brokers: brokers,
		topic:   topic,
		timeout: timeout,
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireOne,
		},
	}
}

// EnsureTopic 创建 topic，topic 已存在时忽略错误
func (c *Client) EnsureTopic(ctx context.Context) error {
	conn, err := kafkago.DialContext(ctx, "tcp", c.brokers[0])
	if err != nil {
		return fmt.Errorf("无法连接 Kafka: %w", err)
	}
	defer conn.Close()

	if err := conn.CreateTopics(kafkago.TopicConfig{
		Topic:             c.topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	}); err != nil {
		slog.Warn("创建 topic 失败，可能已经存在", "topic", c.topic, "error", err)
	}
	return nil
}

func (c *Client) PublishShiftEvent(ctx context.Context, sa *domain.ShiftAssignment, e *domain.ShiftEvent) error {
	value, err := json.Marshal(NewShiftEventMessage(sa, e))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(strconv.FormatInt(sa.ID, 10)),
		Value: value,
		Time:  e.CreatedAt,
	})
}

func (c *Client) Close() error {
	return c.writer.Close()
}
