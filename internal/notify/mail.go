package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

// DeclareMailQueue 声明邮件队列，API 服务和邮件服务使用同样的参数
func DeclareMailQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,  // 队列名称
		true,  // 是否持久化
		false, // 是否自动删除
		false, // 是否独占
		false, // 是否不等待
		nil,   // 额外参数
	)
}

// MailPublisher 把邮件投递到 RabbitMQ，由 mail 服务负责真正发送
type MailPublisher struct {
	channel *amqp.Channel
	queue   string
	timeout time.Duration
}

func NewMailPublisher(ch *amqp.Channel, queue string, timeout time.Duration) *MailPublisher {
	return &MailPublisher{
		channel: ch,
		queue:   queue,
		timeout: timeout,
	}
}

func (p *MailPublisher) PublishMail(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.channel.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
