package messaging

import (
	"context"

	"github.com/wyfcoding/optionamm/internal/optionbook/domain"
	"github.com/wyfcoding/optionamm/pkg/mq"
)

// 事件类型
const (
	EventTypeOptionCreated   = "option.created"
	EventTypeOptionPurchased = "option.purchased"
)

// envelope 事件信封，type 字段供消费端路由
type envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// KafkaPublisher 期权簿事件的 Kafka 发布实现
type KafkaPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaPublisher 创建 Kafka 事件发布器
func NewKafkaPublisher(producer *mq.KafkaProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishOptionCreated(ctx context.Context, event *domain.OptionCreatedEvent) error {
	return p.producer.SendMessage(ctx, p.topic, event.OptionID, envelope{Type: EventTypeOptionCreated, Payload: event})
}

func (p *KafkaPublisher) PublishOptionPurchased(ctx context.Context, event *domain.OptionPurchasedEvent) error {
	return p.producer.SendMessage(ctx, p.topic, event.OptionID, envelope{Type: EventTypeOptionPurchased, Payload: event})
}
