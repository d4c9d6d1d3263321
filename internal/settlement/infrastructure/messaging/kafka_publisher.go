package messaging

import (
	"context"

	"github.com/wyfcoding/optionamm/internal/settlement/domain"
	"github.com/wyfcoding/optionamm/pkg/mq"
)

// EventTypeOptionSettled 期权结算事件类型
const EventTypeOptionSettled = "option.settled"

type envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// KafkaPublisher 结算事件的 Kafka 发布实现
type KafkaPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaPublisher 创建 Kafka 事件发布器
func NewKafkaPublisher(producer *mq.KafkaProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishOptionSettled(ctx context.Context, event *domain.OptionSettledEvent) error {
	return p.producer.SendMessage(ctx, p.topic, event.OptionID, envelope{Type: EventTypeOptionSettled, Payload: event})
}
