package messaging

import (
	"context"

	"github.com/wyfcoding/optionamm/internal/liquidity/domain"
	"github.com/wyfcoding/optionamm/pkg/mq"
)

// 事件类型
const (
	EventTypeLiquidityAdded   = "liquidity.added"
	EventTypeLiquidityRemoved = "liquidity.removed"
)

type envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// KafkaPublisher 流动性事件的 Kafka 发布实现
type KafkaPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaPublisher 创建 Kafka 事件发布器
func NewKafkaPublisher(producer *mq.KafkaProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishLiquidityAdded(ctx context.Context, event *domain.LiquidityAddedEvent) error {
	return p.producer.SendMessage(ctx, p.topic, event.Provider, envelope{Type: EventTypeLiquidityAdded, Payload: event})
}

func (p *KafkaPublisher) PublishLiquidityRemoved(ctx context.Context, event *domain.LiquidityRemovedEvent) error {
	return p.producer.SendMessage(ctx, p.topic, event.Provider, envelope{Type: EventTypeLiquidityRemoved, Payload: event})
}
