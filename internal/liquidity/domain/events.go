package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LiquidityAddedEvent 流动性注入事件
type LiquidityAddedEvent struct {
	Provider      string          `json:"provider"`
	Amount        decimal.Decimal `json:"amount"`
	PoolLiquidity decimal.Decimal `json:"pool_liquidity"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// LiquidityRemovedEvent 流动性赎回事件
type LiquidityRemovedEvent struct {
	Provider      string          `json:"provider"`
	Amount        decimal.Decimal `json:"amount"`
	PoolLiquidity decimal.Decimal `json:"pool_liquidity"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// EventPublisher 流动性领域事件发布接口
type EventPublisher interface {
	PublishLiquidityAdded(ctx context.Context, event *LiquidityAddedEvent) error
	PublishLiquidityRemoved(ctx context.Context, event *LiquidityRemovedEvent) error
}
