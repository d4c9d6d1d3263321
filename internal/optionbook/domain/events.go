package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OptionCreatedEvent 期权创建事件
type OptionCreatedEvent struct {
	OptionID    string          `json:"option_id"`
	StrikePrice decimal.Decimal `json:"strike_price"`
	LotSize     uint64          `json:"lot_size"`
	Premium     decimal.Decimal `json:"premium"`
	K           decimal.Decimal `json:"k"`
	Expiry      time.Time       `json:"expiry"`
	IsCall      bool            `json:"is_call"`
	Creator     string          `json:"creator"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OptionPurchasedEvent 期权买入事件
type OptionPurchasedEvent struct {
	OptionID      string          `json:"option_id"`
	Buyer         string          `json:"buyer"`
	Lots          uint64          `json:"lots"`
	Cost          decimal.Decimal `json:"cost"`
	RemainingLots uint64          `json:"remaining_lots"`
	NewPremium    decimal.Decimal `json:"new_premium"`
	Depleted      bool            `json:"depleted"`
	PurchasedAt   time.Time       `json:"purchased_at"`
}

// EventPublisher 期权簿领域事件发布接口
type EventPublisher interface {
	// PublishOptionCreated 发布期权创建事件
	PublishOptionCreated(ctx context.Context, event *OptionCreatedEvent) error
	// PublishOptionPurchased 发布期权买入事件
	PublishOptionPurchased(ctx context.Context, event *OptionPurchasedEvent) error
}
