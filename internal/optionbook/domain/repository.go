package domain

import (
	"context"
)

// OptionRepository 期权仓储接口
type OptionRepository interface {
	// Create 保存新期权
	Create(ctx context.Context, option *Option) error
	// Get 根据期权 ID 获取期权
	Get(ctx context.Context, optionID string) (*Option, error)
	// Update 更新期权（手数与权利金）
	Update(ctx context.Context, option *Option) error
	// List 分页列出期权
	List(ctx context.Context, limit, offset int) ([]*Option, int64, error)
	// WithTx 在事务中执行 fn
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// HoldingRepository 持仓仓储接口
type HoldingRepository interface {
	// Get 获取某持有人对某期权的持仓，不存在时返回 ErrNoHoldings
	Get(ctx context.Context, optionID, holder string) (*Holding, error)
	// Save 保存或更新持仓
	Save(ctx context.Context, holding *Holding) error
	// ListByOption 列出某期权的全部持仓
	ListByOption(ctx context.Context, optionID string) ([]*Holding, error)
	// ListByHolder 列出某持有人的全部持仓
	ListByHolder(ctx context.Context, holder string) ([]*Holding, error)
	// SumLots 统计某期权的总持仓手数
	SumLots(ctx context.Context, optionID string) (uint64, error)
}
