package infrastructure

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionamm/internal/oracle/domain"
)

// StaticOracle 固定价格预言机，用于本地开发与测试
type StaticOracle struct {
	mu    sync.RWMutex
	price decimal.Decimal
	set   bool
}

// NewStaticOracle 创建固定价格预言机，price 为零值时视为价格缺失
func NewStaticOracle(price decimal.Decimal) *StaticOracle {
	return &StaticOracle{price: price, set: price.IsPositive()}
}

// LatestPrice 返回固定价格
func (o *StaticOracle) LatestPrice(ctx context.Context) (decimal.Decimal, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.set {
		return decimal.Zero, domain.ErrNoPrice
	}
	return o.price, nil
}

// SetPrice 更新固定价格
func (o *StaticOracle) SetPrice(ctx context.Context, price decimal.Decimal) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.price = price
	o.set = true
	return nil
}
