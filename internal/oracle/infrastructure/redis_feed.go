package infrastructure

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionamm/internal/oracle/domain"
	"github.com/wyfcoding/optionamm/pkg/cache"
)

// RedisFeed 基于 Redis 的价格预言机
// 外部行情进程将最新标的价格写入固定 key，本服务只读取
type RedisFeed struct {
	cache    *cache.RedisCache
	priceKey string
}

// NewRedisFeed 创建 Redis 价格预言机
func NewRedisFeed(c *cache.RedisCache, priceKey string) *RedisFeed {
	return &RedisFeed{cache: c, priceKey: priceKey}
}

// LatestPrice 读取最新价格
func (f *RedisFeed) LatestPrice(ctx context.Context) (decimal.Decimal, error) {
	raw, err := f.cache.Get(ctx, f.priceKey)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read oracle price: %w", err)
	}
	if raw == "" {
		return decimal.Zero, domain.ErrNoPrice
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse oracle price %q: %w", raw, err)
	}
	return price, nil
}

// SetPrice 写入价格，供本地联调与管理接口使用
func (f *RedisFeed) SetPrice(ctx context.Context, price decimal.Decimal) error {
	return f.cache.Set(ctx, f.priceKey, price.String(), 0)
}
