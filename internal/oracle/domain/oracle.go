// 包 domain 标的价格预言机的领域接口
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNoPrice = errors.New("no oracle price available")
)

// PriceOracle 标的资产价格预言机
// 结算引擎通过该接口读取行权时点的标的价格
type PriceOracle interface {
	// LatestPrice 返回最新标的价格，价格缺失时返回 ErrNoPrice
	LatestPrice(ctx context.Context) (decimal.Decimal, error)
}
