// 包 domain 流动性池的领域模型
// 出资增加池总额，赎回与结算支付减少池总额；权利金只计入池的资产账户，不改变本表
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount             = errors.New("amount must be positive")
	ErrInsufficientContribution  = errors.New("insufficient contribution")
	ErrInsufficientPoolLiquidity = errors.New("insufficient pool liquidity")
	ErrTransferFailed            = errors.New("liquidity transfer failed")
)

// Pool 流动性池，全局单行
type Pool struct {
	gorm.Model
	// 池内流动性总额
	TotalLiquidity decimal.Decimal `gorm:"column:total_liquidity;type:decimal(32,8);default:0;not null" json:"total_liquidity"`
}

// TableName 表名
func (Pool) TableName() string { return "liquidity_pool" }

// Add 注入流动性
func (p *Pool) Add(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	p.TotalLiquidity = p.TotalLiquidity.Add(amount)
	return nil
}

// Reserve 从池中划出资金，余量不足时拒绝
// 赎回与结算支付共用该偿付能力闸门
func (p *Pool) Reserve(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if p.TotalLiquidity.LessThan(amount) {
		return ErrInsufficientPoolLiquidity
	}
	p.TotalLiquidity = p.TotalLiquidity.Sub(amount)
	return nil
}

// Contribution 单个出资人的累计出资
type Contribution struct {
	gorm.Model
	// 出资人身份
	Provider string `gorm:"column:provider;type:varchar(64);uniqueIndex;not null" json:"provider"`
	// 当前出资余额
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(32,8);default:0;not null" json:"amount"`
}

// TableName 表名
func (Contribution) TableName() string { return "liquidity_contributions" }

// Add 增加出资
func (c *Contribution) Add(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	c.Amount = c.Amount.Add(amount)
	return nil
}

// Remove 减少出资，超出个人出资余额时拒绝
func (c *Contribution) Remove(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if c.Amount.LessThan(amount) {
		return ErrInsufficientContribution
	}
	c.Amount = c.Amount.Sub(amount)
	return nil
}

// PoolRepository 池仓储接口，Get 返回全局单行（不存在时创建零额池）
type PoolRepository interface {
	Get(ctx context.Context) (*Pool, error)
	// GetForUpdate 加行锁读取池行，持锁到事务结束，写路径必须用它串行化总额的读改写
	GetForUpdate(ctx context.Context) (*Pool, error)
	Save(ctx context.Context, pool *Pool) error
	// WithTx 在事务中执行 fn
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// ContributionRepository 出资仓储接口
type ContributionRepository interface {
	// Get 获取某出资人的出资记录，不存在时返回零额记录
	Get(ctx context.Context, provider string) (*Contribution, error)
	Save(ctx context.Context, contribution *Contribution) error
	// List 列出全部出资记录
	List(ctx context.Context) ([]*Contribution, error)
}
