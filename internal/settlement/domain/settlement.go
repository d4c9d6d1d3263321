// 包 domain 期权结算的领域模型
// 到期后按预言机价格判定价内，并以 |标的价 − 行权价| × 手数 计算支付
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrNotYetExpired      = errors.New("option not yet expired")
	ErrNoHoldings         = errors.New("no holdings to settle")
	ErrTransferFailed     = errors.New("payout transfer failed")
)

// InTheMoney 判定价内：看涨要求标的价高于行权价，看跌要求低于
func InTheMoney(isCall bool, price, strike decimal.Decimal) bool {
	if isCall {
		return price.GreaterThan(strike)
	}
	return price.LessThan(strike)
}

// PayoutAmount 结算支付额 = |标的价 − 行权价| × 手数
func PayoutAmount(price, strike decimal.Decimal, lots uint64) decimal.Decimal {
	return price.Sub(strike).Abs().Mul(decimal.NewFromUint64(lots))
}

// SettlementRecord 结算记录
// 每条记录对应一次 (期权, 持有人) 的结算，结算后持仓清零，天然幂等
type SettlementRecord struct {
	gorm.Model
	// 结算 ID (业务主键)
	SettlementID string `gorm:"column:settlement_id;type:varchar(40);uniqueIndex;not null" json:"settlement_id"`
	// 期权 ID
	OptionID string `gorm:"column:option_id;type:varchar(40);index;not null" json:"option_id"`
	// 持有人身份
	Holder string `gorm:"column:holder;type:varchar(64);index;not null" json:"holder"`
	// 结算手数
	Lots uint64 `gorm:"column:lots;not null" json:"lots"`
	// 结算时的预言机价格
	OraclePrice decimal.Decimal `gorm:"column:oracle_price;type:decimal(32,8);not null" json:"oracle_price"`
	// 行权价
	StrikePrice decimal.Decimal `gorm:"column:strike_price;type:decimal(32,8);not null" json:"strike_price"`
	// 是否看涨
	IsCall bool `gorm:"column:is_call;not null" json:"is_call"`
	// 是否价内
	InTheMoney bool `gorm:"column:in_the_money;not null" json:"in_the_money"`
	// 支付总额（价外为零）
	Payout decimal.Decimal `gorm:"column:payout;type:decimal(32,8);not null" json:"payout"`
	// 结算时间
	SettledAt time.Time `gorm:"column:settled_at;not null" json:"settled_at"`
}

// TableName 表名
func (SettlementRecord) TableName() string { return "settlement_records" }

// OptionSettledEvent 期权结算事件
type OptionSettledEvent struct {
	SettlementID string          `json:"settlement_id"`
	OptionID     string          `json:"option_id"`
	Holder       string          `json:"holder"`
	Lots         uint64          `json:"lots"`
	OraclePrice  decimal.Decimal `json:"oracle_price"`
	StrikePrice  decimal.Decimal `json:"strike_price"`
	InTheMoney   bool            `json:"in_the_money"`
	Payout       decimal.Decimal `json:"payout"`
	SettledAt    time.Time       `json:"settled_at"`
}

// EventPublisher 结算领域事件发布接口
type EventPublisher interface {
	PublishOptionSettled(ctx context.Context, event *OptionSettledEvent) error
}

// SettlementRepository 结算记录仓储接口
type SettlementRepository interface {
	Save(ctx context.Context, record *SettlementRecord) error
	// Get 根据结算 ID 获取记录
	Get(ctx context.Context, settlementID string) (*SettlementRecord, error)
	// ListByOption 列出某期权的结算记录
	ListByOption(ctx context.Context, optionID string) ([]*SettlementRecord, error)
	// ListByHolder 列出某持有人的结算记录
	ListByHolder(ctx context.Context, holder string) ([]*SettlementRecord, error)
	// WithTx 在事务中执行 fn
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}
