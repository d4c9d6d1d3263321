// 包 domain 期权簿的领域模型
// 期权采用恒定乘积联合曲线定价：k = 剩余手数 × 单手权利金，k 在创建时固定
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrOptionNotFound      = errors.New("option not found")
	ErrOptionExpired       = errors.New("option expired")
	ErrOptionDepleted      = errors.New("option supply depleted")
	ErrInsufficientSupply  = errors.New("insufficient option supply")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrInvalidOptionParams = errors.New("invalid option parameters")
	ErrTransferFailed      = errors.New("premium transfer failed")
)

// maxLotValue 手数与定价常数的上限，超出视为算术溢出
var maxLotValue = decimal.RequireFromString("18446744073709551615")

// Option 期权合约
// LotSize 为剩余可售手数，Premium 为当前单手权利金，二者的乘积在创建时固定为 K
type Option struct {
	gorm.Model
	// 期权 ID (业务主键)
	OptionID string `gorm:"column:option_id;type:varchar(40);uniqueIndex;not null" json:"option_id"`
	// 行权价
	StrikePrice decimal.Decimal `gorm:"column:strike_price;type:decimal(32,8);not null" json:"strike_price"`
	// 剩余可售手数
	LotSize uint64 `gorm:"column:lot_size;not null" json:"lot_size"`
	// 初始手数
	InitialLots uint64 `gorm:"column:initial_lots;not null" json:"initial_lots"`
	// 当前单手权利金
	Premium decimal.Decimal `gorm:"column:premium;type:decimal(32,8);not null" json:"premium"`
	// 定价常数 k = 初始手数 × 初始权利金
	K decimal.Decimal `gorm:"column:k;type:decimal(32,8);not null" json:"k"`
	// 到期时间
	Expiry time.Time `gorm:"column:expiry;index;not null" json:"expiry"`
	// 是否为看涨期权（false 为看跌）
	IsCall bool `gorm:"column:is_call;not null" json:"is_call"`
	// 创建者身份
	Creator string `gorm:"column:creator;type:varchar(64);index;not null" json:"creator"`
}

// TableName 表名
func (Option) TableName() string { return "optionbook_options" }

// NewOption 创建期权合约并固定定价常数
func NewOption(optionID string, strike decimal.Decimal, lotSize uint64, premium decimal.Decimal, expiry time.Time, isCall bool, creator string) (*Option, error) {
	if lotSize == 0 || !strike.IsPositive() || !premium.IsPositive() {
		return nil, ErrInvalidOptionParams
	}
	k := premium.Mul(decimal.NewFromUint64(lotSize))
	if k.GreaterThan(maxLotValue) {
		return nil, ErrArithmeticOverflow
	}
	return &Option{
		OptionID:    optionID,
		StrikePrice: strike,
		LotSize:     lotSize,
		InitialLots: lotSize,
		Premium:     premium,
		K:           k,
		Expiry:      expiry,
		IsCall:      isCall,
		Creator:     creator,
	}, nil
}

// Expired 判断在 at 时点是否已到期
func (o *Option) Expired(at time.Time) bool {
	return !at.Before(o.Expiry)
}

// Depleted 判断供应是否已售罄
func (o *Option) Depleted() bool {
	return o.LotSize == 0
}

// CurrentPremium 当前单手权利金，售罄后曲线无定义
func (o *Option) CurrentPremium() (decimal.Decimal, error) {
	if o.Depleted() {
		return decimal.Zero, ErrOptionDepleted
	}
	return o.Premium, nil
}

// Purchase 按当前权利金买入 lots 手并沿曲线重定价
// 返回买方应付的总价（成交价 × 手数，按成交前权利金计）
// 售罄边界：允许买空全部剩余手数，此后合约进入 Depleted 终态，Premium 保留末次成交价
func (o *Option) Purchase(lots uint64, at time.Time) (decimal.Decimal, error) {
	if o.Expired(at) {
		return decimal.Zero, ErrOptionExpired
	}
	if o.Depleted() {
		return decimal.Zero, ErrOptionDepleted
	}
	if lots == 0 {
		return decimal.Zero, ErrInvalidOptionParams
	}
	if lots > o.LotSize {
		return decimal.Zero, ErrInsufficientSupply
	}

	cost := o.Premium.Mul(decimal.NewFromUint64(lots))
	o.LotSize -= lots
	if o.LotSize > 0 {
		// 重定价：premium = floor(k / 剩余手数)，整数向下取整
		q, _ := o.K.QuoRem(decimal.NewFromUint64(o.LotSize), 0)
		o.Premium = q
	}
	return cost, nil
}
