package domain

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNoHoldings = errors.New("no holdings for option")
)

// Holding 期权持仓
// 同一持有人对同一期权的持仓合并为一行，手数只增不拆
type Holding struct {
	gorm.Model
	// 期权 ID
	OptionID string `gorm:"column:option_id;type:varchar(40);uniqueIndex:idx_option_holder;not null" json:"option_id"`
	// 持有人身份
	Holder string `gorm:"column:holder;type:varchar(64);uniqueIndex:idx_option_holder;index;not null" json:"holder"`
	// 持有手数
	Lots uint64 `gorm:"column:lots;not null" json:"lots"`
}

// TableName 表名
func (Holding) TableName() string { return "optionbook_holdings" }
