// 包 domain 结算资产的领域模型
package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Account 结算资产账户
// 持有某一身份在结算货币下的余额，流动性池本身也占用一个账户
type Account struct {
	gorm.Model
	// 账户 ID (业务主键)，即调用方身份
	AccountID string `gorm:"column:account_id;type:varchar(64);uniqueIndex;not null" json:"account_id"`
	// 余额
	Balance decimal.Decimal `gorm:"column:balance;type:decimal(32,8);default:0;not null" json:"balance"`
}

// TableName 表名
func (Account) TableName() string { return "asset_accounts" }

// NewAccount 创建零余额账户
func NewAccount(accountID string) *Account {
	return &Account{AccountID: accountID, Balance: decimal.Zero}
}

// Credit 入账
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Debit 出账，余额不足时拒绝
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Transfer 资金流水记录
type Transfer struct {
	gorm.Model
	// 流水 ID (业务主键)
	TransferID string `gorm:"column:transfer_id;type:varchar(40);uniqueIndex;not null" json:"transfer_id"`
	// 出账账户
	FromAccount string `gorm:"column:from_account;type:varchar(64);index;not null" json:"from_account"`
	// 入账账户
	ToAccount string `gorm:"column:to_account;type:varchar(64);index;not null" json:"to_account"`
	// 金额
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(32,8);not null" json:"amount"`
	// 流水类型（DEPOSIT, WITHDRAW, PREMIUM, LIQUIDITY, PAYOUT）
	Kind string `gorm:"column:kind;type:varchar(20);not null" json:"kind"`
}

// TableName 表名
func (Transfer) TableName() string { return "asset_transfers" }

// AccountRepository 账户仓储接口
type AccountRepository interface {
	// Get 根据账户 ID 获取账户
	Get(ctx context.Context, accountID string) (*Account, error)
	// GetForUpdate 加行锁读取账户，持锁到事务结束；余额的读改写必须走该方法
	GetForUpdate(ctx context.Context, accountID string) (*Account, error)
	// Save 保存或更新账户
	Save(ctx context.Context, account *Account) error
	// WithTx 在事务中执行 fn
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// TransferRepository 流水仓储接口
type TransferRepository interface {
	// Save 保存流水记录
	Save(ctx context.Context, transfer *Transfer) error
	// ListByAccount 获取某账户的流水分页列表
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*Transfer, int64, error)
}
