package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/optionamm/internal/asset/domain"
	pkgdb "github.com/wyfcoding/optionamm/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepo 账户仓储的 MySQL 实现
type AccountRepo struct {
	db *pkgdb.DB
}

// NewAccountRepo 创建账户仓储
func NewAccountRepo(db *pkgdb.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	var acct domain.Account
	err := pkgdb.FromContext(ctx, r.db.DB).Where("account_id = ?", accountID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// GetForUpdate 以 SELECT ... FOR UPDATE 读取账户行，行锁持有到事务提交
func (r *AccountRepo) GetForUpdate(ctx context.Context, accountID string) (*domain.Account, error) {
	var acct domain.Account
	err := pkgdb.FromContext(ctx, r.db.DB).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ?", accountID).
		First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *AccountRepo) Save(ctx context.Context, account *domain.Account) error {
	return pkgdb.FromContext(ctx, r.db.DB).Save(account).Error
}

func (r *AccountRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

// TransferRepo 流水仓储的 MySQL 实现
type TransferRepo struct {
	db *pkgdb.DB
}

// NewTransferRepo 创建流水仓储
func NewTransferRepo(db *pkgdb.DB) *TransferRepo {
	return &TransferRepo{db: db}
}

func (r *TransferRepo) Save(ctx context.Context, transfer *domain.Transfer) error {
	return pkgdb.FromContext(ctx, r.db.DB).Create(transfer).Error
}

func (r *TransferRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transfer, int64, error) {
	var (
		transfers []*domain.Transfer
		total     int64
	)
	q := pkgdb.FromContext(ctx, r.db.DB).Model(&domain.Transfer{}).
		Where("from_account = ? OR to_account = ?", accountID, accountID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&transfers).Error
	return transfers, total, err
}
