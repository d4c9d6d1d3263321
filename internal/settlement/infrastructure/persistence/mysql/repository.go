package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/optionamm/internal/settlement/domain"
	pkgdb "github.com/wyfcoding/optionamm/pkg/db"
	"gorm.io/gorm"
)

// SettlementRepo 结算记录仓储的 MySQL 实现
type SettlementRepo struct {
	db *pkgdb.DB
}

// NewSettlementRepo 创建结算记录仓储
func NewSettlementRepo(db *pkgdb.DB) *SettlementRepo {
	return &SettlementRepo{db: db}
}

func (r *SettlementRepo) Save(ctx context.Context, record *domain.SettlementRecord) error {
	return pkgdb.FromContext(ctx, r.db.DB).Create(record).Error
}

func (r *SettlementRepo) Get(ctx context.Context, settlementID string) (*domain.SettlementRecord, error) {
	var record domain.SettlementRecord
	err := pkgdb.FromContext(ctx, r.db.DB).Where("settlement_id = ?", settlementID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSettlementNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *SettlementRepo) ListByOption(ctx context.Context, optionID string) ([]*domain.SettlementRecord, error) {
	var records []*domain.SettlementRecord
	err := pkgdb.FromContext(ctx, r.db.DB).
		Where("option_id = ?", optionID).
		Order("id DESC").
		Find(&records).Error
	return records, err
}

func (r *SettlementRepo) ListByHolder(ctx context.Context, holder string) ([]*domain.SettlementRecord, error) {
	var records []*domain.SettlementRecord
	err := pkgdb.FromContext(ctx, r.db.DB).
		Where("holder = ?", holder).
		Order("id DESC").
		Find(&records).Error
	return records, err
}

func (r *SettlementRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}
