package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/optionamm/internal/optionbook/domain"
	pkgdb "github.com/wyfcoding/optionamm/pkg/db"
	"gorm.io/gorm"
)

// OptionRepo 期权仓储的 MySQL 实现
type OptionRepo struct {
	db *pkgdb.DB
}

// NewOptionRepo 创建期权仓储
func NewOptionRepo(db *pkgdb.DB) *OptionRepo {
	return &OptionRepo{db: db}
}

func (r *OptionRepo) Create(ctx context.Context, option *domain.Option) error {
	return pkgdb.FromContext(ctx, r.db.DB).Create(option).Error
}

func (r *OptionRepo) Get(ctx context.Context, optionID string) (*domain.Option, error) {
	var opt domain.Option
	err := pkgdb.FromContext(ctx, r.db.DB).Where("option_id = ?", optionID).First(&opt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &opt, nil
}

func (r *OptionRepo) Update(ctx context.Context, option *domain.Option) error {
	return pkgdb.FromContext(ctx, r.db.DB).Save(option).Error
}

func (r *OptionRepo) List(ctx context.Context, limit, offset int) ([]*domain.Option, int64, error) {
	var (
		options []*domain.Option
		total   int64
	)
	q := pkgdb.FromContext(ctx, r.db.DB).Model(&domain.Option{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&options).Error
	return options, total, err
}

func (r *OptionRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

// HoldingRepo 持仓仓储的 MySQL 实现
type HoldingRepo struct {
	db *pkgdb.DB
}

// NewHoldingRepo 创建持仓仓储
func NewHoldingRepo(db *pkgdb.DB) *HoldingRepo {
	return &HoldingRepo{db: db}
}

func (r *HoldingRepo) Get(ctx context.Context, optionID, holder string) (*domain.Holding, error) {
	var holding domain.Holding
	err := pkgdb.FromContext(ctx, r.db.DB).
		Where("option_id = ? AND holder = ?", optionID, holder).
		First(&holding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNoHoldings
	}
	if err != nil {
		return nil, err
	}
	return &holding, nil
}

func (r *HoldingRepo) Save(ctx context.Context, holding *domain.Holding) error {
	return pkgdb.FromContext(ctx, r.db.DB).Save(holding).Error
}

func (r *HoldingRepo) ListByOption(ctx context.Context, optionID string) ([]*domain.Holding, error) {
	var holdings []*domain.Holding
	err := pkgdb.FromContext(ctx, r.db.DB).
		Where("option_id = ? AND lots > 0", optionID).
		Find(&holdings).Error
	return holdings, err
}

func (r *HoldingRepo) ListByHolder(ctx context.Context, holder string) ([]*domain.Holding, error) {
	var holdings []*domain.Holding
	err := pkgdb.FromContext(ctx, r.db.DB).
		Where("holder = ? AND lots > 0", holder).
		Find(&holdings).Error
	return holdings, err
}

func (r *HoldingRepo) SumLots(ctx context.Context, optionID string) (uint64, error) {
	var total uint64
	err := pkgdb.FromContext(ctx, r.db.DB).Model(&domain.Holding{}).
		Where("option_id = ?", optionID).
		Select("COALESCE(SUM(lots), 0)").
		Scan(&total).Error
	return total, err
}
