package mysql

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionamm/internal/liquidity/domain"
	pkgdb "github.com/wyfcoding/optionamm/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PoolRepo 池仓储的 MySQL 实现，维护全局单行
type PoolRepo struct {
	db *pkgdb.DB
}

// NewPoolRepo 创建池仓储
func NewPoolRepo(db *pkgdb.DB) *PoolRepo {
	return &PoolRepo{db: db}
}

func (r *PoolRepo) Get(ctx context.Context) (*domain.Pool, error) {
	var pool domain.Pool
	err := pkgdb.FromContext(ctx, r.db.DB).Order("id ASC").First(&pool).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pool = domain.Pool{TotalLiquidity: decimal.Zero}
		if err := pkgdb.FromContext(ctx, r.db.DB).Create(&pool).Error; err != nil {
			return nil, err
		}
		return &pool, nil
	}
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

// GetForUpdate 以 SELECT ... FOR UPDATE 读取池行，行锁持有到事务提交
func (r *PoolRepo) GetForUpdate(ctx context.Context) (*domain.Pool, error) {
	var pool domain.Pool
	err := pkgdb.FromContext(ctx, r.db.DB).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("id ASC").
		First(&pool).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pool = domain.Pool{TotalLiquidity: decimal.Zero}
		if err := pkgdb.FromContext(ctx, r.db.DB).Create(&pool).Error; err != nil {
			return nil, err
		}
		return &pool, nil
	}
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

func (r *PoolRepo) Save(ctx context.Context, pool *domain.Pool) error {
	return pkgdb.FromContext(ctx, r.db.DB).Save(pool).Error
}

func (r *PoolRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

// ContributionRepo 出资仓储的 MySQL 实现
type ContributionRepo struct {
	db *pkgdb.DB
}

// NewContributionRepo 创建出资仓储
func NewContributionRepo(db *pkgdb.DB) *ContributionRepo {
	return &ContributionRepo{db: db}
}

func (r *ContributionRepo) Get(ctx context.Context, provider string) (*domain.Contribution, error) {
	var contrib domain.Contribution
	err := pkgdb.FromContext(ctx, r.db.DB).Where("provider = ?", provider).First(&contrib).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.Contribution{Provider: provider, Amount: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return &contrib, nil
}

func (r *ContributionRepo) Save(ctx context.Context, contribution *domain.Contribution) error {
	return pkgdb.FromContext(ctx, r.db.DB).Save(contribution).Error
}

func (r *ContributionRepo) List(ctx context.Context) ([]*domain.Contribution, error) {
	var contributions []*domain.Contribution
	err := pkgdb.FromContext(ctx, r.db.DB).
		Where("amount > 0").
		Order("amount DESC").
		Find(&contributions).Error
	return contributions, err
}
