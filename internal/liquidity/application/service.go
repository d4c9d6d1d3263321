package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionamm/internal/liquidity/domain"
	"github.com/wyfcoding/optionamm/pkg/lock"
	"github.com/wyfcoding/optionamm/pkg/metrics"
)

// poolLockKey 池总额为全局单行，所有出资与赎回串行执行
const poolLockKey = "liquidity:pool"

// FundsTransferrer 资金划转接口，由资产上下文实现
type FundsTransferrer interface {
	TransferIn(ctx context.Context, from string, amount decimal.Decimal, kind string) error
	TransferOut(ctx context.Context, to string, amount decimal.Decimal, kind string) error
}

// Service 流动性池应用服务
type Service struct {
	pool          domain.PoolRepository
	contributions domain.ContributionRepository
	funds         FundsTransferrer
	events        domain.EventPublisher
	locks         *lock.KeyedMutex
	metrics       *metrics.Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// NewService 创建流动性池应用服务
func NewService(
	pool domain.PoolRepository,
	contributions domain.ContributionRepository,
	funds FundsTransferrer,
	events domain.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		pool:          pool,
		contributions: contributions,
		funds:         funds,
		events:        events,
		locks:         lock.NewKeyedMutex(),
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

// AddLiquidity 出资人注入流动性
// 资金划转与账目更新在同一事务内完成
func (s *Service) AddLiquidity(ctx context.Context, provider string, amount decimal.Decimal) (*domain.Pool, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	var pool *domain.Pool
	err := s.locks.WithLock(poolLockKey, func() error {
		return s.pool.WithTx(ctx, func(txCtx context.Context) error {
			p, err := s.pool.GetForUpdate(txCtx)
			if err != nil {
				return err
			}
			contrib, err := s.contributions.Get(txCtx, provider)
			if err != nil {
				return err
			}
			if err := s.funds.TransferIn(txCtx, provider, amount, "LIQUIDITY"); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
			}
			if err := p.Add(amount); err != nil {
				return err
			}
			if err := contrib.Add(amount); err != nil {
				return err
			}
			if err := s.pool.Save(txCtx, p); err != nil {
				return err
			}
			if err := s.contributions.Save(txCtx, contrib); err != nil {
				return err
			}
			pool = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.observePool(pool)
	if s.metrics != nil {
		v, _ := amount.Float64()
		s.metrics.LiquidityAdded.Add(v)
	}
	s.publishAdded(ctx, provider, amount, pool)
	s.logger.InfoContext(ctx, "liquidity added", "provider", provider, "amount", amount, "pool", pool.TotalLiquidity)
	return pool, nil
}

// RemoveLiquidity 出资人赎回流动性
// 赎回额不得超过个人出资余额，且受池偿付能力闸门约束
func (s *Service) RemoveLiquidity(ctx context.Context, provider string, amount decimal.Decimal) (*domain.Pool, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	var pool *domain.Pool
	err := s.locks.WithLock(poolLockKey, func() error {
		return s.pool.WithTx(ctx, func(txCtx context.Context) error {
			p, err := s.pool.GetForUpdate(txCtx)
			if err != nil {
				return err
			}
			contrib, err := s.contributions.Get(txCtx, provider)
			if err != nil {
				return err
			}
			if err := contrib.Remove(amount); err != nil {
				return err
			}
			if err := p.Reserve(amount); err != nil {
				return err
			}
			if err := s.funds.TransferOut(txCtx, provider, amount, "LIQUIDITY"); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
			}
			if err := s.pool.Save(txCtx, p); err != nil {
				return err
			}
			if err := s.contributions.Save(txCtx, contrib); err != nil {
				return err
			}
			pool = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.observePool(pool)
	if s.metrics != nil {
		v, _ := amount.Float64()
		s.metrics.LiquidityRemoved.Add(v)
	}
	s.publishRemoved(ctx, provider, amount, pool)
	s.logger.InfoContext(ctx, "liquidity removed", "provider", provider, "amount", amount, "pool", pool.TotalLiquidity)
	return pool, nil
}

// ReservePayout 为结算支付划出池资金，在调用方的环境事务内执行
// 池行加锁读取，并发结算对偿付能力闸门的读改写由行锁串行化
// 余量不足时返回 ErrInsufficientPoolLiquidity，由调用方回滚整个结算
func (s *Service) ReservePayout(ctx context.Context, amount decimal.Decimal) error {
	p, err := s.pool.GetForUpdate(ctx)
	if err != nil {
		return err
	}
	if err := p.Reserve(amount); err != nil {
		return err
	}
	if err := s.pool.Save(ctx, p); err != nil {
		return err
	}
	s.observePool(p)
	return nil
}

// GetPool 查询池状态
func (s *Service) GetPool(ctx context.Context) (*domain.Pool, error) {
	return s.pool.Get(ctx)
}

// GetContribution 查询出资人的出资余额
func (s *Service) GetContribution(ctx context.Context, provider string) (*domain.Contribution, error) {
	return s.contributions.Get(ctx, provider)
}

// ListContributions 列出全部出资记录
func (s *Service) ListContributions(ctx context.Context) ([]*domain.Contribution, error) {
	return s.contributions.List(ctx)
}

func (s *Service) observePool(pool *domain.Pool) {
	if s.metrics == nil || pool == nil {
		return
	}
	v, _ := pool.TotalLiquidity.Float64()
	s.metrics.PoolLiquidity.Set(v)
}

func (s *Service) publishAdded(ctx context.Context, provider string, amount decimal.Decimal, pool *domain.Pool) {
	if s.events == nil {
		return
	}
	event := &domain.LiquidityAddedEvent{
		Provider:      provider,
		Amount:        amount,
		PoolLiquidity: pool.TotalLiquidity,
		OccurredAt:    s.now(),
	}
	if err := s.events.PublishLiquidityAdded(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish liquidity added event", "provider", provider, "error", err)
	}
}

func (s *Service) publishRemoved(ctx context.Context, provider string, amount decimal.Decimal, pool *domain.Pool) {
	if s.events == nil {
		return
	}
	event := &domain.LiquidityRemovedEvent{
		Provider:      provider,
		Amount:        amount,
		PoolLiquidity: pool.TotalLiquidity,
		OccurredAt:    s.now(),
	}
	if err := s.events.PublishLiquidityRemoved(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish liquidity removed event", "provider", provider, "error", err)
	}
}
