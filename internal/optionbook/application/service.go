package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionamm/internal/optionbook/domain"
	"github.com/wyfcoding/optionamm/pkg/lock"
	"github.com/wyfcoding/optionamm/pkg/metrics"
)

// FundsTransferrer 资金划转接口，由资产上下文实现
// 划转在调用方的环境事务内执行，失败时整个事务回滚
type FundsTransferrer interface {
	TransferIn(ctx context.Context, from string, amount decimal.Decimal, kind string) error
}

// Service 期权簿应用服务
type Service struct {
	options  domain.OptionRepository
	holdings domain.HoldingRepository
	funds    FundsTransferrer
	events   domain.EventPublisher
	locks    *lock.KeyedMutex
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService 创建期权簿应用服务
func NewService(
	options domain.OptionRepository,
	holdings domain.HoldingRepository,
	funds FundsTransferrer,
	events domain.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		options:  options,
		holdings: holdings,
		funds:    funds,
		events:   events,
		locks:    lock.NewKeyedMutex(),
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateOptionRequest 创建期权请求
type CreateOptionRequest struct {
	StrikePrice decimal.Decimal
	LotSize     uint64
	Premium     decimal.Decimal
	Expiry      time.Time
	IsCall      bool
	Creator     string
}

// CreateOption 挂出新期权，创建时固定定价常数 k
func (s *Service) CreateOption(ctx context.Context, req CreateOptionRequest) (*domain.Option, error) {
	opt, err := domain.NewOption(uuid.New().String(), req.StrikePrice, req.LotSize, req.Premium, req.Expiry, req.IsCall, req.Creator)
	if err != nil {
		return nil, err
	}
	if opt.Expired(s.now()) {
		return nil, domain.ErrOptionExpired
	}
	if err := s.options.Create(ctx, opt); err != nil {
		return nil, fmt.Errorf("create option: %w", err)
	}

	if s.metrics != nil {
		s.metrics.OptionsCreated.Inc()
	}
	s.publishCreated(ctx, opt)
	s.logger.InfoContext(ctx, "option created",
		"option_id", opt.OptionID, "strike", opt.StrikePrice, "lots", opt.LotSize,
		"premium", opt.Premium, "k", opt.K, "is_call", opt.IsCall)
	return opt, nil
}

// PurchaseResult 买入结果
type PurchaseResult struct {
	Option *domain.Option  `json:"option"`
	Lots   uint64          `json:"lots"`
	Cost   decimal.Decimal `json:"cost"`
}

// PurchaseOption 按当前权利金买入期权
// 扣款、重定价与持仓登记在同一事务内完成，任一步失败全部回滚
func (s *Service) PurchaseOption(ctx context.Context, optionID, buyer string, lots uint64) (*PurchaseResult, error) {
	var result *PurchaseResult
	err := s.locks.WithLock("option:"+optionID, func() error {
		return s.options.WithTx(ctx, func(txCtx context.Context) error {
			opt, err := s.options.Get(txCtx, optionID)
			if err != nil {
				return err
			}
			cost, err := opt.Purchase(lots, s.now())
			if err != nil {
				return err
			}
			if err := s.funds.TransferIn(txCtx, buyer, cost, "PREMIUM"); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
			}
			if err := s.options.Update(txCtx, opt); err != nil {
				return err
			}
			if err := s.recordHolding(txCtx, optionID, buyer, lots); err != nil {
				return err
			}
			result = &PurchaseResult{Option: opt, Lots: lots, Cost: cost}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OptionPurchases.Inc()
		s.metrics.LotsSold.Add(float64(lots))
		cost, _ := result.Cost.Float64()
		s.metrics.PremiumVolume.Add(cost)
	}
	s.publishPurchased(ctx, result, buyer)
	s.logger.InfoContext(ctx, "option purchased",
		"option_id", optionID, "buyer", buyer, "lots", lots,
		"cost", result.Cost, "remaining", result.Option.LotSize, "premium", result.Option.Premium)
	return result, nil
}

// GetOption 查询期权
func (s *Service) GetOption(ctx context.Context, optionID string) (*domain.Option, error) {
	return s.options.Get(ctx, optionID)
}

// Quote 查询当前单手权利金
func (s *Service) Quote(ctx context.Context, optionID string) (decimal.Decimal, error) {
	opt, err := s.options.Get(ctx, optionID)
	if err != nil {
		return decimal.Zero, err
	}
	return opt.CurrentPremium()
}

// ListOptions 分页列出期权
func (s *Service) ListOptions(ctx context.Context, limit, offset int) ([]*domain.Option, int64, error) {
	return s.options.List(ctx, limit, offset)
}

// Holdings 列出某持有人的全部持仓
func (s *Service) Holdings(ctx context.Context, holder string) ([]*domain.Holding, error) {
	return s.holdings.ListByHolder(ctx, holder)
}

// OptionHoldings 列出某期权的全部持仓
func (s *Service) OptionHoldings(ctx context.Context, optionID string) ([]*domain.Holding, error) {
	if _, err := s.options.Get(ctx, optionID); err != nil {
		return nil, err
	}
	return s.holdings.ListByOption(ctx, optionID)
}

func (s *Service) recordHolding(ctx context.Context, optionID, buyer string, lots uint64) error {
	holding, err := s.holdings.Get(ctx, optionID, buyer)
	if err == nil {
		holding.Lots += lots
		return s.holdings.Save(ctx, holding)
	}
	if !errors.Is(err, domain.ErrNoHoldings) {
		return err
	}
	return s.holdings.Save(ctx, &domain.Holding{OptionID: optionID, Holder: buyer, Lots: lots})
}

func (s *Service) publishCreated(ctx context.Context, opt *domain.Option) {
	if s.events == nil {
		return
	}
	event := &domain.OptionCreatedEvent{
		OptionID:    opt.OptionID,
		StrikePrice: opt.StrikePrice,
		LotSize:     opt.LotSize,
		Premium:     opt.Premium,
		K:           opt.K,
		Expiry:      opt.Expiry,
		IsCall:      opt.IsCall,
		Creator:     opt.Creator,
		CreatedAt:   s.now(),
	}
	if err := s.events.PublishOptionCreated(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish option created event", "option_id", opt.OptionID, "error", err)
	}
}

func (s *Service) publishPurchased(ctx context.Context, result *PurchaseResult, buyer string) {
	if s.events == nil {
		return
	}
	event := &domain.OptionPurchasedEvent{
		OptionID:      result.Option.OptionID,
		Buyer:         buyer,
		Lots:          result.Lots,
		Cost:          result.Cost,
		RemainingLots: result.Option.LotSize,
		NewPremium:    result.Option.Premium,
		Depleted:      result.Option.Depleted(),
		PurchasedAt:   s.now(),
	}
	if err := s.events.PublishOptionPurchased(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish option purchased event", "option_id", result.Option.OptionID, "error", err)
	}
}
