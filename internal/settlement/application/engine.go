package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	obdomain "github.com/wyfcoding/optionamm/internal/optionbook/domain"
	"github.com/wyfcoding/optionamm/internal/settlement/domain"
	"github.com/wyfcoding/optionamm/pkg/lock"
	"github.com/wyfcoding/optionamm/pkg/metrics"
)

// OptionReader 期权读取接口，由期权簿上下文实现
type OptionReader interface {
	Get(ctx context.Context, optionID string) (*obdomain.Option, error)
}

// HoldingLedger 持仓账本接口，由期权簿上下文实现
type HoldingLedger interface {
	Get(ctx context.Context, optionID, holder string) (*obdomain.Holding, error)
	Save(ctx context.Context, holding *obdomain.Holding) error
}

// PoolReserver 池资金划出接口，由流动性上下文实现
// 在调用方的环境事务内执行，余量不足时返回流动性上下文的偿付能力错误
type PoolReserver interface {
	ReservePayout(ctx context.Context, amount decimal.Decimal) error
}

// FundsTransferrer 资金划转接口，由资产上下文实现
type FundsTransferrer interface {
	TransferOut(ctx context.Context, to string, amount decimal.Decimal, kind string) error
}

// PriceOracle 标的价格预言机接口
type PriceOracle interface {
	LatestPrice(ctx context.Context) (decimal.Decimal, error)
}

// Engine 结算引擎
// 逐 (期权, 持有人) 结算：价内时先过池偿付能力闸门再支付，无论价内价外持仓都清零
type Engine struct {
	records  domain.SettlementRepository
	options  OptionReader
	holdings HoldingLedger
	pool     PoolReserver
	funds    FundsTransferrer
	oracle   PriceOracle
	events   domain.EventPublisher
	locks    *lock.KeyedMutex
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine 创建结算引擎
func NewEngine(
	records domain.SettlementRepository,
	options OptionReader,
	holdings HoldingLedger,
	pool PoolReserver,
	funds FundsTransferrer,
	oracle PriceOracle,
	events domain.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		records:  records,
		options:  options,
		holdings: holdings,
		pool:     pool,
		funds:    funds,
		oracle:   oracle,
		events:   events,
		locks:    lock.NewKeyedMutex(),
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// SettleOption 结算某持有人在某期权上的全部持仓
// 判定、支付、清仓与记录在同一事务内完成；重复结算因持仓已清零而失败
func (e *Engine) SettleOption(ctx context.Context, optionID, holder string) (*domain.SettlementRecord, error) {
	var record *domain.SettlementRecord
	err := e.locks.WithLock("settle:"+optionID+":"+holder, func() error {
		return e.records.WithTx(ctx, func(txCtx context.Context) error {
			opt, err := e.options.Get(txCtx, optionID)
			if err != nil {
				return err
			}
			if !opt.Expired(e.now()) {
				return domain.ErrNotYetExpired
			}

			holding, err := e.holdings.Get(txCtx, optionID, holder)
			if errors.Is(err, obdomain.ErrNoHoldings) {
				return domain.ErrNoHoldings
			}
			if err != nil {
				return err
			}
			if holding.Lots == 0 {
				return domain.ErrNoHoldings
			}

			price, err := e.oracle.LatestPrice(txCtx)
			if err != nil {
				return fmt.Errorf("oracle price: %w", err)
			}

			itm := domain.InTheMoney(opt.IsCall, price, opt.StrikePrice)
			payout := decimal.Zero
			if itm {
				payout = domain.PayoutAmount(price, opt.StrikePrice, holding.Lots)
				if err := e.pool.ReservePayout(txCtx, payout); err != nil {
					return err
				}
				if err := e.funds.TransferOut(txCtx, holder, payout, "PAYOUT"); err != nil {
					return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
				}
			}

			lots := holding.Lots
			holding.Lots = 0
			if err := e.holdings.Save(txCtx, holding); err != nil {
				return err
			}

			record = &domain.SettlementRecord{
				SettlementID: uuid.New().String(),
				OptionID:     optionID,
				Holder:       holder,
				Lots:         lots,
				OraclePrice:  price,
				StrikePrice:  opt.StrikePrice,
				IsCall:       opt.IsCall,
				InTheMoney:   itm,
				Payout:       payout,
				SettledAt:    e.now(),
			}
			return e.records.Save(txCtx, record)
		})
	})
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.SettlementsTotal.WithLabelValues(fmt.Sprintf("%t", record.InTheMoney)).Inc()
		v, _ := record.Payout.Float64()
		e.metrics.PayoutVolume.Add(v)
	}
	e.publishSettled(ctx, record)
	e.logger.InfoContext(ctx, "option settled",
		"option_id", optionID, "holder", holder, "lots", record.Lots,
		"in_the_money", record.InTheMoney, "payout", record.Payout, "oracle_price", record.OraclePrice)
	return record, nil
}

// GetSettlement 查询结算记录
func (e *Engine) GetSettlement(ctx context.Context, settlementID string) (*domain.SettlementRecord, error) {
	return e.records.Get(ctx, settlementID)
}

// OptionSettlements 列出某期权的结算记录
func (e *Engine) OptionSettlements(ctx context.Context, optionID string) ([]*domain.SettlementRecord, error) {
	return e.records.ListByOption(ctx, optionID)
}

// HolderSettlements 列出某持有人的结算记录
func (e *Engine) HolderSettlements(ctx context.Context, holder string) ([]*domain.SettlementRecord, error) {
	return e.records.ListByHolder(ctx, holder)
}

func (e *Engine) publishSettled(ctx context.Context, record *domain.SettlementRecord) {
	if e.events == nil {
		return
	}
	event := &domain.OptionSettledEvent{
		SettlementID: record.SettlementID,
		OptionID:     record.OptionID,
		Holder:       record.Holder,
		Lots:         record.Lots,
		OraclePrice:  record.OraclePrice,
		StrikePrice:  record.StrikePrice,
		InTheMoney:   record.InTheMoney,
		Payout:       record.Payout,
		SettledAt:    record.SettledAt,
	}
	if err := e.events.PublishOptionSettled(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "failed to publish option settled event", "settlement_id", record.SettlementID, "error", err)
	}
}
