package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionamm/internal/asset/domain"
)

// Service 结算资产应用服务
// 实现期权、流动性与结算上下文依赖的资金划转接口，池资金集中在 poolAccountID 账户
type Service struct {
	accounts  domain.AccountRepository
	transfers domain.TransferRepository
	poolAcct  string
	logger    *slog.Logger
}

// NewService 创建结算资产应用服务
func NewService(accounts domain.AccountRepository, transfers domain.TransferRepository, poolAccountID string, logger *slog.Logger) *Service {
	return &Service{
		accounts:  accounts,
		transfers: transfers,
		poolAcct:  poolAccountID,
		logger:    logger,
	}
}

// PoolAccountID 池资金账户 ID
func (s *Service) PoolAccountID() string { return s.poolAcct }

// Deposit 外部入金（执行环境边界，充值结算货币）
func (s *Service) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	err := s.accounts.WithTx(ctx, func(txCtx context.Context) error {
		acct, err := s.getOrCreate(txCtx, accountID)
		if err != nil {
			return err
		}
		if err := acct.Credit(amount); err != nil {
			return err
		}
		if err := s.accounts.Save(txCtx, acct); err != nil {
			return err
		}
		return s.journal(txCtx, "EXTERNAL", accountID, amount, "DEPOSIT")
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "deposit completed", "account", accountID, "amount", amount)
	return nil
}

// Withdraw 外部出金
func (s *Service) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) error {
	err := s.accounts.WithTx(ctx, func(txCtx context.Context) error {
		acct, err := s.accounts.GetForUpdate(txCtx, accountID)
		if err != nil {
			return err
		}
		if err := acct.Debit(amount); err != nil {
			return err
		}
		if err := s.accounts.Save(txCtx, acct); err != nil {
			return err
		}
		return s.journal(txCtx, accountID, "EXTERNAL", amount, "WITHDRAW")
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "withdraw completed", "account", accountID, "amount", amount)
	return nil
}

// Balance 查询账户余额，账户不存在时视为零余额
func (s *Service) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acct, err := s.accounts.Get(ctx, accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

// Transfers 查询账户流水
func (s *Service) Transfers(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transfer, int64, error) {
	return s.transfers.ListByAccount(ctx, accountID, limit, offset)
}

// TransferIn 从调用方账户划转到池账户。
// 在调用方的环境事务内执行；任何失败（包括余额不足）都会使外层事务回滚。
func (s *Service) TransferIn(ctx context.Context, from string, amount decimal.Decimal, kind string) error {
	return s.move(ctx, from, s.poolAcct, amount, kind)
}

// TransferOut 从池账户划转到调用方账户
func (s *Service) TransferOut(ctx context.Context, to string, amount decimal.Decimal, kind string) error {
	return s.move(ctx, s.poolAcct, to, amount, kind)
}

func (s *Service) move(ctx context.Context, from, to string, amount decimal.Decimal, kind string) error {
	if amount.IsZero() {
		// 零额划转不产生流水
		return nil
	}
	if amount.IsNegative() {
		return domain.ErrInvalidAmount
	}

	// 同一池账户会被购买、出资与结算并发读改写，必须在行锁下进行
	src, err := s.accounts.GetForUpdate(ctx, from)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("%w: debit account %s", domain.ErrInsufficientBalance, from)
		}
		return err
	}
	if err := src.Debit(amount); err != nil {
		return err
	}

	dst, err := s.getOrCreate(ctx, to)
	if err != nil {
		return err
	}
	if err := dst.Credit(amount); err != nil {
		return err
	}

	if err := s.accounts.Save(ctx, src); err != nil {
		return err
	}
	if err := s.accounts.Save(ctx, dst); err != nil {
		return err
	}
	return s.journal(ctx, from, to, amount, kind)
}

func (s *Service) getOrCreate(ctx context.Context, accountID string) (*domain.Account, error) {
	acct, err := s.accounts.GetForUpdate(ctx, accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.NewAccount(accountID), nil
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *Service) journal(ctx context.Context, from, to string, amount decimal.Decimal, kind string) error {
	return s.transfers.Save(ctx, &domain.Transfer{
		TransferID:  uuid.New().String(),
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		Kind:        kind,
	})
}
