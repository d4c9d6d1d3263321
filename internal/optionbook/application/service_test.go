package application

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/optionamm/internal/optionbook/domain"
)

// fakeStore 期权与持仓的内存存储，WithTx 失败时恢复快照以模拟回滚
type fakeStore struct {
	options  map[string]*domain.Option
	holdings map[string]*domain.Holding // key: optionID + "/" + holder
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		options:  make(map[string]*domain.Option),
		holdings: make(map[string]*domain.Holding),
	}
}

func (s *fakeStore) snapshot() (map[string]*domain.Option, map[string]*domain.Holding) {
	opts := make(map[string]*domain.Option, len(s.options))
	for k, v := range s.options {
		c := *v
		opts[k] = &c
	}
	holds := make(map[string]*domain.Holding, len(s.holdings))
	for k, v := range s.holdings {
		c := *v
		holds[k] = &c
	}
	return opts, holds
}

type fakeOptionRepo struct{ store *fakeStore }

func (r *fakeOptionRepo) Create(_ context.Context, o *domain.Option) error {
	c := *o
	r.store.options[o.OptionID] = &c
	return nil
}

func (r *fakeOptionRepo) Get(_ context.Context, optionID string) (*domain.Option, error) {
	o, ok := r.store.options[optionID]
	if !ok {
		return nil, domain.ErrOptionNotFound
	}
	c := *o
	return &c, nil
}

func (r *fakeOptionRepo) Update(_ context.Context, o *domain.Option) error {
	c := *o
	r.store.options[o.OptionID] = &c
	return nil
}

func (r *fakeOptionRepo) List(_ context.Context, _, _ int) ([]*domain.Option, int64, error) {
	out := make([]*domain.Option, 0, len(r.store.options))
	for _, o := range r.store.options {
		c := *o
		out = append(out, &c)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOptionRepo) WithTx(ctx context.Context, fn func(context.Context) error) error {
	opts, holds := r.store.snapshot()
	if err := fn(ctx); err != nil {
		r.store.options = opts
		r.store.holdings = holds
		return err
	}
	return nil
}

type fakeHoldingRepo struct{ store *fakeStore }

func (r *fakeHoldingRepo) Get(_ context.Context, optionID, holder string) (*domain.Holding, error) {
	h, ok := r.store.holdings[optionID+"/"+holder]
	if !ok {
		return nil, domain.ErrNoHoldings
	}
	c := *h
	return &c, nil
}

func (r *fakeHoldingRepo) Save(_ context.Context, h *domain.Holding) error {
	c := *h
	r.store.holdings[h.OptionID+"/"+h.Holder] = &c
	return nil
}

func (r *fakeHoldingRepo) ListByOption(_ context.Context, optionID string) ([]*domain.Holding, error) {
	var out []*domain.Holding
	for _, h := range r.store.holdings {
		if h.OptionID == optionID && h.Lots > 0 {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeHoldingRepo) ListByHolder(_ context.Context, holder string) ([]*domain.Holding, error) {
	var out []*domain.Holding
	for _, h := range r.store.holdings {
		if h.Holder == holder && h.Lots > 0 {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeHoldingRepo) SumLots(_ context.Context, optionID string) (uint64, error) {
	var total uint64
	for _, h := range r.store.holdings {
		if h.OptionID == optionID {
			total += h.Lots
		}
	}
	return total, nil
}

type fakeFunds struct {
	transfers []fakeTransfer
	failWith  error
}

type fakeTransfer struct {
	from   string
	amount decimal.Decimal
	kind   string
}

func (f *fakeFunds) TransferIn(_ context.Context, from string, amount decimal.Decimal, kind string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.transfers = append(f.transfers, fakeTransfer{from: from, amount: amount, kind: kind})
	return nil
}

type fakePublisher struct {
	created   []*domain.OptionCreatedEvent
	purchased []*domain.OptionPurchasedEvent
}

func (p *fakePublisher) PublishOptionCreated(_ context.Context, e *domain.OptionCreatedEvent) error {
	p.created = append(p.created, e)
	return nil
}

func (p *fakePublisher) PublishOptionPurchased(_ context.Context, e *domain.OptionPurchasedEvent) error {
	p.purchased = append(p.purchased, e)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeFunds, *fakePublisher) {
	t.Helper()
	store := newFakeStore()
	funds := &fakeFunds{}
	pub := &fakePublisher{}
	svc := NewService(
		&fakeOptionRepo{store: store},
		&fakeHoldingRepo{store: store},
		funds,
		pub,
		nil,
		slog.Default(),
	)
	return svc, store, funds, pub
}

func createOption(t *testing.T, svc *Service, lots uint64, premium int64) *domain.Option {
	t.Helper()
	opt, err := svc.CreateOption(context.Background(), CreateOptionRequest{
		StrikePrice: decimal.NewFromInt(5000),
		LotSize:     lots,
		Premium:     decimal.NewFromInt(premium),
		Expiry:      time.Now().Add(24 * time.Hour),
		IsCall:      true,
		Creator:     "alice",
	})
	require.NoError(t, err)
	return opt
}

func TestCreateOption(t *testing.T) {
	svc, store, _, pub := newTestService(t)

	opt := createOption(t, svc, 100, 10)

	stored := store.options[opt.OptionID]
	require.NotNil(t, stored)
	assert.True(t, decimal.NewFromInt(1000).Equal(stored.K))
	require.Len(t, pub.created, 1)
	assert.Equal(t, opt.OptionID, pub.created[0].OptionID)
}

func TestCreateOptionRejectsPastExpiry(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.CreateOption(context.Background(), CreateOptionRequest{
		StrikePrice: decimal.NewFromInt(5000),
		LotSize:     10,
		Premium:     decimal.NewFromInt(10),
		Expiry:      time.Now().Add(-time.Hour),
		IsCall:      true,
		Creator:     "alice",
	})
	assert.ErrorIs(t, err, domain.ErrOptionExpired)
}

func TestPurchaseOption(t *testing.T) {
	svc, store, funds, pub := newTestService(t)
	opt := createOption(t, svc, 100, 10)

	result, err := svc.PurchaseOption(context.Background(), opt.OptionID, "bob", 10)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(100).Equal(result.Cost))
	assert.Equal(t, uint64(90), result.Option.LotSize)
	assert.True(t, decimal.NewFromInt(11).Equal(result.Option.Premium))

	// 权利金入池
	require.Len(t, funds.transfers, 1)
	assert.Equal(t, "bob", funds.transfers[0].from)
	assert.True(t, decimal.NewFromInt(100).Equal(funds.transfers[0].amount))
	assert.Equal(t, "PREMIUM", funds.transfers[0].kind)

	// 持仓登记
	h := store.holdings[opt.OptionID+"/bob"]
	require.NotNil(t, h)
	assert.Equal(t, uint64(10), h.Lots)

	require.Len(t, pub.purchased, 1)
	assert.Equal(t, uint64(10), pub.purchased[0].Lots)
}

func TestPurchaseMergesHolding(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	opt := createOption(t, svc, 100, 10)

	_, err := svc.PurchaseOption(context.Background(), opt.OptionID, "bob", 10)
	require.NoError(t, err)
	_, err = svc.PurchaseOption(context.Background(), opt.OptionID, "bob", 5)
	require.NoError(t, err)

	h := store.holdings[opt.OptionID+"/bob"]
	require.NotNil(t, h)
	assert.Equal(t, uint64(15), h.Lots)
}

func TestPurchaseTransferFailureRollsBack(t *testing.T) {
	svc, store, funds, pub := newTestService(t)
	opt := createOption(t, svc, 100, 10)
	funds.failWith = errors.New("insufficient balance")

	_, err := svc.PurchaseOption(context.Background(), opt.OptionID, "bob", 10)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	// 扣款失败时曲线与持仓均保持原状
	stored := store.options[opt.OptionID]
	assert.Equal(t, uint64(100), stored.LotSize)
	assert.True(t, decimal.NewFromInt(10).Equal(stored.Premium))
	assert.Nil(t, store.holdings[opt.OptionID+"/bob"])
	assert.Empty(t, pub.purchased)
}

func TestPurchaseUnknownOption(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.PurchaseOption(context.Background(), "missing", "bob", 1)
	assert.ErrorIs(t, err, domain.ErrOptionNotFound)
}

func TestPurchaseConservesLots(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	opt := createOption(t, svc, 100, 10)

	buyers := map[string]uint64{"bob": 30, "carol": 25, "dave": 45}
	for buyer, lots := range buyers {
		_, err := svc.PurchaseOption(context.Background(), opt.OptionID, buyer, lots)
		require.NoError(t, err)
	}

	stored, err := svc.GetOption(context.Background(), opt.OptionID)
	require.NoError(t, err)
	assert.True(t, stored.Depleted())

	var held uint64
	for buyer := range buyers {
		holdings, err := svc.Holdings(context.Background(), buyer)
		require.NoError(t, err)
		for _, h := range holdings {
			held += h.Lots
		}
	}
	// 已售手数与持仓总数守恒
	assert.Equal(t, stored.InitialLots, held+stored.LotSize)
}

func TestQuoteDepletedOption(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	opt := createOption(t, svc, 10, 10)

	_, err := svc.PurchaseOption(context.Background(), opt.OptionID, "bob", 10)
	require.NoError(t, err)

	_, err = svc.Quote(context.Background(), opt.OptionID)
	assert.ErrorIs(t, err, domain.ErrOptionDepleted)
}
