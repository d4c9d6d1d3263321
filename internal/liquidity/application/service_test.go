package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/optionamm/internal/liquidity/domain"
)

// fakeStore 池与出资的内存存储，WithTx 失败时恢复快照以模拟回滚
type fakeStore struct {
	pool          domain.Pool
	contributions map[string]*domain.Contribution
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pool:          domain.Pool{TotalLiquidity: decimal.Zero},
		contributions: make(map[string]*domain.Contribution),
	}
}

type fakePoolRepo struct{ store *fakeStore }

func (r *fakePoolRepo) Get(_ context.Context) (*domain.Pool, error) {
	c := r.store.pool
	return &c, nil
}

func (r *fakePoolRepo) GetForUpdate(ctx context.Context) (*domain.Pool, error) {
	return r.Get(ctx)
}

func (r *fakePoolRepo) Save(_ context.Context, p *domain.Pool) error {
	r.store.pool = *p
	return nil
}

func (r *fakePoolRepo) WithTx(ctx context.Context, fn func(context.Context) error) error {
	pool := r.store.pool
	contribs := make(map[string]*domain.Contribution, len(r.store.contributions))
	for k, v := range r.store.contributions {
		c := *v
		contribs[k] = &c
	}
	if err := fn(ctx); err != nil {
		r.store.pool = pool
		r.store.contributions = contribs
		return err
	}
	return nil
}

type fakeContributionRepo struct{ store *fakeStore }

func (r *fakeContributionRepo) Get(_ context.Context, provider string) (*domain.Contribution, error) {
	if c, ok := r.store.contributions[provider]; ok {
		cp := *c
		return &cp, nil
	}
	return &domain.Contribution{Provider: provider, Amount: decimal.Zero}, nil
}

func (r *fakeContributionRepo) Save(_ context.Context, c *domain.Contribution) error {
	cp := *c
	r.store.contributions[c.Provider] = &cp
	return nil
}

func (r *fakeContributionRepo) List(_ context.Context) ([]*domain.Contribution, error) {
	var out []*domain.Contribution
	for _, c := range r.store.contributions {
		if c.Amount.IsPositive() {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeFunds struct {
	in, out  []decimal.Decimal
	failWith error
}

func (f *fakeFunds) TransferIn(_ context.Context, _ string, amount decimal.Decimal, _ string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.in = append(f.in, amount)
	return nil
}

func (f *fakeFunds) TransferOut(_ context.Context, _ string, amount decimal.Decimal, _ string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.out = append(f.out, amount)
	return nil
}

type fakePublisher struct {
	added   []*domain.LiquidityAddedEvent
	removed []*domain.LiquidityRemovedEvent
}

func (p *fakePublisher) PublishLiquidityAdded(_ context.Context, e *domain.LiquidityAddedEvent) error {
	p.added = append(p.added, e)
	return nil
}

func (p *fakePublisher) PublishLiquidityRemoved(_ context.Context, e *domain.LiquidityRemovedEvent) error {
	p.removed = append(p.removed, e)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeFunds, *fakePublisher) {
	t.Helper()
	store := newFakeStore()
	funds := &fakeFunds{}
	pub := &fakePublisher{}
	svc := NewService(
		&fakePoolRepo{store: store},
		&fakeContributionRepo{store: store},
		funds,
		pub,
		nil,
		slog.Default(),
	)
	return svc, store, funds, pub
}

func TestAddLiquidity(t *testing.T) {
	svc, store, funds, pub := newTestService(t)

	pool, err := svc.AddLiquidity(context.Background(), "alice", decimal.NewFromInt(1000))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(1000).Equal(pool.TotalLiquidity))
	assert.True(t, decimal.NewFromInt(1000).Equal(store.contributions["alice"].Amount))
	require.Len(t, funds.in, 1)
	require.Len(t, pub.added, 1)
}

func TestRemoveLiquidity(t *testing.T) {
	svc, store, funds, pub := newTestService(t)

	_, err := svc.AddLiquidity(context.Background(), "alice", decimal.NewFromInt(1000))
	require.NoError(t, err)

	pool, err := svc.RemoveLiquidity(context.Background(), "alice", decimal.NewFromInt(400))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(600).Equal(pool.TotalLiquidity))
	assert.True(t, decimal.NewFromInt(600).Equal(store.contributions["alice"].Amount))
	require.Len(t, funds.out, 1)
	assert.True(t, decimal.NewFromInt(400).Equal(funds.out[0]))
	require.Len(t, pub.removed, 1)
}

func TestRemoveBeyondContribution(t *testing.T) {
	svc, store, _, _ := newTestService(t)

	_, err := svc.AddLiquidity(context.Background(), "alice", decimal.NewFromInt(500))
	require.NoError(t, err)
	_, err = svc.AddLiquidity(context.Background(), "bob", decimal.NewFromInt(500))
	require.NoError(t, err)

	// 池里有 1000，但 alice 只能赎回自己出资的部分
	_, err = svc.RemoveLiquidity(context.Background(), "alice", decimal.NewFromInt(501))
	assert.ErrorIs(t, err, domain.ErrInsufficientContribution)
	assert.True(t, decimal.NewFromInt(1000).Equal(store.pool.TotalLiquidity))
}

func TestRemoveBeyondPoolLiquidity(t *testing.T) {
	svc, store, _, _ := newTestService(t)

	_, err := svc.AddLiquidity(context.Background(), "alice", decimal.NewFromInt(1000))
	require.NoError(t, err)

	// 结算支付抽走大半池资金后，出资余额可能超过池内余量
	require.NoError(t, svc.ReservePayout(context.Background(), decimal.NewFromInt(700)))

	_, err = svc.RemoveLiquidity(context.Background(), "alice", decimal.NewFromInt(400))
	assert.ErrorIs(t, err, domain.ErrInsufficientPoolLiquidity)
	assert.True(t, decimal.NewFromInt(300).Equal(store.pool.TotalLiquidity))
	assert.True(t, decimal.NewFromInt(1000).Equal(store.contributions["alice"].Amount))
}

func TestAddTransferFailureRollsBack(t *testing.T) {
	svc, store, funds, pub := newTestService(t)
	funds.failWith = errors.New("insufficient balance")

	_, err := svc.AddLiquidity(context.Background(), "alice", decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.True(t, store.pool.TotalLiquidity.IsZero())
	assert.Nil(t, store.contributions["alice"])
	assert.Empty(t, pub.added)
}

func TestReservePayout(t *testing.T) {
	svc, store, _, _ := newTestService(t)

	_, err := svc.AddLiquidity(context.Background(), "alice", decimal.NewFromInt(100))
	require.NoError(t, err)

	err = svc.ReservePayout(context.Background(), decimal.NewFromInt(250))
	assert.ErrorIs(t, err, domain.ErrInsufficientPoolLiquidity)

	require.NoError(t, svc.ReservePayout(context.Background(), decimal.NewFromInt(100)))
	assert.True(t, store.pool.TotalLiquidity.IsZero())
}

// lockingPoolRepo 模拟数据库行锁语义：GetForUpdate 持锁到事务结束，
// 写入先缓冲在事务内，提交时才落到已提交状态
type lockingPoolRepo struct {
	rowMu     sync.Mutex
	committed domain.Pool
}

type lockingTx struct {
	locked  bool
	pending *domain.Pool
}

type lockingTxKey struct{}

func (r *lockingPoolRepo) Get(ctx context.Context) (*domain.Pool, error) {
	if tx, ok := ctx.Value(lockingTxKey{}).(*lockingTx); ok && tx.pending != nil {
		c := *tx.pending
		return &c, nil
	}
	c := r.committed
	return &c, nil
}

func (r *lockingPoolRepo) GetForUpdate(ctx context.Context) (*domain.Pool, error) {
	tx, ok := ctx.Value(lockingTxKey{}).(*lockingTx)
	if ok && !tx.locked {
		r.rowMu.Lock()
		tx.locked = true
	}
	return r.Get(ctx)
}

func (r *lockingPoolRepo) Save(ctx context.Context, p *domain.Pool) error {
	if tx, ok := ctx.Value(lockingTxKey{}).(*lockingTx); ok {
		c := *p
		tx.pending = &c
		return nil
	}
	r.committed = *p
	return nil
}

func (r *lockingPoolRepo) WithTx(ctx context.Context, fn func(context.Context) error) error {
	tx := &lockingTx{}
	err := fn(context.WithValue(ctx, lockingTxKey{}, tx))
	if err == nil && tx.pending != nil {
		r.committed = *tx.pending
	}
	if tx.locked {
		r.rowMu.Unlock()
	}
	return err
}

func TestConcurrentPayoutReservationsRespectSolvency(t *testing.T) {
	repo := &lockingPoolRepo{committed: domain.Pool{TotalLiquidity: decimal.NewFromInt(100)}}
	svc := NewService(repo, &fakeContributionRepo{store: newFakeStore()}, &fakeFunds{}, nil, nil, slog.Default())

	// 两笔并发结算各自划出 80：池里只有 100，必须恰好放行一笔
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.WithTx(context.Background(), func(txCtx context.Context) error {
				return svc.ReservePayout(txCtx, decimal.NewFromInt(80))
			})
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, gated int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientPoolLiquidity):
			gated++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, gated)
	assert.True(t, decimal.NewFromInt(20).Equal(repo.committed.TotalLiquidity),
		"final pool = %s", repo.committed.TotalLiquidity)
}

func TestAddLiquidityConservation(t *testing.T) {
	svc, store, _, _ := newTestService(t)

	providers := map[string]int64{"alice": 300, "bob": 500, "carol": 200}
	for p, amt := range providers {
		_, err := svc.AddLiquidity(context.Background(), p, decimal.NewFromInt(amt))
		require.NoError(t, err)
	}

	// 池总额等于出资之和
	sum := decimal.Zero
	for _, c := range store.contributions {
		sum = sum.Add(c.Amount)
	}
	assert.True(t, sum.Equal(store.pool.TotalLiquidity))
}
