package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOption(t *testing.T, lots uint64, premium int64) *Option {
	t.Helper()
	opt, err := NewOption("opt-1", decimal.NewFromInt(5000), lots, decimal.NewFromInt(premium),
		time.Now().Add(24*time.Hour), true, "alice")
	require.NoError(t, err)
	return opt
}

func TestNewOptionFixesConstant(t *testing.T) {
	opt := newTestOption(t, 100, 10)

	assert.True(t, decimal.NewFromInt(1000).Equal(opt.K))
	assert.Equal(t, uint64(100), opt.LotSize)
	assert.Equal(t, uint64(100), opt.InitialLots)
	assert.True(t, decimal.NewFromInt(10).Equal(opt.Premium))
}

func TestNewOptionRejectsInvalidParams(t *testing.T) {
	expiry := time.Now().Add(time.Hour)

	_, err := NewOption("x", decimal.NewFromInt(100), 0, decimal.NewFromInt(10), expiry, true, "alice")
	assert.ErrorIs(t, err, ErrInvalidOptionParams)

	_, err = NewOption("x", decimal.Zero, 10, decimal.NewFromInt(10), expiry, true, "alice")
	assert.ErrorIs(t, err, ErrInvalidOptionParams)

	_, err = NewOption("x", decimal.NewFromInt(100), 10, decimal.Zero, expiry, false, "alice")
	assert.ErrorIs(t, err, ErrInvalidOptionParams)
}

func TestNewOptionOverflowGuard(t *testing.T) {
	huge := decimal.RequireFromString("18446744073709551615")
	_, err := NewOption("x", decimal.NewFromInt(100), 2, huge, time.Now().Add(time.Hour), true, "alice")
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestPurchaseRepricesAlongCurve(t *testing.T) {
	opt := newTestOption(t, 100, 10)
	now := time.Now()

	cost, err := opt.Purchase(10, now)
	require.NoError(t, err)

	// 成交价按买入前权利金计
	assert.True(t, decimal.NewFromInt(100).Equal(cost), "cost = %s", cost)
	assert.Equal(t, uint64(90), opt.LotSize)
	// premium = floor(1000 / 90) = 11
	assert.True(t, decimal.NewFromInt(11).Equal(opt.Premium), "premium = %s", opt.Premium)
}

func TestPurchaseSequenceFollowsFloorDivision(t *testing.T) {
	opt := newTestOption(t, 100, 10)
	now := time.Now()
	k := opt.K

	for _, lots := range []uint64{30, 25, 20, 15} {
		_, err := opt.Purchase(lots, now)
		require.NoError(t, err)

		want, _ := k.QuoRem(decimal.NewFromUint64(opt.LotSize), 0)
		assert.True(t, want.Equal(opt.Premium),
			"after selling down to %d lots premium = %s, want %s", opt.LotSize, opt.Premium, want)
	}
	assert.Equal(t, uint64(10), opt.LotSize)
}

func TestPurchaseHalfThenRest(t *testing.T) {
	opt := newTestOption(t, 100, 10)
	now := time.Now()

	cost, err := opt.Purchase(50, now)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(cost))
	assert.Equal(t, uint64(50), opt.LotSize)
	// premium = 1000 / 50 = 20
	assert.True(t, decimal.NewFromInt(20).Equal(opt.Premium))

	cost, err = opt.Purchase(50, now)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(cost))
	assert.True(t, opt.Depleted())
	assert.True(t, decimal.NewFromInt(20).Equal(opt.Premium))
}

func TestPurchaseInsufficientSupply(t *testing.T) {
	opt := newTestOption(t, 5, 10)

	_, err := opt.Purchase(6, time.Now())
	assert.ErrorIs(t, err, ErrInsufficientSupply)
	// 失败后状态不变
	assert.Equal(t, uint64(5), opt.LotSize)
	assert.True(t, decimal.NewFromInt(10).Equal(opt.Premium))
}

func TestPurchaseDepletesSupply(t *testing.T) {
	opt := newTestOption(t, 10, 10)
	now := time.Now()

	_, err := opt.Purchase(9, now)
	require.NoError(t, err)
	lastPremium := opt.Premium

	cost, err := opt.Purchase(1, now)
	require.NoError(t, err)
	assert.True(t, lastPremium.Equal(cost))
	assert.True(t, opt.Depleted())
	// 售罄后保留末次成交价，曲线不再重定价
	assert.True(t, lastPremium.Equal(opt.Premium))

	_, err = opt.CurrentPremium()
	assert.ErrorIs(t, err, ErrOptionDepleted)

	_, err = opt.Purchase(1, now)
	assert.ErrorIs(t, err, ErrOptionDepleted)
}

func TestPurchaseZeroLots(t *testing.T) {
	opt := newTestOption(t, 10, 10)
	_, err := opt.Purchase(0, time.Now())
	assert.ErrorIs(t, err, ErrInvalidOptionParams)
}

func TestPurchaseAfterExpiry(t *testing.T) {
	opt := newTestOption(t, 10, 10)

	_, err := opt.Purchase(1, opt.Expiry)
	assert.ErrorIs(t, err, ErrOptionExpired)

	_, err = opt.Purchase(1, opt.Expiry.Add(time.Minute))
	assert.ErrorIs(t, err, ErrOptionExpired)

	_, err = opt.Purchase(1, opt.Expiry.Add(-time.Minute))
	assert.NoError(t, err)
}

func TestExpiredBoundary(t *testing.T) {
	opt := newTestOption(t, 10, 10)

	assert.False(t, opt.Expired(opt.Expiry.Add(-time.Second)))
	assert.True(t, opt.Expired(opt.Expiry))
	assert.True(t, opt.Expired(opt.Expiry.Add(time.Second)))
}

func TestSingleLotOption(t *testing.T) {
	opt := newTestOption(t, 1, 42)

	cost, err := opt.Purchase(1, time.Now())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(42).Equal(cost))
	assert.True(t, opt.Depleted())
}
