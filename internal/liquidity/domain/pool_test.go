package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAddAndReserve(t *testing.T) {
	p := &Pool{TotalLiquidity: decimal.Zero}

	require.NoError(t, p.Add(decimal.NewFromInt(1000)))
	require.NoError(t, p.Reserve(decimal.NewFromInt(400)))
	assert.True(t, decimal.NewFromInt(600).Equal(p.TotalLiquidity))
}

func TestPoolReserveInsufficient(t *testing.T) {
	p := &Pool{TotalLiquidity: decimal.NewFromInt(100)}

	err := p.Reserve(decimal.NewFromInt(101))
	assert.ErrorIs(t, err, ErrInsufficientPoolLiquidity)
	// 失败后池总额不变
	assert.True(t, decimal.NewFromInt(100).Equal(p.TotalLiquidity))
}

func TestPoolReserveExact(t *testing.T) {
	p := &Pool{TotalLiquidity: decimal.NewFromInt(100)}

	require.NoError(t, p.Reserve(decimal.NewFromInt(100)))
	assert.True(t, p.TotalLiquidity.IsZero())
}

func TestPoolReserveZero(t *testing.T) {
	p := &Pool{TotalLiquidity: decimal.NewFromInt(100)}

	require.NoError(t, p.Reserve(decimal.Zero))
	assert.True(t, decimal.NewFromInt(100).Equal(p.TotalLiquidity))
}

func TestPoolRejectsNonPositiveAdd(t *testing.T) {
	p := &Pool{TotalLiquidity: decimal.Zero}

	assert.ErrorIs(t, p.Add(decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, p.Add(decimal.NewFromInt(-5)), ErrInvalidAmount)
}

func TestContributionRemove(t *testing.T) {
	c := &Contribution{Provider: "alice", Amount: decimal.NewFromInt(500)}

	require.NoError(t, c.Remove(decimal.NewFromInt(200)))
	assert.True(t, decimal.NewFromInt(300).Equal(c.Amount))

	err := c.Remove(decimal.NewFromInt(301))
	assert.ErrorIs(t, err, ErrInsufficientContribution)
	assert.True(t, decimal.NewFromInt(300).Equal(c.Amount))
}
