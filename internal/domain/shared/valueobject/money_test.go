package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), INR)
		require.NoError(t, err)
		assert.Equal(t, INR, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestNewMoneyFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyFromString("123.45", INR)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(123.45)))
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", INR)
		assert.Error(t, err)
	})
}

func TestNewMoneyINR(t *testing.T) {
	m := NewMoneyINR(decimal.NewFromFloat(50.00))
	assert.Equal(t, INR, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(50.00)))
}

func TestNewMoneyINRFromString(t *testing.T) {
	m, err := NewMoneyINRFromString("199.99")
	require.NoError(t, err)
	assert.Equal(t, INR, m.Currency())

	_, err = NewMoneyINRFromString("bad")
	assert.Error(t, err)
}

func TestZero(t *testing.T) {
	m := Zero(USD)
	assert.True(t, m.IsZero())
	assert.Equal(t, USD, m.Currency())
}

func TestZeroINR(t *testing.T) {
	m := ZeroINR()
	assert.True(t, m.IsZero())
	assert.Equal(t, INR, m.Currency())
}

func TestMoneyIsPositiveNegativeZero(t *testing.T) {
	positive := NewMoneyINR(decimal.NewFromInt(100))
	negative := NewMoneyINR(decimal.NewFromInt(-100))
	zero := ZeroINR()

	assert.True(t, positive.IsPositive())
	assert.False(t, positive.IsNegative())
	assert.False(t, positive.IsZero())

	assert.False(t, negative.IsPositive())
	assert.True(t, negative.IsNegative())
	assert.False(t, negative.IsZero())

	assert.False(t, zero.IsPositive())
	assert.False(t, zero.IsNegative())
	assert.True(t, zero.IsZero())
}

func TestMoneyAdd(t *testing.T) {
	t.Run("adds same currency", func(t *testing.T) {
		m1 := NewMoneyINR(decimal.NewFromFloat(100.50))
		m2 := NewMoneyINR(decimal.NewFromFloat(50.25))
		result, err := m1.Add(m2)
		require.NoError(t, err)
		assert.True(t, result.Amount().Equal(decimal.NewFromFloat(150.75)))
	})

	t.Run("fails for different currencies", func(t *testing.T) {
		m1, _ := NewMoney(decimal.NewFromInt(100), INR)
		m2, _ := NewMoney(decimal.NewFromInt(50), USD)
		_, err := m1.Add(m2)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "different currencies")
	})
}

func TestMoneyMustAdd(t *testing.T) {
	t.Run("succeeds for same currency", func(t *testing.T) {
		m1 := NewMoneyINR(decimal.NewFromInt(10))
		m2 := NewMoneyINR(decimal.NewFromInt(5))
		assert.True(t, m1.MustAdd(m2).Amount().Equal(decimal.NewFromInt(15)))
	})

	t.Run("panics for different currencies", func(t *testing.T) {
		m1, _ := NewMoney(decimal.NewFromInt(10), INR)
		m2, _ := NewMoney(decimal.NewFromInt(5), USD)
		assert.Panics(t, func() { m1.MustAdd(m2) })
	})
}

func TestMoneySubtract(t *testing.T) {
	t.Run("subtracts same currency", func(t *testing.T) {
		m1 := NewMoneyINR(decimal.NewFromInt(100))
		m2 := NewMoneyINR(decimal.NewFromInt(30))
		result, err := m1.Subtract(m2)
		require.NoError(t, err)
		assert.True(t, result.Amount().Equal(decimal.NewFromInt(70)))
	})

	t.Run("result can be negative", func(t *testing.T) {
		m1 := NewMoneyINR(decimal.NewFromInt(30))
		m2 := NewMoneyINR(decimal.NewFromInt(100))
		result, err := m1.Subtract(m2)
		require.NoError(t, err)
		assert.True(t, result.IsNegative())
	})

	t.Run("fails for different currencies", func(t *testing.T) {
		m1, _ := NewMoney(decimal.NewFromInt(100), INR)
		m2, _ := NewMoney(decimal.NewFromInt(50), EUR)
		_, err := m1.Subtract(m2)
		assert.Error(t, err)
	})
}

func TestMoneyMultiply(t *testing.T) {
	m := NewMoneyINR(decimal.NewFromFloat(10.50))
	result := m.Multiply(decimal.NewFromInt(3))
	assert.True(t, result.Amount().Equal(decimal.NewFromFloat(31.50)))
}

func TestMoneyNegateAbs(t *testing.T) {
	m := NewMoneyINR(decimal.NewFromInt(100))
	neg := m.Negate()
	assert.True(t, neg.IsNegative())
	assert.True(t, neg.Abs().Amount().Equal(decimal.NewFromInt(100)))
}

func TestMoneyRound(t *testing.T) {
	m := NewMoneyINR(decimal.NewFromFloat(10.456))
	assert.Equal(t, "10.46", m.Round(2).StringFixed(2))
}

func TestMoneyEquals(t *testing.T) {
	m1 := NewMoneyINR(decimal.NewFromFloat(100.00))
	m2 := NewMoneyINR(decimal.NewFromInt(100))
	m3, _ := NewMoney(decimal.NewFromInt(100), USD)

	assert.True(t, m1.Equals(m2))
	assert.False(t, m1.Equals(m3))
}

func TestMoneyComparisons(t *testing.T) {
	small := NewMoneyINR(decimal.NewFromInt(10))
	large := NewMoneyINR(decimal.NewFromInt(20))

	lt, err := small.LessThan(large)
	require.NoError(t, err)
	assert.True(t, lt)

	gt, err := large.GreaterThan(small)
	require.NoError(t, err)
	assert.True(t, gt)

	gte, err := large.GreaterThanOrEqual(large)
	require.NoError(t, err)
	assert.True(t, gte)

	other, _ := NewMoney(decimal.NewFromInt(10), USD)
	_, err = small.LessThan(other)
	assert.Error(t, err)
}

func TestMoneyString(t *testing.T) {
	m := NewMoneyINR(decimal.NewFromFloat(1234.5))
	assert.Equal(t, "1234.50 INR", m.String())
	assert.Equal(t, "1234.5000", m.StringFixed(4))
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	original := NewMoneyINR(decimal.NewFromFloat(99.99))

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, original.Equals(decoded))
}

func TestMoneyScanValue(t *testing.T) {
	t.Run("scans string value", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("150.75"))
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(150.75)))
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("scans bytes value", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan([]byte("42.00")))
		assert.True(t, m.Amount().Equal(decimal.NewFromInt(42)))
	})

	t.Run("scans nil as zero", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
	})

	t.Run("rejects unsupported type", func(t *testing.T) {
		var m Money
		assert.Error(t, m.Scan(3.14))
	})

	t.Run("value returns amount string", func(t *testing.T) {
		m := NewMoneyINR(decimal.NewFromFloat(10.5))
		v, err := m.Value()
		require.NoError(t, err)
		assert.Equal(t, "10.5", v)
	})
}
