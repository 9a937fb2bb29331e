package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{"песок", "щебень", "земля", "глина", "песок_карьерный", "щебень_известняковый"}, c.Keys())

	sand, ok := c.Lookup("песок")
	require.True(t, ok)
	assert.True(t, sand.UnitPrice.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, "м³", sand.Unit)

	assert.True(t, c.Has(FallbackKey))
	assert.False(t, c.Has("бетон"))
}

func TestNewKeepsFirstDuplicate(t *testing.T) {
	c := New(
		Entry{Key: "a", UnitPrice: decimal.NewFromInt(1)},
		Entry{Key: "b", UnitPrice: decimal.NewFromInt(2)},
		Entry{Key: "a", UnitPrice: decimal.NewFromInt(3)},
	)

	assert.Equal(t, []string{"a", "b"}, c.Keys())
	e, _ := c.Lookup("a")
	assert.True(t, e.UnitPrice.Equal(decimal.NewFromInt(1)))
}

func TestKeysReturnsCopy(t *testing.T) {
	c := Default()
	keys := c.Keys()
	keys[0] = "changed"
	assert.Equal(t, "песок", c.Keys()[0])
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"800", "800"},
		{"7500", "7,500"},
		{"15750.5", "15,751"},
		{"1234567", "1,234,567"},
		{"-2500", "-2,500"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestPriceList(t *testing.T) {
	list := Default().PriceList()

	assert.Contains(t, list, "Песок речной мытый")
	assert.Contains(t, list, "1,500₽ за м³")
	assert.Contains(t, list, "без учета доставки")
}
