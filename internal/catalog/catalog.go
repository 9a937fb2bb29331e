package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FallbackKey is the material suggested whenever nothing better is known.
const FallbackKey = "песок"

// Entry is a purchasable material.
type Entry struct {
	Key         string
	UnitPrice   decimal.Decimal
	Unit        string
	Description string
	Uses        string // short usage hint for the advisor prompt
}

// Catalog is an immutable, ordered set of materials.
type Catalog struct {
	entries map[string]Entry
	keys    []string
}

// New builds a catalog. Duplicate keys keep the first entry.
func New(entries ...Entry) *Catalog {
	c := &Catalog{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if _, dup := c.entries[e.Key]; dup {
			continue
		}
		c.entries[e.Key] = e
		c.keys = append(c.keys, e.Key)
	}
	return c
}

// Default returns the price list the business started with.
func Default() *Catalog {
	return New(
		Entry{Key: "песок", UnitPrice: decimal.NewFromInt(1500), Unit: "м³", Description: "Песок речной мытый", Uses: "для фундаментов, бетона"},
		Entry{Key: "щебень", UnitPrice: decimal.NewFromInt(2000), Unit: "м³", Description: "Щебень гранитный фр. 5-20мм", Uses: "для дренажа, фундаментов, дорожек"},
		Entry{Key: "земля", UnitPrice: decimal.NewFromInt(800), Unit: "м³", Description: "Земля растительная плодородная", Uses: "для садовых работ, газонов"},
		Entry{Key: "глина", UnitPrice: decimal.NewFromInt(1200), Unit: "м³", Description: "Глина для дренажа", Uses: "для дренажа, гидроизоляции"},
		Entry{Key: "песок_карьерный", UnitPrice: decimal.NewFromInt(1200), Unit: "м³", Description: "Песок карьерный", Uses: "для засыпки, выравнивания"},
		Entry{Key: "щебень_известняковый", UnitPrice: decimal.NewFromInt(1800), Unit: "м³", Description: "Щебень известняковый", Uses: "более дешевый вариант для дренажа"},
	)
}

// Lookup returns the entry for key.
func (c *Catalog) Lookup(key string) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Has reports whether key is a known material.
func (c *Catalog) Has(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// Keys returns material keys in insertion order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// PriceList renders the price list shown to customers.
func (c *Catalog) PriceList() string {
	var sb strings.Builder
	sb.WriteString("💰 ПРАЙС-ЛИСТ\n\n")
	for _, key := range c.keys {
		e := c.entries[key]
		sb.WriteString(fmt.Sprintf("• %s\n", e.Description))
		sb.WriteString(fmt.Sprintf("  💵 %s₽ за %s\n\n", FormatPrice(e.UnitPrice), e.Unit))
	}
	sb.WriteString("📍 Цены указаны без учета доставки\n")
	sb.WriteString("🚚 Стоимость доставки рассчитывается индивидуально")
	return sb.String()
}

// FormatPrice renders an amount as whole rubles with comma grouping, e.g. 7,500.
// Only the rendering is rounded.
func FormatPrice(amount decimal.Decimal) string {
	digits := amount.Round(0).Abs().String()
	var sb strings.Builder
	if amount.Round(0).IsNegative() {
		sb.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
