package advisor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/stroymat/materials-bot/internal/catalog"
)

const (
	rawExplanationRunes = 100
	maxExplanationRunes = 200
	minExplanationRunes = 10

	genericQuantityHint = "5-10"
	unknownQuantityHint = "уточнить"

	disabledExplanation    = "Для получения персональных рекомендаций свяжитесь с нашим менеджером."
	unavailableExplanation = "Для консультации обратитесь к менеджеру"
	emptyReplyExplanation  = "Рекомендуем песок для большинства строительных работ"
)

// reply is what came back from the model: decoded, rawText or transportError.
type reply interface {
	isReply()
}

type decoded struct {
	Material    string
	Explanation string
	Quantity    string
}

type rawText struct {
	Text string
}

type transportError struct {
	Err error
}

func (decoded) isReply()        {}
func (rawText) isReply()        {}
func (transportError) isReply() {}

type payload struct {
	RecommendedMaterial string     `json:"recommended_material"`
	Explanation         string     `json:"explanation"`
	EstimatedQuantity   flexString `json:"estimated_quantity"`
}

// flexString accepts "5-10" as well as a bare 7.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	*f = ""
	return nil
}

// classify turns the raw model output into a tagged reply.
func classify(content string, err error) reply {
	if err != nil {
		return transportError{Err: err}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return rawText{Text: content}
	}

	var p payload
	if err := json.Unmarshal([]byte(content[start:end+1]), &p); err != nil {
		return rawText{Text: content}
	}
	return decoded{
		Material:    strings.TrimSpace(p.RecommendedMaterial),
		Explanation: strings.TrimSpace(p.Explanation),
		Quantity:    strings.TrimSpace(string(p.EstimatedQuantity)),
	}
}

// resolve maps any reply to a recommendation with a valid catalog key.
func resolve(cat *catalog.Catalog, r reply) Recommendation {
	switch v := r.(type) {
	case decoded:
		return resolveDecoded(cat, v)
	case rawText:
		return resolveRaw(cat, v.Text)
	default:
		return Recommendation{
			MaterialKey:  fallbackKey(cat),
			Explanation:  unavailableExplanation,
			QuantityHint: unknownQuantityHint,
		}
	}
}

func disabled(cat *catalog.Catalog) Recommendation {
	return Recommendation{
		MaterialKey:  fallbackKey(cat),
		Explanation:  disabledExplanation,
		QuantityHint: unknownQuantityHint,
	}
}

func resolveDecoded(cat *catalog.Catalog, d decoded) Recommendation {
	key := d.Material
	if !cat.Has(key) {
		key = fallbackKey(cat)
	}

	explanation := d.Explanation
	if utf8.RuneCountInString(explanation) < minExplanationRunes {
		e, _ := cat.Lookup(key)
		explanation = fmt.Sprintf("%s подходит для большинства задач такого типа.", e.Description)
	}

	hint := d.Quantity
	if !strings.ContainsFunc(hint, unicode.IsDigit) {
		hint = genericQuantityHint
	}

	return Recommendation{
		MaterialKey:  key,
		Explanation:  truncate(explanation, maxExplanationRunes),
		QuantityHint: hint,
	}
}

func resolveRaw(cat *catalog.Catalog, text string) Recommendation {
	explanation := truncate(strings.TrimSpace(text), rawExplanationRunes)
	if explanation == "" {
		explanation = emptyReplyExplanation
	}
	return Recommendation{
		MaterialKey:  matchKeywords(cat, text),
		Explanation:  explanation,
		QuantityHint: genericQuantityHint,
	}
}

// keywordRules are checked in order; the first rule with a hit wins.
var keywordRules = []struct {
	key   string
	words []string
}{
	{"песок", []string{"фундамент", "бетон", "foundation", "concrete"}},
	{"щебень", []string{"дренаж", "дорожк", "drainage", "path"}},
	{"песок_карьерный", []string{"выравнив", "засып", "подсып", "level", "backfill"}},
	{"земля", []string{"газон", "сад", "огород", "клумб", "lawn", "garden"}},
	{"глина", []string{"гидроизоляц", "waterproof"}},
	{"щебень_известняковый", []string{"дешев", "дешёв", "эконом", "бюджет", "известняк", "budget", "cheap", "limestone"}},
}

func matchKeywords(cat *catalog.Catalog, text string) string {
	lower := strings.ToLower(text)
	for _, rule := range keywordRules {
		if !cat.Has(rule.key) {
			continue
		}
		for _, w := range rule.words {
			if strings.Contains(lower, w) {
				return rule.key
			}
		}
	}
	return fallbackKey(cat)
}

func fallbackKey(cat *catalog.Catalog) string {
	if cat.Has(catalog.FallbackKey) {
		return catalog.FallbackKey
	}
	if keys := cat.Keys(); len(keys) > 0 {
		return keys[0]
	}
	return catalog.FallbackKey
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
