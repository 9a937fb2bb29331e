package advisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/stroymat/materials-bot/internal/catalog"
)

type fakeGenerator struct {
	content  string
	err      error
	block    bool
	calls    int
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content}}}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enabledAdvisor(gen Generator) *Advisor {
	return newAdvisor(Config{Timeout: 50 * time.Millisecond}, catalog.Default(), testLogger(), gen)
}

func TestNewDisabledWithoutUsableKey(t *testing.T) {
	for _, key := range []string{"", "not-a-key", "SK-upper"} {
		a := New(Config{APIKey: key}, catalog.Default(), testLogger())
		assert.False(t, a.Enabled(), "key %q", key)
	}
}

func TestNewEnabledWithKey(t *testing.T) {
	a := New(Config{APIKey: "sk-test"}, catalog.Default(), testLogger())
	assert.True(t, a.Enabled())
}

func TestRecommendDisabledMakesNoCalls(t *testing.T) {
	a := newAdvisor(Config{}, catalog.Default(), testLogger(), nil)

	for _, q := range []string{"need material for a foundation", "дренаж участка", ""} {
		rec := a.Recommend(context.Background(), q)
		assert.Equal(t, catalog.FallbackKey, rec.MaterialKey)
		assert.Contains(t, rec.Explanation, "менеджер")
		assert.Equal(t, unknownQuantityHint, rec.QuantityHint)
	}
}

func TestRecommendSendsPromptAndLowTemperature(t *testing.T) {
	gen := &fakeGenerator{content: `{"recommended_material": "щебень", "explanation": "Гранитный щебень хорошо держит дорожку", "estimated_quantity": "10"}`}
	a := enabledAdvisor(gen)

	rec := a.Recommend(context.Background(), "хочу отсыпать дорожку")

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, Recommendation{MaterialKey: "щебень", Explanation: "Гранитный щебень хорошо держит дорожку", QuantityHint: "10"}, rec)
	assert.InDelta(t, 0.2, gen.opts.Temperature, 1e-9)
	assert.Equal(t, 200, gen.opts.MaxTokens)

	require.Len(t, gen.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, gen.messages[0].Role)
	system := gen.messages[0].Parts[0].(llms.TextContent).Text
	for _, key := range catalog.Default().Keys() {
		assert.Contains(t, system, key)
	}
	assert.Equal(t, llms.ChatMessageTypeHuman, gen.messages[1].Role)
	assert.Equal(t, "хочу отсыпать дорожку", gen.messages[1].Parts[0].(llms.TextContent).Text)
}

func TestRecommendTransportErrors(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{name: "network error", gen: &fakeGenerator{err: errors.New("connection refused")}},
		{name: "timeout", gen: &fakeGenerator{block: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := enabledAdvisor(tt.gen).Recommend(context.Background(), "фундамент")
			assert.Equal(t, Recommendation{
				MaterialKey:  catalog.FallbackKey,
				Explanation:  unavailableExplanation,
				QuantityHint: unknownQuantityHint,
			}, rec)
		})
	}
}

type panickyGenerator struct{}

func (panickyGenerator) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	panic("boom")
}

func TestRecommendRecoversFromPanic(t *testing.T) {
	rec := enabledAdvisor(panickyGenerator{}).Recommend(context.Background(), "что-нибудь")
	assert.Equal(t, catalog.FallbackKey, rec.MaterialKey)
	assert.Equal(t, unavailableExplanation, rec.Explanation)
}

func TestClassify(t *testing.T) {
	assert.IsType(t, transportError{}, classify("", errors.New("x")))
	assert.IsType(t, rawText{}, classify("просто текст", nil))
	assert.IsType(t, rawText{}, classify("} перевернуто {", nil))
	assert.IsType(t, rawText{}, classify(`{"recommended_material": }`, nil))

	got := classify("Вот ответ:\n```json\n{\"recommended_material\": \"глина\", \"explanation\": \"ok\", \"estimated_quantity\": 7}\n```", nil)
	assert.Equal(t, decoded{Material: "глина", Explanation: "ok", Quantity: "7"}, got)
}

func TestResolveDecoded(t *testing.T) {
	cat := catalog.Default()

	tests := []struct {
		name string
		in   decoded
		want Recommendation
	}{
		{
			name: "valid",
			in:   decoded{Material: "земля", Explanation: "Плодородный слой для газона", Quantity: "3-5"},
			want: Recommendation{MaterialKey: "земля", Explanation: "Плодородный слой для газона", QuantityHint: "3-5"},
		},
		{
			name: "unknown material",
			in:   decoded{Material: "бетон", Explanation: "Бетон лучше всего подходит", Quantity: "2"},
			want: Recommendation{MaterialKey: "песок", Explanation: "Бетон лучше всего подходит", QuantityHint: "2"},
		},
		{
			name: "missing material",
			in:   decoded{Explanation: "Подойдет для большинства работ", Quantity: "2"},
			want: Recommendation{MaterialKey: "песок", Explanation: "Подойдет для большинства работ", QuantityHint: "2"},
		},
		{
			name: "short explanation",
			in:   decoded{Material: "глина", Explanation: "да", Quantity: "4"},
			want: Recommendation{MaterialKey: "глина", Explanation: "Глина для дренажа подходит для большинства задач такого типа.", QuantityHint: "4"},
		},
		{
			name: "hint without digits",
			in:   decoded{Material: "щебень", Explanation: "Щебень для дренажной канавы", Quantity: "несколько кубов"},
			want: Recommendation{MaterialKey: "щебень", Explanation: "Щебень для дренажной канавы", QuantityHint: genericQuantityHint},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolve(cat, tt.in))
		})
	}
}

func TestResolveDecodedCapsExplanation(t *testing.T) {
	long := strings.Repeat("я", 500)
	rec := resolve(catalog.Default(), decoded{Material: "песок", Explanation: long, Quantity: "1"})
	assert.Equal(t, maxExplanationRunes, len([]rune(rec.Explanation)))
}

func TestResolveRawKeywordFallback(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Для фундамента нужен мытый песок", "песок"},
		{"Лучше взять материал для дренажа", "щебень"},
		{"Для выравнивания участка подойдет засыпка", "песок_карьерный"},
		{"Для газона берите плодородный слой", "земля"},
		{"Нужна гидроизоляция погреба", "глина"},
		{"Самый дешевый вариант - известняк", "щебень_известняковый"},
		{"Drainage along the garden path", "щебень"},
		{"Фундамент и дренаж", "песок"},
		{"Непонятно что нужно", "песок"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			rec := resolve(catalog.Default(), rawText{Text: tt.text})
			assert.Equal(t, tt.want, rec.MaterialKey)
			assert.Equal(t, tt.text, rec.Explanation)
			assert.Equal(t, genericQuantityHint, rec.QuantityHint)
		})
	}
}

func TestResolveRawEmptyAndLong(t *testing.T) {
	rec := resolve(catalog.Default(), rawText{Text: "   "})
	assert.Equal(t, emptyReplyExplanation, rec.Explanation)

	rec = resolve(catalog.Default(), rawText{Text: strings.Repeat("ж", 150)})
	assert.Equal(t, rawExplanationRunes, len([]rune(rec.Explanation)))
}

func TestResolveAlwaysYieldsCatalogKey(t *testing.T) {
	cat := catalog.Default()
	replies := []reply{
		rawText{Text: "garbage"},
		rawText{Text: ""},
		decoded{Material: "unobtainium"},
		decoded{},
		transportError{Err: context.DeadlineExceeded},
	}
	for _, r := range replies {
		assert.True(t, cat.Has(resolve(cat, r).MaterialKey))
	}
}

func TestFallbackKeyWithoutSand(t *testing.T) {
	cat := catalog.New(catalog.Entry{Key: "гравий", Description: "Гравий"})
	rec := resolve(cat, rawText{Text: "фундамент"})
	assert.Equal(t, "гравий", rec.MaterialKey)
}

func TestExplicitZeroTemperatureIsKept(t *testing.T) {
	gen := &fakeGenerator{content: `{"recommended_material": "песок", "explanation": "Мытый песок подходит для бетона", "estimated_quantity": "5"}`}
	gen.opts.Temperature = 0.9
	zero := 0.0
	a := newAdvisor(Config{Temperature: &zero}, catalog.Default(), testLogger(), gen)

	a.Recommend(context.Background(), "фундамент")

	require.Equal(t, 1, gen.calls)
	assert.Zero(t, gen.opts.Temperature)
}
