// Package advisor suggests a catalog material from a free-form description of
// the customer's job. It talks to an OpenAI-compatible model when one is
// configured and falls back to fixed answers or keyword matching otherwise.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/stroymat/materials-bot/internal/catalog"
)

const (
	defaultModel       = "gpt-3.5-turbo"
	defaultTimeout     = 8 * time.Second
	defaultTemperature = 0.2
	defaultMaxTokens   = 200
)

var errNoChoices = errors.New("no completion choices returned")

// Recommendation is a suggestion for one dialogue turn. MaterialKey is always
// a key of the advisor's catalog.
type Recommendation struct {
	MaterialKey  string
	Explanation  string
	QuantityHint string
}

// Generator is the part of a langchaingo model the advisor needs.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	// Temperature is nil for the default; zero is a valid setting.
	Temperature *float64
	MaxTokens   int
}

type Advisor struct {
	gen         Generator
	catalog     *catalog.Catalog
	logger      *slog.Logger
	prompt      string
	timeout     time.Duration
	temperature float64
	maxTokens   int
}

// New returns an advisor. A missing or malformed API key, or a client that
// cannot be built, yields a disabled advisor rather than an error.
func New(cfg Config, cat *catalog.Catalog, logger *slog.Logger) *Advisor {
	if !validKey(cfg.APIKey) {
		logger.Warn("OpenAI API key missing or malformed, advisor disabled")
		return newAdvisor(cfg, cat, logger, nil)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		logger.Error("failed to create OpenAI client, advisor disabled", "error", err)
		return newAdvisor(cfg, cat, logger, nil)
	}

	logger.Info("advisor enabled", "model", model)
	return newAdvisor(cfg, cat, logger, llm)
}

func newAdvisor(cfg Config, cat *catalog.Catalog, logger *slog.Logger, gen Generator) *Advisor {
	a := &Advisor{
		gen:         gen,
		catalog:     cat,
		logger:      logger,
		prompt:      systemPrompt(cat),
		timeout:     cfg.Timeout,
		temperature: defaultTemperature,
		maxTokens:   cfg.MaxTokens,
	}
	if a.timeout <= 0 {
		a.timeout = defaultTimeout
	}
	if cfg.Temperature != nil {
		a.temperature = *cfg.Temperature
	}
	if a.maxTokens == 0 {
		a.maxTokens = defaultMaxTokens
	}
	return a
}

func validKey(key string) bool {
	return strings.HasPrefix(key, "sk-")
}

// Enabled reports whether recommendations come from the model.
func (a *Advisor) Enabled() bool {
	return a.gen != nil
}

// Recommend never fails: every problem degrades to a usable recommendation.
func (a *Advisor) Recommend(ctx context.Context, query string) (rec Recommendation) {
	if !a.Enabled() {
		return disabled(a.catalog)
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("advisor panicked", "panic", r)
			rec = resolve(a.catalog, transportError{Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	content, err := a.generate(ctx, query)
	r := classify(content, err)
	if te, ok := r.(transportError); ok {
		a.logger.Error("advisor request failed", "error", te.Err)
	} else if _, ok := r.(rawText); ok {
		a.logger.Warn("advisor reply is not JSON, using keyword fallback")
	}

	rec = resolve(a.catalog, r)
	a.logger.Debug("advisor recommendation", "material", rec.MaterialKey, "hint", rec.QuantityHint)
	return rec
}

func (a *Advisor) generate(ctx context.Context, query string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, a.prompt),
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	}

	resp, err := a.gen.GenerateContent(ctx, messages,
		llms.WithTemperature(a.temperature),
		llms.WithMaxTokens(a.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Content, nil
}

func systemPrompt(cat *catalog.Catalog) string {
	var sb strings.Builder
	sb.WriteString("Ты - эксперт по строительным материалам. Помоги клиенту выбрать подходящий материал.\n")
	sb.WriteString("Доступные материалы:\n")
	for _, key := range cat.Keys() {
		e, _ := cat.Lookup(key)
		sb.WriteString(fmt.Sprintf("- %s (%s %s)\n", key, strings.ToLower(e.Description), e.Uses))
	}
	sb.WriteString("\nОтвечай кратко и по делу. Рекомендуй конкретный материал и примерное количество.\n")
	sb.WriteString("Формат ответа в JSON:\n")
	sb.WriteString(`{
    "recommended_material": "название_материала_из_списка_выше",
    "explanation": "краткое объяснение выбора до 100 символов",
    "estimated_quantity": "число от 1 до 50"
}`)
	return sb.String()
}
