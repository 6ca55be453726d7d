// Package commentary generates short AI summaries of portfolio performance
// and market news, with deterministic fallbacks when no LLM is configured.
package commentary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/PatelGH0512/stocklabs/internal/config"
	"github.com/PatelGH0512/stocklabs/internal/models"
)

// LLMClient completes a single prompt.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient implements LLMClient against an OpenAI-compatible endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an LLM client. A custom base URL lets the same
// client talk to any OpenAI-compatible provider.
func NewOpenAIClient(cfg config.CommentaryConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

// Complete sends a prompt to the LLM and returns the response.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from llm")
	}
	return resp.Choices[0].Message.Content, nil
}

// Generator renders commentary, preferring the LLM and degrading to
// templates.
type Generator struct {
	llm LLMClient // nil means template-only
}

// NewGenerator creates a commentary generator. Pass a nil client to run in
// template-only mode.
func NewGenerator(llm LLMClient) *Generator {
	return &Generator{llm: llm}
}

// Performance writes one short sentence summarizing winners and laggards
// over the period. LLM failures fall back to the template, never to an
// error: commentary is decorative.
func (g *Generator) Performance(ctx context.Context, items []models.PerformanceItem, period string) string {
	if len(items) == 0 {
		return ""
	}

	ranked := make([]models.PerformanceItem, len(items))
	copy(ranked, items)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].ChangePct > ranked[j].ChangePct })

	if g.llm != nil {
		var sb strings.Builder
		for i, item := range ranked {
			fmt.Fprintf(&sb, "%d. %s: %.1f%%\n", i+1, item.Symbol, item.ChangePct)
		}
		prompt := fmt.Sprintf(
			"You are a concise portfolio assistant. Based on the performance over %s, write one short sentence summarizing winners and laggards. Be neutral and precise.\n\nRanked performance:\n%s",
			periodLabel(period), sb.String(),
		)
		if text, err := g.llm.Complete(ctx, prompt); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}

	return performanceFallback(ranked, period)
}

// NewsDigest summarizes articles for the daily digest email.
func (g *Generator) NewsDigest(ctx context.Context, articles []models.NewsArticle) string {
	if len(articles) == 0 {
		return "No market news."
	}

	if g.llm != nil {
		var sb strings.Builder
		for _, a := range articles {
			fmt.Fprintf(&sb, "- [%s] %s: %s\n", a.Symbol, a.Headline, a.Summary)
		}
		prompt := fmt.Sprintf(
			"Summarize the following market news in a few short bullet points for a retail investor. Plain text only.\n\n%s",
			sb.String(),
		)
		if text, err := g.llm.Complete(ctx, prompt); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}

	var sb strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&sb, "- %s (%s)\n", a.Headline, a.Source)
	}
	return sb.String()
}

func performanceFallback(ranked []models.PerformanceItem, period string) string {
	top := ranked[0]
	parts := []string{fmt.Sprintf("%s led %s (%.1f%%)", top.Symbol, periodLabel(period), top.ChangePct)}
	if worst := ranked[len(ranked)-1]; worst.Symbol != top.Symbol {
		parts = append(parts, fmt.Sprintf("%s lagged (%.1f%%)", worst.Symbol, worst.ChangePct))
	}
	return strings.Join(parts, ". ")
}

func periodLabel(period string) string {
	switch period {
	case "7d":
		return "this week"
	case "1m":
		return "this month"
	case "3m":
		return "the past 3 months"
	case "ytd":
		return "YTD"
	default:
		return "recently"
	}
}
