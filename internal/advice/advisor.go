// Package advice produces short financial tips for the society by sending a
// compact transaction digest to an OpenAI-compatible chat model. The caller
// always gets text back: any failure degrades to a localized fallback line.
package advice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"somiti/internal/core"
)

const requestTimeout = 30 * time.Second

// chatCompleter is the one method of the OpenAI client we use.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Advisor talks to a chat completion endpoint. A zero API key disables it and
// every request returns the fallback immediately.
type Advisor struct {
	client chatCompleter
	model  string
}

// New builds an advisor for the given endpoint. baseURL may be empty for the
// public OpenAI API; apiKey may be empty, in which case the advisor only ever
// returns fallbacks.
func New(apiKey, baseURL, model string) *Advisor {
	if apiKey == "" {
		return &Advisor{model: model}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Advisor{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// txDigest is what the model sees: totals and item titles, never member names
// or mobile numbers.
type txDigest struct {
	Type        core.TransactionType `json:"type"`
	TotalAmount float64              `json:"totalAmount"`
	Date        string               `json:"date"`
	ItemCount   int                  `json:"itemCount"`
	Items       string               `json:"items"`
}

// Tips returns 3-4 short financial tips in the given language. It never
// returns an error; broken connectivity, a missing key or an empty completion
// all collapse into the localized fallback string.
func (a *Advisor) Tips(ctx context.Context, txs []core.Transaction, lang core.Language) string {
	if a.client == nil {
		slog.WarnContext(ctx, "Advice API key not configured, returning fallback")
		return fallback(lang)
	}

	digest := make([]txDigest, 0, len(txs))
	for _, t := range txs {
		titles := make([]string, 0, len(t.Items))
		for _, item := range t.Items {
			titles = append(titles, item.Title)
		}
		digest = append(digest, txDigest{
			Type:        t.Type,
			TotalAmount: t.TotalAmount,
			Date:        t.Date,
			ItemCount:   len(t.Items),
			Items:       strings.Join(titles, ", "),
		})
	}

	payload, err := json.Marshal(digest)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode advice payload", "error", err)
		return fallback(lang)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(lang)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(lang, payload)},
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "Advice request failed", "error", err)
		return errorFallback(lang)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return fallback(lang)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func systemPrompt(lang core.Language) string {
	if lang == core.LangBengali {
		return "আপনি একজন অভিজ্ঞ আর্থিক সমিতি উপদেষ্টা। আপনি সঞ্চয় বৃদ্ধি এবং ঋণ ঝুঁকি হ্রাসের পরামর্শ দেন।"
	}
	return "You are an experienced savings society advisor. You provide advice on fund growth and loan risk mitigation."
}

func userPrompt(lang core.Language, payload []byte) string {
	langName := "English"
	if lang == core.LangBengali {
		langName = "Bengali (বাংলা)"
	}
	return fmt.Sprintf(`Analyze these community savings society transactions and provide 3-4 professional financial tips in %s.
Focus on fund growth, loan management risks, and encouraging member participation. Keep it under 100 words.

Transactions Data: %s`, langName, payload)
}

// fallback is returned when no advice could be produced at all.
func fallback(lang core.Language) string {
	if lang == core.LangBengali {
		return "এই মুহূর্তে কোনো আর্থিক ইনসাইট পাওয়া যায়নি।"
	}
	return "No financial insights available at this moment."
}

// errorFallback is returned when the upstream call itself failed.
func errorFallback(lang core.Language) string {
	if lang == core.LangBengali {
		return "পরামর্শ পেতে সমস্যা হচ্ছে। অনুগ্রহ করে আপনার ইন্টারনেট সংযোগ চেক করুন।"
	}
	return "Error getting society advice. Please check your internet connection."
}
