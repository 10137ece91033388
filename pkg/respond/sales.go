package respond

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/crosslinehq/bastion/pkg/chat"
	"github.com/crosslinehq/bastion/pkg/llm"
	"github.com/crosslinehq/bastion/pkg/store"
)

// SalesFallback is the canned reply when the sales path cannot build
// an answer.
const SalesFallback = "Я могу только помочь вам с выбором тарифа. Пожалуйста, задайте вопрос о наших тарифах."

const salesSystemPrompt = `Ты — менеджер по продажам SaaS-продукта для командной работы.
Отвечай кратко и дружелюбно, только по теме тарифов и возможностей продукта.
Используй данные о тарифах ниже; не выдумывай цены и условия.
Если вопрос не о продукте, вежливо верни разговор к тарифам.`

// TariffCatalog is the slice of the store the sales responder reads.
type TariffCatalog interface {
	AllTariffs(ctx context.Context) ([]store.Tariff, error)
}

// SalesResponder answers pricing and product questions. General
// questions ("какие тарифы?") are answered straight from the catalog
// without a model call; everything else goes through the completion
// client with the catalog injected as context.
type SalesResponder struct {
	catalog   TariffCatalog
	completer Completer
}

func NewSalesResponder(catalog TariffCatalog, completer Completer) *SalesResponder {
	return &SalesResponder{catalog: catalog, completer: completer}
}

// overviewTriggers are message stems that mean "show me what you
// have" — the catalog overview answers these better than a model.
var overviewTriggers = []string{"тарифы", "функции", "возможности"}

func (r *SalesResponder) Respond(ctx context.Context, userID int64, window []chat.Message, message string) (string, error) {
	tariffs, err := r.catalog.AllTariffs(ctx)
	if err != nil {
		log.Printf("sales responder: catalog unavailable: %v", err)
		return SalesFallback, nil
	}

	if wantsOverview(message) {
		if overview := formatOverview(tariffs); overview != "" {
			return overview, nil
		}
	}

	answer, err := r.completer.Complete(ctx, llm.Request{
		System: salesSystemPrompt + "\n\n" + formatOverview(tariffs),
		Messages: append(historyMessages(window),
			llm.ChatMessage{Role: "user", Content: message}),
		Temperature: responderTemperature,
		MaxTokens:   responderMaxTokens,
	})
	if err != nil {
		log.Printf("sales responder: completion failed: %v", err)
		return SalesFallback, nil
	}
	return answer, nil
}

func wantsOverview(message string) bool {
	normalized := strings.ToLower(strings.TrimRight(strings.TrimSpace(message), "?!."))
	for _, trigger := range overviewTriggers {
		if normalized == trigger || normalized == "какие "+trigger {
			return true
		}
	}
	return false
}

func formatOverview(tariffs []store.Tariff) string {
	if len(tariffs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Наши тарифы:\n")
	for _, t := range tariffs {
		fmt.Fprintf(&b, "\n• %s — %d ₽/мес", t.Name, t.PriceRub)
		if t.Description != "" {
			fmt.Fprintf(&b, "\n  %s", t.Description)
		}
		for _, f := range t.Features {
			fmt.Fprintf(&b, "\n  – %s", f)
		}
	}
	return b.String()
}

// historyMessages converts the recent window into completion turns.
func historyMessages(window []chat.Message) []llm.ChatMessage {
	recent := chat.Tail(window, historyPromptTurns)
	out := make([]llm.ChatMessage, 0, len(recent)+1)
	for _, m := range recent {
		out = append(out, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
