package respond

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/crosslinehq/bastion/pkg/chat"
	"github.com/crosslinehq/bastion/pkg/kb"
	"github.com/crosslinehq/bastion/pkg/llm"
	"github.com/crosslinehq/bastion/pkg/store"
)

// Support canned replies.
const (
	SupportFallback = "Я могу только помочь вам с техническими вопросами. Пожалуйста, опишите вашу проблему."
	SupportOffTopic = "Пожалуйста, задавайте только вопросы, связанные с использованием нашего продукта."
)

const supportSystemPrompt = `Ты — специалист техподдержки SaaS-продукта для командной работы.
Отвечай по существу, шаг за шагом, на русском языке.
Опирайся на статьи базы знаний ниже; если ответа в них нет, предложи
обратиться к оператору. Не выдумывай функции продукта.`

// RelevanceChecker pre-screens off-topic questions.
// *llm.RelevanceChecker satisfies it.
type RelevanceChecker interface {
	IsRelevant(ctx context.Context, question string) (bool, error)
}

// ArticleSearcher retrieves knowledge-base context.
// *kb.KnowledgeBase satisfies it.
type ArticleSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]kb.Result, error)
}

// FTSFallback is the Postgres full-text search used when vector
// retrieval finds nothing. *store.Store satisfies it.
type FTSFallback interface {
	SearchSupport(ctx context.Context, query string, limit int) ([]store.Article, error)
}

// SupportResponder answers product-usage questions: relevance
// pre-check, knowledge retrieval (vector first, FTS second), then a
// completion grounded in the retrieved articles.
type SupportResponder struct {
	relevance RelevanceChecker
	articles  ArticleSearcher
	fts       FTSFallback
	completer Completer
}

func NewSupportResponder(relevance RelevanceChecker, articles ArticleSearcher, fts FTSFallback, completer Completer) *SupportResponder {
	return &SupportResponder{
		relevance: relevance,
		articles:  articles,
		fts:       fts,
		completer: completer,
	}
}

func (r *SupportResponder) Respond(ctx context.Context, userID int64, window []chat.Message, message string) (string, error) {
	if r.relevance != nil {
		relevant, err := r.relevance.IsRelevant(ctx, message)
		if err != nil {
			// The pre-check is an optimization; failure must not cost
			// the user their answer.
			log.Printf("support responder: relevance check failed: %v", err)
		} else if !relevant {
			return SupportOffTopic, nil
		}
	}

	knowledge := r.retrieve(ctx, message)

	answer, err := r.completer.Complete(ctx, llm.Request{
		System: supportSystemPrompt + knowledge,
		Messages: append(historyMessages(window),
			llm.ChatMessage{Role: "user", Content: message}),
		Temperature: responderTemperature,
		MaxTokens:   responderMaxTokens,
	})
	if err != nil {
		log.Printf("support responder: completion failed: %v", err)
		return SupportFallback, nil
	}
	return answer, nil
}

// retrieve builds the knowledge-base block for the system prompt.
// Empty retrieval yields an empty block, not an error.
func (r *SupportResponder) retrieve(ctx context.Context, message string) string {
	var b strings.Builder

	if r.articles != nil {
		results, err := r.articles.Search(ctx, message, 3)
		if err != nil {
			log.Printf("support responder: kb search failed: %v", err)
		}
		for _, res := range results {
			fmt.Fprintf(&b, "\n\n## %s\n%s", res.Title, res.Body)
		}
	}

	if b.Len() == 0 && r.fts != nil {
		articles, err := r.fts.SearchSupport(ctx, message, 3)
		if err != nil {
			log.Printf("support responder: fts search failed: %v", err)
		}
		for _, a := range articles {
			fmt.Fprintf(&b, "\n\n## %s\n%s", a.Title, a.Body)
		}
	}

	if b.Len() == 0 {
		return ""
	}
	return "\n\nБаза знаний:" + b.String()
}
