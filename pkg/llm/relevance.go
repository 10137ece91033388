package llm

import (
	"context"
	"strings"
)

const relevanceSystemPrompt = `Пользователь пишет в техподдержку SaaS-продукта для управления командной работой.
Относится ли его сообщение к использованию продукта?
Ответь ровно одним словом: да или нет.`

// RelevanceChecker is a tiny yes/no pre-check the support responder
// runs before spending a full completion on an off-topic question.
type RelevanceChecker struct {
	client *Client
}

func NewRelevanceChecker(client *Client) *RelevanceChecker {
	return &RelevanceChecker{client: client}
}

// IsRelevant reports whether the question is about the product.
// Anything that is not a clear "нет" counts as relevant: the check
// exists to deflect obvious noise, not to gatekeep.
func (r *RelevanceChecker) IsRelevant(ctx context.Context, question string) (bool, error) {
	answer, err := r.client.Complete(ctx, Request{
		System: relevanceSystemPrompt,
		Messages: []ChatMessage{
			{Role: "user", Content: question},
		},
		Temperature: 0.0,
		MaxTokens:   8,
	})
	if err != nil {
		return false, err
	}

	normalized := strings.ToLower(strings.TrimSpace(answer))
	return !strings.HasPrefix(normalized, "нет") && !strings.HasPrefix(normalized, "no"), nil
}
