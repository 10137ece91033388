package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/crosslinehq/bastion/pkg/chat"
)

const classifierSystemPrompt = `Ты определяешь тему обращения пользователя в чат ассистента SaaS-продукта.
Категории:
sales — вопросы о тарифах, ценах, оплате, покупке, возможностях продукта.
support — технические проблемы, ошибки, настройка, помощь в использовании.

Учитывай контекст диалога. Ответь ровно одним словом: sales или support.`

const (
	classifierTemperature = 0.1
	// classifierMaxTokens keeps the answer to a single label; anything
	// longer is already malformed.
	classifierMaxTokens = 32
)

// IntentClassifier implements router.Classifier: it labels a message
// as sales or support given the recent window. The router reconciles
// the raw label with its own context score.
type IntentClassifier struct {
	client *Client
	turns  int
}

// NewIntentClassifier builds a classifier that includes the last
// `turns` turns in its prompt.
func NewIntentClassifier(client *Client, turns int) *IntentClassifier {
	if turns <= 0 {
		turns = 10
	}
	return &IntentClassifier{client: client, turns: turns}
}

// ClassifyIntent returns the model's raw label, trimmed but otherwise
// unparsed.
func (c *IntentClassifier) ClassifyIntent(ctx context.Context, window []chat.Message, message string) (string, error) {
	var b strings.Builder
	recent := chat.Tail(window, c.turns)
	if len(recent) > 0 {
		b.WriteString("Диалог:\n")
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Новое сообщение пользователя: %s", message)

	label, err := c.client.Complete(ctx, Request{
		System: classifierSystemPrompt,
		Messages: []ChatMessage{
			{Role: "user", Content: b.String()},
		},
		Temperature: classifierTemperature,
		MaxTokens:   classifierMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(label), nil
}
