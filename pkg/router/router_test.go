package router

import (
	"context"
	"errors"
	"testing"

	"github.com/crosslinehq/bastion/pkg/chat"
)

// fakeClassifier returns a fixed label or error.
type fakeClassifier struct {
	label string
	err   error
	calls int
}

func (f *fakeClassifier) ClassifyIntent(ctx context.Context, window []chat.Message, message string) (string, error) {
	f.calls++
	return f.label, f.err
}

func newTestRouter(c Classifier) *IntentRouter {
	return NewIntentRouter(NewContextScorer(DefaultVocabulary(), 10), c)
}

func salesHeavyWindow() []chat.Message {
	// Five turns mentioning тариф, no support vocabulary.
	return []chat.Message{
		chat.NewUserMessage("какой тариф посоветуете"),
		chat.NewAssistantMessage("зависит от задач, есть тариф Старт"),
		chat.NewUserMessage("а тариф для юрлица есть"),
		chat.NewAssistantMessage("да, тариф Бизнес"),
		chat.NewUserMessage("чем отличается этот тариф"),
	}
}

func TestRoute_ClassifierAccepted(t *testing.T) {
	testCases := []struct {
		label string
		want  Category
	}{
		{"sales", CategorySales},
		{"support", CategorySupport},
		{" Sales \n", CategorySales},
		{"SUPPORT", CategorySupport},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			r := newTestRouter(&fakeClassifier{label: tc.label})
			d := r.Route(context.Background(), nil, "расскажите подробнее про ваш продукт")
			if d.Category != tc.want {
				t.Errorf("category = %s, want %s", d.Category, tc.want)
			}
			if d.Rationale != RationaleClassifierAccepted {
				t.Errorf("rationale = %s, want %s", d.Rationale, RationaleClassifierAccepted)
			}
		})
	}
}

func TestRoute_ShortMessageOverride(t *testing.T) {
	// A one-token answer after five тариф turns, classifier output
	// unusable: the keyword context must force Sales with the
	// short-message rationale.
	r := newTestRouter(&fakeClassifier{label: "не могу определить"})

	d := r.Route(context.Background(), salesHeavyWindow(), "любой")
	if d.Category != CategorySales {
		t.Errorf("category = %s, want %s", d.Category, CategorySales)
	}
	if d.Rationale != RationaleContextOverrideShortMessage {
		t.Errorf("rationale = %s, want %s", d.Rationale, RationaleContextOverrideShortMessage)
	}
}

func TestRoute_ShortMessageOverridesSupportLabel(t *testing.T) {
	// The classifier answers "support" for "любой" because it sees no
	// sales vocabulary in the message itself. The window says otherwise.
	r := newTestRouter(&fakeClassifier{label: "support"})

	d := r.Route(context.Background(), salesHeavyWindow(), "любой")
	if d.Category != CategorySales {
		t.Errorf("category = %s, want %s", d.Category, CategorySales)
	}
	if d.Rationale != RationaleContextOverrideShortMessage {
		t.Errorf("rationale = %s, want %s", d.Rationale, RationaleContextOverrideShortMessage)
	}
}

func TestRoute_LongMessageKeepsSupportLabel(t *testing.T) {
	// Same sales-heavy window, but the message is long enough to carry
	// its own signal: the classifier's word stands.
	r := newTestRouter(&fakeClassifier{label: "support"})

	d := r.Route(context.Background(), salesHeavyWindow(), "у меня перестал открываться личный кабинет после оплаты")
	if d.Category != CategorySupport {
		t.Errorf("category = %s, want %s", d.Category, CategorySupport)
	}
	if d.Rationale != RationaleClassifierAccepted {
		t.Errorf("rationale = %s, want %s", d.Rationale, RationaleClassifierAccepted)
	}
}

func TestRoute_TieDefaultsToSupport(t *testing.T) {
	// Empty window, unusable label, zero scores on both sides: the
	// conservative default is Support.
	r := newTestRouter(&fakeClassifier{label: "unknown"})

	d := r.Route(context.Background(), nil, "привет")
	if d.Category != CategorySupport {
		t.Errorf("category = %s, want %s", d.Category, CategorySupport)
	}
	if d.Rationale != RationaleContextOverrideAmbiguous {
		t.Errorf("rationale = %s, want %s", d.Rationale, RationaleContextOverrideAmbiguous)
	}
}

func TestRoute_ClassifierErrorFallsBackToContext(t *testing.T) {
	r := newTestRouter(&fakeClassifier{err: errors.New("timeout")})

	window := []chat.Message{
		chat.NewUserMessage("сколько стоит тариф и есть ли скидка"),
	}
	d := r.Route(context.Background(), window, "и какая цена за год")
	if d.Category != CategorySales {
		t.Errorf("category = %s, want %s", d.Category, CategorySales)
	}
	if d.Rationale != RationaleContextOverrideAmbiguous {
		t.Errorf("rationale = %s, want %s", d.Rationale, RationaleContextOverrideAmbiguous)
	}
}

func TestRoute_ClassifierErrorEmptyWindow(t *testing.T) {
	r := newTestRouter(&fakeClassifier{err: errors.New("unavailable")})

	d := r.Route(context.Background(), nil, "добрый день")
	if d.Category != CategorySupport {
		t.Errorf("category = %s, want %s (conservative default)", d.Category, CategorySupport)
	}
}

func TestRoute_NilClassifier(t *testing.T) {
	// No classifier configured at all: context decides everything.
	r := newTestRouter(nil)

	d := r.Route(context.Background(), salesHeavyWindow(), "любой")
	if d.Category != CategorySales {
		t.Errorf("category = %s, want %s", d.Category, CategorySales)
	}
}

func TestRoute_AlwaysTerminal(t *testing.T) {
	// Whatever the inputs, the decision must land on one of the two
	// terminal categories.
	labels := []string{"", "unknown", "sales", "support", "SALES или support", "123"}
	messages := []string{"", "ок", "длинное сообщение про всё сразу без ключевых слов"}

	for _, label := range labels {
		for _, msg := range messages {
			r := newTestRouter(&fakeClassifier{label: label})
			d := r.Route(context.Background(), nil, msg)
			if d.Category != CategorySales && d.Category != CategorySupport {
				t.Errorf("label=%q msg=%q produced non-terminal category %q", label, msg, d.Category)
			}
		}
	}
}
