package router

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the two keyword lists the context scorer counts.
// Keywords are matched as case-insensitive substrings, so stems work
// across Russian inflections ("тариф" hits "тарифы", "тарифах").
type Vocabulary struct {
	Sales   []string `yaml:"sales"`
	Support []string `yaml:"support"`
}

// DefaultVocabulary returns the built-in keyword lists, calibrated for
// a Russian-language SaaS assistant.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Sales: []string{
			"тариф", "цена", "цены", "стоимость", "стоит", "оплат",
			"купить", "покупк", "подписк", "план", "скидк", "акци",
			"пробный", "демо", "триал", "бесплатн", "платн",
			"функци", "возможност", "лимит", "предложени",
			"счет", "счёт", "договор", "продлени", "апгрейд",
			"рублей", "руб", "месяц", "год", "период",
			"сколько", "дорого", "дешев", "выгодн", "сравни",
			"команд", "пользовател", "место", "мест",
			"корпоративн", "бизнес", "премиум", "базов", "старт",
		},
		Support: []string{
			"не работает", "не открывается", "не загружается",
			"не получается", "не могу", "не приходит", "не видно",
			"ошибк", "сбой", "проблем", "баг", "глюк", "зависа",
			"сломал", "упал", "пропал", "исчез", "потерял",
			"помоги", "помощь", "подскаж", "как сделать", "как настроить",
			"настройк", "установк", "подключени", "интеграци",
			"войти", "вход", "логин", "пароль", "доступ", "аккаунт",
			"восстанов", "сброс", "обнови", "обновлени", "версия",
			"выгрузк", "загрузк", "импорт", "экспорт", "синхрониз",
			"отчет", "отчёт", "данные", "файл", "документ",
			"медленно", "тормозит", "долго", "висит",
			"уведомлени", "письмо", "почта", "смс",
			"техподдержк", "поддержк", "оператор", "инструкци",
		},
	}
}

// LoadVocabulary reads a YAML override file. Missing file falls back
// to the defaults; a malformed file is an error, not a silent default,
// so a typo in production config is caught at startup.
func LoadVocabulary(path string) (Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultVocabulary(), nil
		}
		return Vocabulary{}, fmt.Errorf("read vocabulary file: %w", err)
	}

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary file %s: %w", path, err)
	}

	if len(v.Sales) == 0 || len(v.Support) == 0 {
		return Vocabulary{}, fmt.Errorf("vocabulary file %s: both sales and support lists are required", path)
	}

	v.normalize()
	return v, nil
}

func (v *Vocabulary) normalize() {
	v.Sales = lowerAll(v.Sales)
	v.Support = lowerAll(v.Support)
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
