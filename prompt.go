package banter

import "strings"

// FormattingInstruction is sent ahead of the history in every request so
// replies use the math and code conventions the renderer understands.
var FormattingInstruction = strings.Join([]string{
	"Форматируй ответы для читабельности:",
	"- Математику пиши в KaTeX: inline — $a^2 + b^2 = c^2$, блочно — $$E=mc^2$$.",
	"- Код давай в тройных бэктиках с указанием языка, например ```js ... ```.",
	"- Не обрамляй формулы в кавычки. В обычном тексте используй $...$, для крупных формул — $$...$$.",
}, "\n")

// InitialSuggestions are offered before the first message.
var InitialSuggestions = []string{
	"Хочу стать разработчиком приложений",
	"Помоги спланировать поступление в мед",
	"Интересуюсь финансами и инвестициями",
	"Покажи направления карьеры в AI и ML",
}

// FollowUpSuggestions are offered once the conversation has started.
var FollowUpSuggestions = []string{
	"На каких навыках сосредоточиться?",
	"Какие требования к поступлению?",
	"Как получить релевантный опыт?",
	"Какие зарплатные ожидания?",
}

// maxSuggestedTurns is the user turn count at which suggestions stop.
const maxSuggestedTurns = 2

// Suggestions returns the prompts to offer for the conversation, or nil once
// the user has sent enough messages.
func Suggestions(c *Conversation) []string {
	if c.UserTurnCount() >= maxSuggestedTurns {
		return nil
	}
	if c.Len() > 0 {
		return FollowUpSuggestions
	}
	return InitialSuggestions
}
