package ai

import (
	"fmt"
	"strings"

	"github.com/botpanel/telegram-bot-service/internal/store"
)

// BuildSystemPrompt assembles the system message from the bot's identity,
// tone, knowledge base, FAQ, and forbidden topics.
func BuildSystemPrompt(bot store.Bot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a helpful assistant answering customers of this business.\n", bot.Name)
	if desc := strings.TrimSpace(bot.Description); desc != "" {
		fmt.Fprintf(&b, "About the business: %s\n", desc)
	}

	switch bot.AI.Tone {
	case store.ToneProfessional:
		b.WriteString("Keep a professional, courteous tone.\n")
	case store.ToneFunny:
		b.WriteString("Keep a light, humorous tone while staying helpful.\n")
	case store.ToneCustom:
		if custom := strings.TrimSpace(bot.AI.CustomTone); custom != "" {
			fmt.Fprintf(&b, "Tone instructions: %s\n", custom)
		}
	case store.ToneFriendly:
		b.WriteString("Keep a warm, friendly tone.\n")
	default:
		b.WriteString("Keep a warm, friendly tone.\n")
	}

	if knowledge := strings.TrimSpace(bot.AI.Knowledge); knowledge != "" {
		b.WriteString("\nKnowledge base:\n")
		b.WriteString(knowledge)
		b.WriteString("\n")
	}

	if len(bot.AI.FAQ) > 0 {
		b.WriteString("\nFrequently asked questions:\n")
		for _, entry := range bot.AI.FAQ {
			q := strings.TrimSpace(entry.Question)
			a := strings.TrimSpace(entry.Answer)
			if q == "" || a == "" {
				continue
			}
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", q, a)
		}
	}

	if len(bot.AI.ForbiddenTopics) > 0 {
		fmt.Fprintf(&b, "\nNever discuss the following topics: %s.\n", strings.Join(bot.AI.ForbiddenTopics, ", "))
	}

	language := strings.TrimSpace(bot.Language)
	if language == "" {
		language = "en"
	}
	fmt.Fprintf(&b, "\nRules:\n")
	fmt.Fprintf(&b, "- Always answer in the language with code %q.\n", language)
	b.WriteString("- Keep answers short and to the point.\n")
	b.WriteString("- If you do not know the answer, say so instead of inventing one.\n")
	b.WriteString("- Never reveal which AI model or provider powers you.\n")

	return b.String()
}
