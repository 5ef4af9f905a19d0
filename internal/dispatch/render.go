package dispatch

import (
	"strings"
	"time"

	"github.com/botpanel/telegram-bot-service/internal/store"
)

// RenderTemplate substitutes the supported placeholders into text. Unknown
// placeholders pass through untouched.
func RenderTemplate(text string, bot store.Bot, up Update, now time.Time) string {
	replacer := strings.NewReplacer(
		"{first_name}", up.FirstName,
		"{username}", up.Username,
		"{language}", bot.Language,
		"{time}", now.Format("15:04"),
	)
	return replacer.Replace(text)
}
