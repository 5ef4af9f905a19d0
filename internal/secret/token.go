package secret

import "regexp"

// Telegram bot tokens look like "123456789:AAEhBOweik6ad9r_QXMENQjcrGbqCr4K-eE":
// a numeric bot id, a colon, and an opaque body.
var botTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]{30,}$`)

// ValidBotToken reports whether s has the digits:token-body shape Telegram
// issues. An encrypted blob or an empty string never matches, which is how
// a failed Decrypt is detected.
func ValidBotToken(s string) bool {
	return botTokenPattern.MatchString(s)
}
