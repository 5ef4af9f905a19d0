package telegrampool

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"github.com/botpanel/telegram-bot-service/internal/store"
)

func testMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 7,
		Chat:      &tgbotapi.Chat{ID: 500, Type: "private"},
		From:      &tgbotapi.User{ID: 42, UserName: "eva_k", FirstName: "Eva"},
		Text:      text,
	}
}

func TestNormalizeUpdate(t *testing.T) {
	up := normalizeUpdate(testMessage("hello"), "ShopBot")

	assert.Equal(t, 7, up.MessageID)
	assert.Equal(t, int64(500), up.ChatID)
	assert.Equal(t, store.ChatTypePrivate, up.ChatType)
	assert.Equal(t, int64(42), up.UserID)
	assert.Equal(t, "eva_k", up.Username)
	assert.Equal(t, "Eva", up.FirstName)
	assert.Equal(t, "hello", up.Text)
	assert.False(t, up.Mentioned)
	assert.False(t, up.HasLink)
}

func TestNormalizeUpdateMention(t *testing.T) {
	msg := testMessage("@shopbot when do you open?")
	msg.Chat.Type = "supergroup"
	msg.Entities = []tgbotapi.MessageEntity{{Type: "mention", Offset: 0, Length: 8}}

	up := normalizeUpdate(msg, "ShopBot")
	assert.Equal(t, store.ChatTypeGroup, up.ChatType)
	assert.True(t, up.Mentioned)

	// A mention of someone else is not a mention of this bot.
	other := testMessage("@otherbot hi")
	other.Entities = []tgbotapi.MessageEntity{{Type: "mention", Offset: 0, Length: 9}}
	assert.False(t, normalizeUpdate(other, "ShopBot").Mentioned)
}

func TestNormalizeUpdateLinks(t *testing.T) {
	msg := testMessage("see https://example.com")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "url", Offset: 4, Length: 19}}
	assert.True(t, normalizeUpdate(msg, "ShopBot").HasLink)

	hidden := testMessage("see this")
	hidden.Entities = []tgbotapi.MessageEntity{{Type: "text_link", Offset: 4, Length: 4, URL: "https://example.com"}}
	assert.True(t, normalizeUpdate(hidden, "ShopBot").HasLink)
}

func TestNormalizeUpdateAddressedCommand(t *testing.T) {
	up := normalizeUpdate(testMessage("/start@ShopBot now"), "ShopBot")
	assert.Equal(t, "/start now", up.Text)

	// Commands addressed to a different bot keep their suffix and will not
	// match any trigger.
	other := normalizeUpdate(testMessage("/start@OtherBot"), "ShopBot")
	assert.Equal(t, "/start@OtherBot", other.Text)

	bare := normalizeUpdate(testMessage("/start"), "ShopBot")
	assert.Equal(t, "/start", bare.Text)
}

func TestNormalizeChatType(t *testing.T) {
	assert.Equal(t, store.ChatTypePrivate, normalizeChatType("private"))
	assert.Equal(t, store.ChatTypeGroup, normalizeChatType("group"))
	assert.Equal(t, store.ChatTypeGroup, normalizeChatType("supergroup"))
	assert.Equal(t, store.ChatTypeChannel, normalizeChatType("channel"))
}
