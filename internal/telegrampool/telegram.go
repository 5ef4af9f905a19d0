package telegrampool

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/botpanel/telegram-bot-service/internal/dispatch"
	"github.com/botpanel/telegram-bot-service/internal/store"
)

const pollTimeoutSeconds = 30

// PollingDialer opens real Telegram long-polling sessions.
type PollingDialer struct {
	logger *slog.Logger
}

func NewPollingDialer(log *slog.Logger) *PollingDialer {
	if log == nil {
		log = slog.Default()
	}
	return &PollingDialer{
		logger: log.With(slog.String("service", "telegram")),
	}
}

// Dial validates the token against the Bot API (getMe) and starts the
// long-polling update loop. Updates are handled sequentially per connection.
func (d *PollingDialer) Dial(ctx context.Context, bot store.Bot, token string, handler UpdateHandler) (Connection, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = pollTimeoutSeconds
	updates := api.GetUpdatesChan(updateConfig)

	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	conn := &pollingConn{api: api, cancel: cancel}
	conn.running.Store(true)

	go func() {
		defer conn.running.Store(false)
		for {
			select {
			case <-connCtx.Done():
				api.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					d.logger.Info("updates channel closed", slog.String("bot_id", bot.ID))
					return
				}
				msg := update.Message
				if msg == nil {
					msg = update.ChannelPost
				}
				if msg == nil || strings.TrimSpace(msg.Text) == "" {
					continue
				}
				up := normalizeUpdate(msg, api.Self.UserName)
				reply := &chatReplySender{api: api, chatID: msg.Chat.ID}
				handler(connCtx, bot, up, reply)
			}
		}
	}()

	return conn, nil
}

type pollingConn struct {
	api     *tgbotapi.BotAPI
	cancel  context.CancelFunc
	running atomic.Bool
}

// Stop ends the update loop. The underlying HTTP transport is left to the
// process: the Bot API client has no hard close.
func (c *pollingConn) Stop() {
	c.cancel()
	c.api.StopReceivingUpdates()
}

func (c *pollingConn) Running() bool {
	return c.running.Load()
}

type chatReplySender struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func (s *chatReplySender) Send(ctx context.Context, text string) error {
	_, err := s.api.Send(tgbotapi.NewMessage(s.chatID, text))
	return err
}

func (s *chatReplySender) Typing(ctx context.Context) {
	_, _ = s.api.Request(tgbotapi.NewChatAction(s.chatID, tgbotapi.ChatTyping))
}

func normalizeUpdate(msg *tgbotapi.Message, selfUsername string) dispatch.Update {
	up := dispatch.Update{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		ChatType:  normalizeChatType(msg.Chat.Type),
		Text:      msg.Text,
	}
	if msg.From != nil {
		up.UserID = msg.From.ID
		up.Username = msg.From.UserName
		up.FirstName = msg.From.FirstName
	}
	for _, entity := range msg.Entities {
		switch entity.Type {
		case "mention":
			if selfUsername != "" && strings.Contains(strings.ToLower(msg.Text), "@"+strings.ToLower(selfUsername)) {
				up.Mentioned = true
			}
		case "url", "text_link":
			up.HasLink = true
		}
	}
	// Commands addressed as /cmd@BotName match configured triggers by their
	// bare form.
	if selfUsername != "" && strings.HasPrefix(up.Text, "/") {
		if fields := strings.Fields(up.Text); len(fields) > 0 {
			suffix := "@" + strings.ToLower(selfUsername)
			if strings.HasSuffix(strings.ToLower(fields[0]), suffix) {
				bare := fields[0][:len(fields[0])-len(suffix)]
				up.Text = bare + strings.TrimPrefix(up.Text, fields[0])
			}
		}
	}
	return up
}

func normalizeChatType(t string) store.ChatType {
	switch t {
	case "private":
		return store.ChatTypePrivate
	case "group", "supergroup":
		return store.ChatTypeGroup
	case "channel":
		return store.ChatTypeChannel
	default:
		return store.ChatType(t)
	}
}
