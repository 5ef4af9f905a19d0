package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/botpanel/telegram-bot-service/internal/store"
)

// Shared fakes for the dispatcher tests.

type fakeSource struct {
	commands  map[string]store.Command
	templates map[string]store.Template
}

func (f *fakeSource) FindCommand(ctx context.Context, botID, trigger string) (store.Command, error) {
	if cmd, ok := f.commands[trigger]; ok {
		return cmd, nil
	}
	return store.Command{}, store.ErrCommandNotFound
}

func (f *fakeSource) GetTemplate(ctx context.Context, botID, name string) (store.Template, error) {
	if tpl, ok := f.templates[name]; ok {
		return tpl, nil
	}
	return store.Template{}, store.ErrTemplateNotFound
}

type fakeRecorder struct {
	mu         sync.Mutex
	activities []store.Activity
}

func (f *fakeRecorder) Record(ctx context.Context, act store.Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, act)
}

func (f *fakeRecorder) recorded() []store.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Activity(nil), f.activities...)
}

type fakeReply struct {
	mu     sync.Mutex
	sent   []string
	typing int
	err    error
}

func (f *fakeReply) Send(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeReply) Typing(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
}

func (f *fakeReply) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (f *fakeCompleter) Generate(ctx context.Context, text string, bot store.Bot, userID, chatID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reply, f.err
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errSendFailed = errors.New("send failed")

func openBot() store.Bot {
	return store.Bot{
		ID:               "22222222-2222-2222-2222-222222222222",
		Name:             "Test Bot",
		Status:           store.BotStatusActive,
		Language:         "en",
		ResponseMode:     store.ResponseModeRules,
		AccessMode:       store.AccessModeOpen,
		AllowedChatTypes: []store.ChatType{store.ChatTypePrivate, store.ChatTypeGroup},
		ModuleWelcome:    true,
		ModuleHelp:       true,
	}
}

func privateUpdate(text string) Update {
	return Update{
		MessageID: 100,
		ChatID:    500,
		ChatType:  store.ChatTypePrivate,
		UserID:    42,
		Username:  "eva_k",
		FirstName: "Eva",
		Text:      text,
	}
}

// limiterAt returns a limiter with a controllable clock.
func limiterAt(start time.Time) (*Limiter, *time.Time) {
	now := start
	l := NewLimiter()
	l.now = func() time.Time { return now }
	return l, &now
}
