package store

import "time"

// BotStatus is the dashboard-owned operating status of a bot record.
type BotStatus string

const (
	BotStatusDraft    BotStatus = "draft"
	BotStatusActive   BotStatus = "active"
	BotStatusInactive BotStatus = "inactive"
	BotStatusError    BotStatus = "error"
)

// ConnState is the runtime-owned connection status of a bot record.
type ConnState string

const (
	ConnStateConnected    ConnState = "connected"
	ConnStateDisconnected ConnState = "disconnected"
	ConnStateError        ConnState = "error"
)

// ResponseMode selects how free-text messages are answered.
type ResponseMode string

const (
	ResponseModeRules ResponseMode = "rules"
	ResponseModeAI    ResponseMode = "ai"
)

// AccessMode is whether any sender may interact with a bot or only the allow-list.
type AccessMode string

const (
	AccessModeOpen      AccessMode = "open"
	AccessModeWhitelist AccessMode = "whitelist"
)

// ChatType mirrors Telegram chat types. Supergroups are folded into ChatTypeGroup.
type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
	ChatTypeChannel ChatType = "channel"
)

// Tone selects the voice of AI replies.
type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneProfessional Tone = "professional"
	ToneFunny        Tone = "funny"
	ToneCustom       Tone = "custom"
)

// FAQEntry is one question/answer pair fed into the AI system prompt.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AIConfig is the AI sub-configuration of a bot.
type AIConfig struct {
	Tone            Tone
	CustomTone      string
	Knowledge       string
	FAQ             []FAQEntry
	ForbiddenTopics []string
	MaxTokens       int
}

// Bot is one configured bot identity as stored by the dashboard.
// TokenEncrypted never leaves the secret package in plaintext.
type Bot struct {
	ID                   string
	Name                 string
	Description          string
	TokenEncrypted       string
	Status               BotStatus
	ConnectionStatus     ConnState
	Language             string
	ResponseMode         ResponseMode
	PollingEnabled       bool
	AccessMode           AccessMode
	AllowedUsers         []string
	AdminUsers           []string
	AllowedChatTypes     []ChatType
	RespondOnlyOnMention bool
	CooldownSeconds      int
	ResponseDelayMs      int
	AntiSpam             bool
	BlockedKeywords      []string
	BlockLinks           bool
	FallbackMessage      string
	AI                   AIConfig
	ModuleWelcome        bool
	ModuleHelp           bool
	ModuleAutoReplies    bool
	TotalMessages        int64
	MessagesToday        int64
	UniqueUsers          int64
	LastActivity         time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AllowsChatType reports whether the bot accepts updates from the given chat type.
func (b Bot) AllowsChatType(t ChatType) bool {
	for _, allowed := range b.AllowedChatTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

// Command is one custom command bound to a bot.
type Command struct {
	ID              string
	BotID           string
	Trigger         string
	Type            string
	Response        string
	AdminOnly       bool
	PrivateChatOnly bool
	CooldownSeconds int
	DisplayOrder    int
}

// Template names the runtime renders.
const (
	TemplateWelcome = "welcome"
	TemplateHelp    = "help"
)

// Template is a named text template per bot with variable placeholders.
type Template struct {
	ID      string
	BotID   string
	Name    string
	Content string
}

// LogKind distinguishes the two inbound event kinds.
type LogKind string

const (
	LogKindMessage LogKind = "message"
	LogKindCommand LogKind = "command"
)

// LogEntry is one append-only record of an inbound event.
type LogEntry struct {
	BotID    string
	Kind     LogKind
	ChatID   string
	ChatType ChatType
	UserID   string
	Username string
	Text     string
	Outcome  string
}
