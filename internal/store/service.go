// Package store is the typed gateway to the bot configuration database.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/botpanel/telegram-bot-service/internal/db"
)

var (
	ErrBotNotFound      = errors.New("bot not found")
	ErrCommandNotFound  = errors.New("command not found")
	ErrTemplateNotFound = errors.New("template not found")
)

// Service runs typed queries against the bots, bot_commands, bot_templates,
// and bot_logs tables.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "store")),
	}
}

const botColumns = `id, name, description, token_encrypted, status, connection_status,
	language, response_mode, polling_enabled, access_mode, allowed_users, admin_users,
	allowed_chat_types, respond_only_on_mention, cooldown_seconds, response_delay_ms,
	anti_spam, blocked_keywords, block_links, fallback_message,
	ai_tone, ai_custom_tone, ai_knowledge, ai_faq, ai_forbidden_topics, ai_max_tokens,
	module_welcome, module_help, module_auto_replies,
	total_messages, messages_today, unique_users, last_activity, created_at, updated_at`

// ListActiveBots returns every bot record with status = 'active'.
func (s *Service) ListActiveBots(ctx context.Context) ([]Bot, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("store pool not configured")
	}
	rows, err := s.pool.Query(ctx, `SELECT `+botColumns+` FROM bots WHERE status = $1`, string(BotStatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active bots: %w", err)
	}
	defer rows.Close()

	bots := make([]Bot, 0)
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bot: %w", err)
		}
		bots = append(bots, bot)
	}
	return bots, rows.Err()
}

// GetBot returns a single bot record by id.
func (s *Service) GetBot(ctx context.Context, botID string) (Bot, error) {
	if s.pool == nil {
		return Bot{}, fmt.Errorf("store pool not configured")
	}
	id, err := db.ParseUUID(botID)
	if err != nil {
		return Bot{}, err
	}
	row := s.pool.QueryRow(ctx, `SELECT `+botColumns+` FROM bots WHERE id = $1`, id)
	bot, err := scanBot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bot{}, ErrBotNotFound
		}
		return Bot{}, fmt.Errorf("get bot: %w", err)
	}
	return bot, nil
}

// SetBotState updates the status and connection-status fields of a bot record.
func (s *Service) SetBotState(ctx context.Context, botID string, status BotStatus, conn ConnState) error {
	if s.pool == nil {
		return fmt.Errorf("store pool not configured")
	}
	id, err := db.ParseUUID(botID)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE bots SET status = $2, connection_status = $3, updated_at = now() WHERE id = $1`,
		id, string(status), string(conn))
	if err != nil {
		return fmt.Errorf("set bot state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBotNotFound
	}
	return nil
}

// FindCommand looks up a command by exact trigger text. When several rows
// share a trigger the lowest display order wins.
func (s *Service) FindCommand(ctx context.Context, botID, trigger string) (Command, error) {
	if s.pool == nil {
		return Command{}, fmt.Errorf("store pool not configured")
	}
	id, err := db.ParseUUID(botID)
	if err != nil {
		return Command{}, err
	}
	row := s.pool.QueryRow(ctx,
		`SELECT id, bot_id, trigger, type, response, admin_only, private_chat_only,
			cooldown_seconds, display_order
		 FROM bot_commands
		 WHERE bot_id = $1 AND trigger = $2
		 ORDER BY display_order ASC
		 LIMIT 1`,
		id, strings.TrimSpace(trigger))

	var cmd Command
	var cmdID, cmdBotID pgtype.UUID
	if err := row.Scan(&cmdID, &cmdBotID, &cmd.Trigger, &cmd.Type, &cmd.Response,
		&cmd.AdminOnly, &cmd.PrivateChatOnly, &cmd.CooldownSeconds, &cmd.DisplayOrder); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Command{}, ErrCommandNotFound
		}
		return Command{}, fmt.Errorf("find command: %w", err)
	}
	cmd.ID = db.UUIDString(cmdID)
	cmd.BotID = db.UUIDString(cmdBotID)
	return cmd, nil
}

// GetTemplate returns the named template ("welcome" or "help") for a bot.
func (s *Service) GetTemplate(ctx context.Context, botID, name string) (Template, error) {
	if s.pool == nil {
		return Template{}, fmt.Errorf("store pool not configured")
	}
	id, err := db.ParseUUID(botID)
	if err != nil {
		return Template{}, err
	}
	row := s.pool.QueryRow(ctx,
		`SELECT id, bot_id, name, content FROM bot_templates WHERE bot_id = $1 AND name = $2`,
		id, name)

	var tpl Template
	var tplID, tplBotID pgtype.UUID
	if err := row.Scan(&tplID, &tplBotID, &tpl.Name, &tpl.Content); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, fmt.Errorf("get template: %w", err)
	}
	tpl.ID = db.UUIDString(tplID)
	tpl.BotID = db.UUIDString(tplBotID)
	return tpl, nil
}

// InsertLog appends one log entry. The log table is write-only for the runtime.
func (s *Service) InsertLog(ctx context.Context, entry LogEntry) error {
	if s.pool == nil {
		return fmt.Errorf("store pool not configured")
	}
	id, err := db.ParseUUID(entry.BotID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO bot_logs (bot_id, kind, chat_id, chat_type, user_id, username, text, outcome)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, string(entry.Kind), entry.ChatID, string(entry.ChatType),
		entry.UserID, entry.Username, entry.Text, entry.Outcome)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// RecordActivity bumps the bot's message counters and last-activity timestamp,
// and counts the sender toward unique_users once per day.
func (s *Service) RecordActivity(ctx context.Context, botID, userKey string) error {
	if s.pool == nil {
		return fmt.Errorf("store pool not configured")
	}
	id, err := db.ParseUUID(botID)
	if err != nil {
		return err
	}
	newUser := false
	if strings.TrimSpace(userKey) != "" {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO bot_daily_users (bot_id, user_key) VALUES ($1, $2)
			 ON CONFLICT (bot_id, user_key, day) DO NOTHING`,
			id, userKey)
		if err != nil {
			return fmt.Errorf("record daily user: %w", err)
		}
		newUser = tag.RowsAffected() > 0
	}
	uniqueDelta := 0
	if newUser {
		uniqueDelta = 1
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE bots SET total_messages = total_messages + 1,
			messages_today = messages_today + 1,
			unique_users = unique_users + $2,
			last_activity = now()
		 WHERE id = $1`,
		id, uniqueDelta)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// ResetDailyCounters zeroes messages_today across all bots and clears stale
// daily-user rows. Run from the midnight cron job.
func (s *Service) ResetDailyCounters(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("store pool not configured")
	}
	if _, err := s.pool.Exec(ctx, `UPDATE bots SET messages_today = 0 WHERE messages_today <> 0`); err != nil {
		return fmt.Errorf("reset daily counters: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM bot_daily_users WHERE day < CURRENT_DATE`); err != nil {
		return fmt.Errorf("prune daily users: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBot(row rowScanner) (Bot, error) {
	var bot Bot
	var id pgtype.UUID
	var status, connStatus, responseMode, accessMode, tone string
	var chatTypes []string
	var faqRaw []byte
	var lastActivity, createdAt, updatedAt pgtype.Timestamptz

	if err := row.Scan(&id, &bot.Name, &bot.Description, &bot.TokenEncrypted,
		&status, &connStatus, &bot.Language, &responseMode, &bot.PollingEnabled,
		&accessMode, &bot.AllowedUsers, &bot.AdminUsers, &chatTypes,
		&bot.RespondOnlyOnMention, &bot.CooldownSeconds, &bot.ResponseDelayMs,
		&bot.AntiSpam, &bot.BlockedKeywords, &bot.BlockLinks, &bot.FallbackMessage,
		&tone, &bot.AI.CustomTone, &bot.AI.Knowledge, &faqRaw, &bot.AI.ForbiddenTopics,
		&bot.AI.MaxTokens, &bot.ModuleWelcome, &bot.ModuleHelp, &bot.ModuleAutoReplies,
		&bot.TotalMessages, &bot.MessagesToday, &bot.UniqueUsers,
		&lastActivity, &createdAt, &updatedAt); err != nil {
		return Bot{}, err
	}

	bot.ID = db.UUIDString(id)
	bot.Status = BotStatus(status)
	bot.ConnectionStatus = ConnState(connStatus)
	bot.ResponseMode = ResponseMode(responseMode)
	bot.AccessMode = AccessMode(accessMode)
	bot.AI.Tone = Tone(tone)
	bot.AllowedChatTypes = make([]ChatType, 0, len(chatTypes))
	for _, t := range chatTypes {
		bot.AllowedChatTypes = append(bot.AllowedChatTypes, ChatType(t))
	}
	if len(faqRaw) > 0 {
		if err := json.Unmarshal(faqRaw, &bot.AI.FAQ); err != nil {
			return Bot{}, fmt.Errorf("decode faq: %w", err)
		}
	}
	bot.LastActivity = db.TimeFromPg(lastActivity)
	bot.CreatedAt = db.TimeFromPg(createdAt)
	bot.UpdatedAt = db.TimeFromPg(updatedAt)
	return bot, nil
}
