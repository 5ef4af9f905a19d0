package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/botpanel/telegram-bot-service/internal/store"
)

// Command dispatch outcomes recorded in the audit log.
const (
	outcomeReplied  = "replied"
	outcomeDenied   = "denied"
	outcomeCooldown = "cooldown"
	outcomeNoReply  = "no_reply"
	outcomeLogged   = "logged"
	outcomeBlocked  = "blocked"
	outcomeError    = "error"
)

const genericHelpText = "Available commands: /start, /help"

// CommandDispatcher resolves slash commands against configured custom
// commands or the built-in welcome/help behavior.
type CommandDispatcher struct {
	source   CommandSource
	recorder store.ActivityRecorder
	limiter  *Limiter
	logger   *slog.Logger
	now      func() time.Time
}

func NewCommandDispatcher(log *slog.Logger, source CommandSource, recorder store.ActivityRecorder, limiter *Limiter) *CommandDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &CommandDispatcher{
		source:   source,
		recorder: recorder,
		limiter:  limiter,
		logger:   log.With(slog.String("service", "command-dispatch")),
		now:      time.Now,
	}
}

// Dispatch handles one command update. Drops on dedup, access mode, and chat
// type are silent and leave no trace; everything past those checks is logged
// whether or not a reply was sent.
func (d *CommandDispatcher) Dispatch(ctx context.Context, bot store.Bot, up Update, reply ReplySender) {
	trigger := up.CommandTrigger()
	if trigger == "" {
		return
	}
	if !d.limiter.SeenOnce(d.limiter.CommandKey(up.ChatID, up.UserID, up.Text)) {
		return
	}
	if !senderAllowed(bot, up) {
		return
	}
	if !bot.AllowsChatType(up.ChatType) {
		return
	}

	var outcome string
	cmd, err := d.source.FindCommand(ctx, bot.ID, trigger)
	switch {
	case err == nil:
		outcome = d.runCommand(ctx, bot, cmd, up, reply)
	case errors.Is(err, store.ErrCommandNotFound):
		outcome = d.runBuiltin(ctx, bot, trigger, up, reply)
	default:
		d.logger.Error("command lookup failed",
			slog.String("bot_id", bot.ID), slog.String("trigger", trigger), slog.Any("error", err))
		outcome = outcomeError
	}

	d.recorder.Record(ctx, store.Activity{
		Log: store.LogEntry{
			BotID:    bot.ID,
			Kind:     store.LogKindCommand,
			ChatID:   fmt.Sprintf("%d", up.ChatID),
			ChatType: up.ChatType,
			UserID:   up.UserKey(),
			Username: up.Username,
			Text:     up.Text,
			Outcome:  outcome,
		},
		UserKey: up.UserKey(),
	})
}

func (d *CommandDispatcher) runCommand(ctx context.Context, bot store.Bot, cmd store.Command, up Update, reply ReplySender) string {
	if cmd.AdminOnly && len(bot.AdminUsers) > 0 && !isAdmin(bot, up) {
		d.send(ctx, bot, reply, "You are not allowed to use this command.")
		return outcomeDenied
	}
	if cmd.PrivateChatOnly && up.ChatType != store.ChatTypePrivate {
		d.send(ctx, bot, reply, "This command only works in a private chat.")
		return outcomeDenied
	}
	cooldown := time.Duration(cmd.CooldownSeconds) * time.Second
	if remaining := d.limiter.CommandCooldown(up.UserID, cmd.Trigger, cooldown); remaining > 0 {
		seconds := int(remaining.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		d.send(ctx, bot, reply, fmt.Sprintf("Please wait %d seconds before using this command again.", seconds))
		return outcomeCooldown
	}

	text := RenderTemplate(cmd.Response, bot, up, d.now())
	d.applyDelay(ctx, bot, reply)
	if err := reply.Send(ctx, text); err != nil {
		d.logger.Error("send command reply failed",
			slog.String("bot_id", bot.ID), slog.String("trigger", cmd.Trigger), slog.Any("error", err))
		return outcomeError
	}
	d.limiter.TouchCommand(up.UserID, cmd.Trigger)
	return outcomeReplied
}

func (d *CommandDispatcher) runBuiltin(ctx context.Context, bot store.Bot, trigger string, up Update, reply ReplySender) string {
	switch trigger {
	case "/start":
		if !bot.ModuleWelcome {
			return outcomeNoReply
		}
		tpl, err := d.source.GetTemplate(ctx, bot.ID, store.TemplateWelcome)
		if err != nil || tpl.Content == "" {
			if err != nil && !errors.Is(err, store.ErrTemplateNotFound) {
				d.logger.Warn("welcome template lookup failed", slog.String("bot_id", bot.ID), slog.Any("error", err))
			}
			return outcomeNoReply
		}
		d.applyDelay(ctx, bot, reply)
		if err := reply.Send(ctx, RenderTemplate(tpl.Content, bot, up, d.now())); err != nil {
			d.logger.Error("send welcome failed", slog.String("bot_id", bot.ID), slog.Any("error", err))
			return outcomeError
		}
		return outcomeReplied

	case "/help":
		if !bot.ModuleHelp {
			return outcomeNoReply
		}
		text := genericHelpText
		tpl, err := d.source.GetTemplate(ctx, bot.ID, store.TemplateHelp)
		if err == nil && tpl.Content != "" {
			text = RenderTemplate(tpl.Content, bot, up, d.now())
		} else if err != nil && !errors.Is(err, store.ErrTemplateNotFound) {
			d.logger.Warn("help template lookup failed", slog.String("bot_id", bot.ID), slog.Any("error", err))
		}
		d.applyDelay(ctx, bot, reply)
		if err := reply.Send(ctx, text); err != nil {
			d.logger.Error("send help failed", slog.String("bot_id", bot.ID), slog.Any("error", err))
			return outcomeError
		}
		return outcomeReplied

	default:
		if bot.FallbackMessage == "" {
			return outcomeNoReply
		}
		d.applyDelay(ctx, bot, reply)
		if err := reply.Send(ctx, bot.FallbackMessage); err != nil {
			d.logger.Error("send fallback failed", slog.String("bot_id", bot.ID), slog.Any("error", err))
			return outcomeError
		}
		return outcomeReplied
	}
}

func (d *CommandDispatcher) send(ctx context.Context, bot store.Bot, reply ReplySender, text string) {
	if err := reply.Send(ctx, text); err != nil {
		d.logger.Error("send reply failed", slog.String("bot_id", bot.ID), slog.Any("error", err))
	}
}

// applyDelay simulates typing latency when the bot configures a response delay.
func (d *CommandDispatcher) applyDelay(ctx context.Context, bot store.Bot, reply ReplySender) {
	applyResponseDelay(ctx, bot, reply)
}

func applyResponseDelay(ctx context.Context, bot store.Bot, reply ReplySender) {
	if bot.ResponseDelayMs <= 0 {
		return
	}
	reply.Typing(ctx)
	timer := time.NewTimer(time.Duration(bot.ResponseDelayMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
