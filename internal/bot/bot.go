package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"herald_bot/internal/config"
	"herald_bot/internal/spamguard"
	"herald_bot/internal/storage"
	"herald_bot/internal/wordfilter"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram gateway: it handles user commands, sends notifications
// on behalf of the dispatcher, and implements the moderation sink used by the
// spam guard and the word filter.
type Bot struct {
	api      telegramAPI
	store    storage.Store
	cfg      *config.Config
	families map[string]bool
	guard    *spamguard.Detector
	log      *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, and config.
func New(token string, store storage.Store, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	families := make(map[string]bool)
	for _, svc := range cfg.EnabledServices() {
		families[svc.Name] = true
	}

	return &Bot{
		api:      api,
		store:    store,
		cfg:      cfg,
		families: families,
		log:      log,
	}, nil
}

// SetSpamGuard attaches the media-spam detector. The detector is constructed
// after the bot because it consumes the bot as its moderation sink.
func (b *Bot) SetSpamGuard(d *spamguard.Detector) {
	b.guard = d
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			if update.Message.IsCommand() {
				if !b.cfg.IsUserAllowed(update.Message.From.ID) {
					b.reply(update.Message.Chat.ID, "Access denied.")
					continue
				}
				b.handleCommand(ctx, update.Message)
				continue
			}
			b.handleChatMessage(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// DeleteMessage removes a message from a chat.
func (b *Bot) DeleteMessage(chatID int64, messageID int) error {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// MuteUser revokes a user's send permissions in a chat until the given time.
func (b *Bot) MuteUser(chatID, userID int64, until time.Time) error {
	restrict := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		UntilDate:   until.Unix(),
		Permissions: &tgbotapi.ChatPermissions{},
	}
	if _, err := b.api.Request(restrict); err != nil {
		return fmt.Errorf("restrict member: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendMessage(chatID, text); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}

// handleChatMessage runs the moderation path for a non-command message: the
// sliding-window spam check, then the bad-word filter.
func (b *Bot) handleChatMessage(ctx context.Context, msg *tgbotapi.Message) {
	if b.cfg.SpamGuard.Enabled && b.guard != nil {
		b.guard.HandleMessage(ctx, toGuardMessage(msg))
	}
	b.applyWordFilter(ctx, msg)
}

func (b *Bot) applyWordFilter(ctx context.Context, msg *tgbotapi.Message) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" || msg.From == nil || msg.From.IsBot {
		return
	}

	words, err := b.store.ListBadWords(ctx, msg.Chat.ID)
	if err != nil {
		b.log.Error("list bad words", "chat_id", msg.Chat.ID, "error", err)
		return
	}
	if len(words) == 0 {
		return
	}

	if _, ok := wordfilter.Match(text, words); !ok {
		return
	}

	// Best effort, like the spam guard: failures are logged, never raised.
	if err := b.DeleteMessage(msg.Chat.ID, msg.MessageID); err != nil {
		b.log.Warn("delete filtered message", "chat_id", msg.Chat.ID, "error", err)
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("%s: your message was removed for containing a forbidden word.", authorName(msg)))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "watch":
		b.handleWatch(ctx, chatID, args)
	case "unwatch":
		b.handleUnwatch(ctx, chatID, args)
	case "watching":
		b.handleWatching(ctx, chatID)
	case "unwatchall":
		b.handleUnwatchAll(ctx, chatID)
	case "spamguard":
		b.handleSpamGuard(ctx, chatID, args)
	case "badword":
		b.handleBadWord(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

func toGuardMessage(msg *tgbotapi.Message) spamguard.Message {
	return spamguard.Message{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.MessageID,
		AuthorID:    msg.From.ID,
		AuthorName:  authorName(msg),
		SentAt:      msg.Time(),
		Attachments: attachmentCount(msg),
		Embeds:      embedCount(msg),
		FromBot:     msg.From.IsBot,
	}
}

func authorName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return "unknown"
	}
	if msg.From.UserName != "" {
		return "@" + msg.From.UserName
	}
	return msg.From.FirstName
}

// attachmentCount maps Telegram media kinds to a single attachment count.
func attachmentCount(msg *tgbotapi.Message) int {
	n := 0
	if len(msg.Photo) > 0 {
		n++
	}
	for _, present := range []bool{
		msg.Video != nil,
		msg.Document != nil,
		msg.Animation != nil,
		msg.Sticker != nil,
		msg.Audio != nil,
		msg.VideoNote != nil,
		msg.Voice != nil,
	} {
		if present {
			n++
		}
	}
	return n
}

// embedCount counts link entities, the closest Telegram analog of embeds.
func embedCount(msg *tgbotapi.Message) int {
	n := 0
	for _, e := range msg.Entities {
		if e.Type == "url" || e.Type == "text_link" {
			n++
		}
	}
	for _, e := range msg.CaptionEntities {
		if e.Type == "url" || e.Type == "text_link" {
			n++
		}
	}
	return n
}
