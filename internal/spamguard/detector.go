// Package spamguard detects per-author media-spam bursts in a chat and
// triggers a moderation response.
package spamguard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Detection parameters. The window and threshold match the moderation policy:
// more than burstThreshold attachments from one author inside the trailing
// window is treated as spam.
const (
	historyLimit   = 50
	window         = 15 * time.Second
	burstThreshold = 3
	muteDuration   = 5 * time.Minute
)

// Message is one observed chat message.
type Message struct {
	ChatID      int64
	MessageID   int
	AuthorID    int64
	AuthorName  string
	SentAt      time.Time
	Attachments int
	Embeds      int
	FromBot     bool
}

// Moderator is the moderation sink consumed on a detection: delete the
// offending message, warn the chat, and mute the author.
type Moderator interface {
	DeleteMessage(chatID int64, messageID int) error
	SendMessage(chatID int64, text string) error
	MuteUser(chatID, userID int64, until time.Time) error
}

// Exemptions reports chats that opted out of spam checks.
type Exemptions interface {
	IsChannelExempt(ctx context.Context, chatID int64) (bool, error)
}

// Detector keeps an in-memory bounded history of recent messages per chat and
// evaluates each inbound message against the sliding window. It holds no
// persisted state; a restart simply forgets the window.
type Detector struct {
	mod    Moderator
	exempt Exemptions
	log    *slog.Logger

	mu      sync.Mutex
	history map[int64][]Message
}

// New creates a Detector. Both collaborators are required.
func New(mod Moderator, exempt Exemptions, log *slog.Logger) (*Detector, error) {
	if mod == nil {
		return nil, fmt.Errorf("moderator is required")
	}
	if exempt == nil {
		return nil, fmt.Errorf("exemption store is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Detector{
		mod:     mod,
		exempt:  exempt,
		log:     log,
		history: make(map[int64][]Message),
	}, nil
}

// HandleMessage records msg in the chat's history and, if it carries
// attachments or embeds, evaluates the author's recent burst. Transport
// failures while moderating are logged and swallowed: this is a best-effort
// control, not a hard guarantee. Safe for concurrent calls across chats.
func (d *Detector) HandleMessage(ctx context.Context, msg Message) {
	burst := d.record(msg)

	if msg.FromBot || msg.Attachments+msg.Embeds == 0 {
		return
	}
	if burst <= burstThreshold {
		return
	}

	exempt, err := d.exempt.IsChannelExempt(ctx, msg.ChatID)
	if err != nil {
		d.log.Error("check spam exemption", "chat_id", msg.ChatID, "error", err)
		return
	}
	if exempt {
		return
	}

	d.log.Info("media spam detected",
		"chat_id", msg.ChatID,
		"author_id", msg.AuthorID,
		"burst", burst,
	)

	if err := d.mod.DeleteMessage(msg.ChatID, msg.MessageID); err != nil {
		d.log.Warn("delete spam message", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
	}
	warning := fmt.Sprintf("%s: your message was removed as media spam. You are muted for %s.",
		msg.AuthorName, muteDuration)
	if err := d.mod.SendMessage(msg.ChatID, warning); err != nil {
		d.log.Warn("send spam warning", "chat_id", msg.ChatID, "error", err)
	}
	if err := d.mod.MuteUser(msg.ChatID, msg.AuthorID, msg.SentAt.Add(muteDuration)); err != nil {
		d.log.Warn("mute spam author", "chat_id", msg.ChatID, "author_id", msg.AuthorID, "error", err)
	}
}

// record appends msg to the chat's bounded history, prunes entries that fell
// out of the lookback window, and returns the author's attachment+embed sum
// inside the window (msg included).
func (d *Detector) record(msg Message) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := append(d.history[msg.ChatID], msg)

	// Lazy prune relative to the newest message in this chat.
	cutoff := msg.SentAt.Add(-window)
	trimmed := h[:0]
	for _, m := range h {
		if m.SentAt.After(cutoff) {
			trimmed = append(trimmed, m)
		}
	}
	if len(trimmed) > historyLimit {
		trimmed = trimmed[len(trimmed)-historyLimit:]
	}
	d.history[msg.ChatID] = trimmed

	sum := 0
	for _, m := range trimmed {
		if m.AuthorID == msg.AuthorID {
			sum += m.Attachments + m.Embeds
		}
	}
	return sum
}
