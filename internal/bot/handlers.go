package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"herald_bot/internal/model"
	"herald_bot/internal/wordfilter"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Herald Bot!

Follow external feeds and get new items posted here as they appear.

Quick start:
1. /watch <service> <key> — follow a feed subject in this chat
2. /watching — show what this chat follows
3. /help — full command reference`)
}

func (b *Bot) handleHelp(chatID int64) {
	names := b.familyNames()
	b.reply(chatID, fmt.Sprintf(`Subscriptions:
/watch <service> <key> — follow a feed subject in this chat
/unwatch <service> <key> — stop following
/watching — show this chat's subscriptions
/unwatchall — remove every subscription of this chat

Moderation:
/spamguard on|off — toggle media-spam protection for this chat
/badword add <word> — delete messages containing a word
/badword addre <regex> — same, with a regular expression
/badword del <entry> — remove an entry
/badword list — show entries

Available services: %s`, strings.Join(names, ", ")))
}

func (b *Bot) handleWatch(ctx context.Context, chatID int64, args string) {
	family, key, err := ParseWatchArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /watch <service> <key>")
		return
	}
	if !b.families[family] {
		b.reply(chatID, fmt.Sprintf("Unknown service %q. Available: %s", family, strings.Join(b.familyNames(), ", ")))
		return
	}

	res, err := b.store.AddBinding(ctx, family, key, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to save subscription: %v", err))
		return
	}
	switch res {
	case model.BindAlreadyExists:
		b.reply(chatID, fmt.Sprintf("This chat already watches %s/%s.", family, key))
	default:
		b.reply(chatID, fmt.Sprintf("Now watching %s/%s. New items from now on will be posted here.", family, key))
	}
}

func (b *Bot) handleUnwatch(ctx context.Context, chatID int64, args string) {
	family, key, err := ParseWatchArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /unwatch <service> <key>")
		return
	}

	res, err := b.store.RemoveBinding(ctx, family, key, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to remove subscription: %v", err))
		return
	}
	switch res {
	case model.BindNotFound:
		b.reply(chatID, fmt.Sprintf("This chat does not watch %s/%s.", family, key))
	default:
		b.reply(chatID, fmt.Sprintf("Stopped watching %s/%s.", family, key))
	}
}

func (b *Bot) handleWatching(ctx context.Context, chatID int64) {
	bindings, err := b.store.ListBindings(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatBindingList(bindings))
}

func (b *Bot) handleUnwatchAll(ctx context.Context, chatID int64) {
	n, err := b.store.RemoveAllBindings(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if n == 0 {
		b.reply(chatID, "This chat has no subscriptions.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Removed %d subscription(s).", n))
}

func (b *Bot) handleSpamGuard(ctx context.Context, chatID int64, args string) {
	on, err := ParseOnOff(args)
	if err != nil {
		b.reply(chatID, "Usage: /spamguard on|off")
		return
	}

	if on {
		if err := b.store.UnexemptChannel(ctx, chatID); err != nil {
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
			return
		}
		b.reply(chatID, "Spam guard enabled for this chat.")
		return
	}
	if err := b.store.ExemptChannel(ctx, chatID); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, "Spam guard disabled for this chat.")
}

func (b *Bot) handleBadWord(ctx context.Context, chatID int64, args string) {
	cmd, err := ParseBadWordArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /badword add|addre|del <entry>  or  /badword list")
		return
	}

	switch cmd.Action {
	case "add", "addre":
		if cmd.Kind == model.BadWordRegex {
			if err := wordfilter.ValidateRegex(cmd.Entry); err != nil {
				b.reply(chatID, fmt.Sprintf("Invalid regex: %v", err))
				return
			}
		}
		w := &model.BadWord{ChatID: chatID, Kind: cmd.Kind, Entry: cmd.Entry}
		if err := b.store.AddBadWord(ctx, w); err != nil {
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
			return
		}
		b.reply(chatID, fmt.Sprintf("Entry %q added to this chat's word filter.", cmd.Entry))
	case "del":
		res, err := b.store.RemoveBadWord(ctx, chatID, cmd.Entry)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
			return
		}
		if res == model.BindNotFound {
			b.reply(chatID, fmt.Sprintf("Entry %q not found.", cmd.Entry))
			return
		}
		b.reply(chatID, fmt.Sprintf("Entry %q removed.", cmd.Entry))
	case "list":
		words, err := b.store.ListBadWords(ctx, chatID)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
			return
		}
		b.reply(chatID, FormatBadWordList(words))
	}
}

func (b *Bot) familyNames() []string {
	names := make([]string, 0, len(b.families))
	for name := range b.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
