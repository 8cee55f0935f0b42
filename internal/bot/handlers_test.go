package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"herald_bot/internal/config"
	"herald_bot/internal/storage"
)

type fakeAPI struct {
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
}

func (a *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		a.sent = append(a.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (a *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	a.requests = append(a.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (a *fakeAPI) GetUpdatesChan(u tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (a *fakeAPI) StopReceivingUpdates() {}

func (a *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	if len(a.sent) == 0 {
		t.Fatal("no message was sent")
	}
	return a.sent[len(a.sent)-1].Text
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	api := &fakeAPI{}
	b := &Bot{
		api:      api,
		store:    store,
		cfg:      &config.Config{},
		families: map[string]bool{"microblog": true, "episodes": true},
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return b, api
}

func TestHandleWatch(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBot(t)

	b.handleWatch(ctx, 100, "microblog alice")
	if got := api.lastText(t); !strings.Contains(got, "Now watching microblog/alice") {
		t.Errorf("reply = %q", got)
	}

	// Watching again reports the existing subscription.
	b.handleWatch(ctx, 100, "microblog alice")
	if got := api.lastText(t); !strings.Contains(got, "already watches") {
		t.Errorf("reply = %q", got)
	}

	bindings, err := b.store.ListBindings(ctx, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bindings) != 1 {
		t.Errorf("expected 1 binding, got %d", len(bindings))
	}
}

func TestHandleWatchUnknownService(t *testing.T) {
	b, api := newTestBot(t)

	b.handleWatch(context.Background(), 100, "weather berlin")
	if got := api.lastText(t); !strings.Contains(got, "Unknown service") {
		t.Errorf("reply = %q", got)
	}
}

func TestHandleWatchUsage(t *testing.T) {
	b, api := newTestBot(t)

	b.handleWatch(context.Background(), 100, "microblog")
	if got := api.lastText(t); !strings.Contains(got, "Usage:") {
		t.Errorf("reply = %q", got)
	}
}

func TestHandleUnwatch(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBot(t)

	b.handleUnwatch(ctx, 100, "microblog alice")
	if got := api.lastText(t); !strings.Contains(got, "does not watch") {
		t.Errorf("reply = %q", got)
	}

	b.handleWatch(ctx, 100, "microblog alice")
	b.handleUnwatch(ctx, 100, "microblog alice")
	if got := api.lastText(t); !strings.Contains(got, "Stopped watching") {
		t.Errorf("reply = %q", got)
	}
}

func TestHandleUnwatchAll(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBot(t)

	b.handleUnwatchAll(ctx, 100)
	if got := api.lastText(t); !strings.Contains(got, "no subscriptions") {
		t.Errorf("reply = %q", got)
	}

	b.handleWatch(ctx, 100, "microblog alice")
	b.handleWatch(ctx, 100, "episodes weekly")
	b.handleUnwatchAll(ctx, 100)
	if got := api.lastText(t); !strings.Contains(got, "Removed 2 subscription(s)") {
		t.Errorf("reply = %q", got)
	}
}

func TestHandleSpamGuard(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBot(t)

	b.handleSpamGuard(ctx, 100, "off")
	if got := api.lastText(t); !strings.Contains(got, "disabled") {
		t.Errorf("reply = %q", got)
	}
	exempt, err := b.store.IsChannelExempt(ctx, 100)
	if err != nil {
		t.Fatalf("check exempt: %v", err)
	}
	if !exempt {
		t.Error("chat should be exempt after /spamguard off")
	}

	b.handleSpamGuard(ctx, 100, "on")
	exempt, _ = b.store.IsChannelExempt(ctx, 100)
	if exempt {
		t.Error("chat should not be exempt after /spamguard on")
	}

	b.handleSpamGuard(ctx, 100, "sideways")
	if got := api.lastText(t); !strings.Contains(got, "Usage:") {
		t.Errorf("reply = %q", got)
	}
}

func TestHandleBadWord(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBot(t)

	b.handleBadWord(ctx, 100, "add spoiler")
	if got := api.lastText(t); !strings.Contains(got, "added") {
		t.Errorf("reply = %q", got)
	}

	b.handleBadWord(ctx, 100, "addre (unclosed")
	if got := api.lastText(t); !strings.Contains(got, "Invalid regex") {
		t.Errorf("reply = %q", got)
	}

	b.handleBadWord(ctx, 100, "list")
	if got := api.lastText(t); !strings.Contains(got, "spoiler") {
		t.Errorf("reply = %q", got)
	}

	b.handleBadWord(ctx, 100, "del spoiler")
	if got := api.lastText(t); !strings.Contains(got, "removed") {
		t.Errorf("reply = %q", got)
	}
	b.handleBadWord(ctx, 100, "del spoiler")
	if got := api.lastText(t); !strings.Contains(got, "not found") {
		t.Errorf("reply = %q", got)
	}
}

func TestApplyWordFilterDeletesMatch(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBot(t)

	b.handleBadWord(ctx, 100, "add spoiler")

	msg := &tgbotapi.Message{
		MessageID: 42,
		Chat:      &tgbotapi.Chat{ID: 100},
		From:      &tgbotapi.User{ID: 7, UserName: "someone"},
		Text:      "massive SPOILER incoming",
	}
	b.applyWordFilter(ctx, msg)

	if len(api.requests) != 1 {
		t.Fatalf("expected one delete request, got %d", len(api.requests))
	}
	del, ok := api.requests[0].(tgbotapi.DeleteMessageConfig)
	if !ok {
		t.Fatalf("request type %T, want DeleteMessageConfig", api.requests[0])
	}
	if del.MessageID != 42 || del.ChatID != 100 {
		t.Errorf("deleted message %d in chat %d", del.MessageID, del.ChatID)
	}
	if got := api.lastText(t); !strings.Contains(got, "@someone") {
		t.Errorf("warning = %q", got)
	}
}

func TestApplyWordFilterIgnoresCleanText(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBot(t)

	b.handleBadWord(ctx, 100, "add spoiler")
	api.sent = nil

	msg := &tgbotapi.Message{
		MessageID: 42,
		Chat:      &tgbotapi.Chat{ID: 100},
		From:      &tgbotapi.User{ID: 7},
		Text:      "totally fine message",
	}
	b.applyWordFilter(ctx, msg)

	if len(api.requests) != 0 || len(api.sent) != 0 {
		t.Errorf("expected no moderation, got requests=%d sent=%d", len(api.requests), len(api.sent))
	}
}
