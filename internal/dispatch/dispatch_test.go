package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent    []sentMessage
	failFor map[int64]error
}

func (s *fakeSender) SendMessage(chatID int64, text string) error {
	if err := s.failFor[chatID]; err != nil {
		return err
	}
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchItemMajorOrder(t *testing.T) {
	sender := &fakeSender{}
	d, err := New(sender, 1000, discard())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	d.Dispatch(context.Background(), "alice", []string{"first", "second"}, []int64{100, 200})

	// Each item reaches every chat before the next item starts.
	want := []sentMessage{
		{100, "first"},
		{200, "first"},
		{100, "second"},
		{200, "second"},
	}
	if diff := cmp.Diff(want, sender.sent, cmp.AllowUnexported(sentMessage{})); diff != "" {
		t.Errorf("send order mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchSkipsFailingChat(t *testing.T) {
	sender := &fakeSender{failFor: map[int64]error{200: errors.New("blocked by user")}}
	d, err := New(sender, 1000, discard())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	d.Dispatch(context.Background(), "alice", []string{"first", "second"}, []int64{100, 200, 300})

	want := []sentMessage{
		{100, "first"},
		{300, "first"},
		{100, "second"},
		{300, "second"},
	}
	if diff := cmp.Diff(want, sender.sent, cmp.AllowUnexported(sentMessage{})); diff != "" {
		t.Errorf("send order mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchStopsOnCancelledContext(t *testing.T) {
	sender := &fakeSender{}
	d, err := New(sender, 1000, discard())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, "alice", []string{"first"}, []int64{100})

	if len(sender.sent) != 0 {
		t.Errorf("expected no sends after cancel, got %+v", sender.sent)
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(nil, 10, discard()); err == nil {
		t.Error("expected error for nil sender")
	}
	if _, err := New(&fakeSender{}, 10, nil); err == nil {
		t.Error("expected error for nil logger")
	}
	// A non-positive rate falls back to the default instead of failing.
	if _, err := New(&fakeSender{}, 0, discard()); err != nil {
		t.Errorf("unexpected error for zero rate: %v", err)
	}
}

func TestDispatchManyChats(t *testing.T) {
	sender := &fakeSender{}
	d, err := New(sender, 1000, discard())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	chats := make([]int64, 5)
	for i := range chats {
		chats[i] = int64(100 + i)
	}
	items := []string{"a", "b", "c"}
	d.Dispatch(context.Background(), "alice", items, chats)

	if got, want := len(sender.sent), len(items)*len(chats); got != want {
		t.Fatalf("sent %d messages, want %d", got, want)
	}
	for i, m := range sender.sent {
		wantText := items[i/len(chats)]
		if m.text != wantText {
			t.Errorf("send %d: text %q, want %q", i, m.text, wantText)
		}
	}
}
