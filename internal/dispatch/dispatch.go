// Package dispatch delivers ordered notification lists to bound chats.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

// Sender is the interface for sending chat messages.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Dispatcher fans newly discovered items out to every bound chat. Delivery is
// item-major: item i reaches all chats before item i+1 starts, so a reader of
// any single chat sees items in chronological order.
type Dispatcher struct {
	sender  Sender
	limiter *rate.Limiter
	log     *slog.Logger
}

// New creates a Dispatcher whose sends are paced at ratePerSec messages per
// second.
func New(sender Sender, ratePerSec int, log *slog.Logger) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	return &Dispatcher{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		log:     log,
	}, nil
}

// Dispatch sends each item, in the given order, to every chat. A failed send
// to one chat is logged and does not stop delivery to the remaining chats or
// items; the watermark was committed before Dispatch is called, so nothing
// here affects dedup state.
func (d *Dispatcher) Dispatch(ctx context.Context, entityKey string, items []string, chatIDs []int64) {
	sent := 0
	for _, item := range items {
		for _, chatID := range chatIDs {
			if err := d.limiter.Wait(ctx); err != nil {
				return
			}
			if err := d.sender.SendMessage(chatID, item); err != nil {
				d.log.Error("send notification", "entity", entityKey, "chat_id", chatID, "error", err)
				continue
			}
			sent++
		}
	}
	if sent > 0 {
		d.log.Info("dispatched notifications", "entity", entityKey, "count", sent)
	}
}
