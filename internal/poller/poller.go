// Package poller implements the per-family feed poll service: it computes the
// delta of each tracked entity against its stored watermark, advances the
// watermark monotonically, and hands the new items to the dispatcher in
// chronological order.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"herald_bot/internal/feed"
	"herald_bot/internal/model"
)

// BindingStore is the subset of the store the poller reads and writes.
type BindingStore interface {
	ListTracked(ctx context.Context, family string) ([]model.TrackedEntity, error)
	AdvanceWatermark(ctx context.Context, family, entityKey string, t time.Time) error
}

// ItemDispatcher delivers an ordered list of rendered items to bound chats.
type ItemDispatcher interface {
	Dispatch(ctx context.Context, entityKey string, items []string, chatIDs []int64)
}

// Renderer turns a feed item into the notification text sent to chats.
type Renderer func(family string, item feed.Item) string

// Poller polls one feed family. It satisfies the scheduler's TimedService
// contract.
type Poller struct {
	family     string
	store      BindingStore
	source     feed.Source
	dispatcher ItemDispatcher
	render     Renderer
	log        *slog.Logger
}

// New creates a Poller. Missing dependencies are construction-time errors so
// that a misconfigured service fails at startup, not mid-cycle.
func New(family string, store BindingStore, source feed.Source, dispatcher ItemDispatcher, render Renderer, log *slog.Logger) (*Poller, error) {
	if family == "" {
		return nil, fmt.Errorf("family name is required")
	}
	if store == nil {
		return nil, fmt.Errorf("poller %s: binding store is required", family)
	}
	if source == nil {
		return nil, fmt.Errorf("poller %s: feed source is required", family)
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("poller %s: dispatcher is required", family)
	}
	if render == nil {
		return nil, fmt.Errorf("poller %s: renderer is required", family)
	}
	if log == nil {
		return nil, fmt.Errorf("poller %s: logger is required", family)
	}
	return &Poller{
		family:     family,
		store:      store,
		source:     source,
		dispatcher: dispatcher,
		render:     render,
		log:        log,
	}, nil
}

// Name identifies the poller in scheduler logs.
func (p *Poller) Name() string {
	return "poll:" + p.family
}

// Callback runs one poll cycle over every tracked entity of the family.
// Per-entity failures are logged and isolated; they never abort the cycle.
func (p *Poller) Callback(ctx context.Context) error {
	entities, err := p.store.ListTracked(ctx, p.family)
	if err != nil {
		return fmt.Errorf("list tracked entities: %w", err)
	}

	for _, e := range entities {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.processEntity(ctx, e)
	}
	return nil
}

func (p *Poller) processEntity(ctx context.Context, e model.TrackedEntity) {
	items, err := p.source.FetchLatest(ctx, e.Key)
	if err != nil {
		p.log.Error("fetch feed", "family", p.family, "entity", e.Key, "error", err)
		return
	}

	newestSeen := time.Unix(0, 0).UTC()
	if len(items) > 0 {
		newestSeen = items[0].OccurredAt
	}

	// Items arrive newest-first; stop at the first already-seen item so the
	// scan is bounded by the delta size, not the feed length.
	var fresh []feed.Item
	for _, it := range items {
		if !it.OccurredAt.After(e.Watermark) {
			break
		}
		fresh = append(fresh, it)
	}

	// Replay the delta oldest-first, tracking the watermark along the way.
	watermark := e.Watermark
	rendered := make([]string, 0, len(fresh))
	for i := len(fresh) - 1; i >= 0; i-- {
		watermark = fresh[i].OccurredAt
		rendered = append(rendered, p.render(p.family, fresh[i]))
	}

	// The feed may report a newest timestamp ahead of any item's own time
	// (upstream clock skew); keep the larger of the two.
	if newestSeen.After(watermark) {
		watermark = newestSeen
	}

	if watermark.After(e.Watermark) {
		if err := p.store.AdvanceWatermark(ctx, p.family, e.Key, watermark); err != nil {
			// Skip dispatch: the un-advanced watermark makes this delta
			// rediscoverable on the next cycle, a duplicate send would not be.
			p.log.Error("persist watermark", "family", p.family, "entity", e.Key, "error", err)
			return
		}
	}

	if len(rendered) == 0 {
		return
	}
	p.dispatcher.Dispatch(ctx, e.Key, rendered, e.ChatIDs)
}
