// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"time"

	"herald_bot/internal/model"
)

// Store is the interface for all persistence operations.
//
// Binding operations are scoped to one feed family at a time; every call is
// individually transactional. No cross-call transaction is needed because
// each mutation is either idempotent or monotone.
type Store interface {
	// AddBinding binds an entity to a chat, creating the tracked entity with
	// a watermark of "now" if it does not exist yet.
	AddBinding(ctx context.Context, family, entityKey string, chatID int64) (model.AddResult, error)
	// RemoveBinding unbinds an entity from a chat and garbage-collects the
	// tracked entity when its last binding is removed.
	RemoveBinding(ctx context.Context, family, entityKey string, chatID int64) (model.RemoveResult, error)
	// RemoveAllBindings drops every binding of a chat across all families and
	// returns the number of bindings removed.
	RemoveAllBindings(ctx context.Context, chatID int64) (int, error)
	ListBindings(ctx context.Context, chatID int64) ([]model.Binding, error)
	// ListTracked returns every tracked entity of a family together with its
	// watermark and bound chats. This is the read done once per poll cycle.
	ListTracked(ctx context.Context, family string) ([]model.TrackedEntity, error)
	// AdvanceWatermark sets the entity's watermark to max(current, t).
	AdvanceWatermark(ctx context.Context, family, entityKey string, t time.Time) error

	ExemptChannel(ctx context.Context, chatID int64) error
	UnexemptChannel(ctx context.Context, chatID int64) error
	IsChannelExempt(ctx context.Context, chatID int64) (bool, error)

	AddBadWord(ctx context.Context, w *model.BadWord) error
	RemoveBadWord(ctx context.Context, chatID int64, entry string) (model.RemoveResult, error)
	ListBadWords(ctx context.Context, chatID int64) ([]model.BadWord, error)

	Close() error
}
