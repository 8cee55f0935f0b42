// Package model defines the domain types used across the application.
package model

import "time"

// TrackedEntity is one external feed subject (an account handle, a show slug)
// whose new items are polled for. The watermark marks the newest item already
// dispatched for it and never moves backwards.
type TrackedEntity struct {
	Family    string
	Key       string
	Watermark time.Time
	ChatIDs   []int64
	CreatedAt time.Time
}

// Binding associates a tracked entity with one chat that receives its
// notifications.
type Binding struct {
	Family    string
	EntityKey string
	ChatID    int64
	CreatedAt time.Time
}

// AddResult reports the outcome of adding a binding.
type AddResult int

// Outcomes of AddBinding.
const (
	BindCreated AddResult = iota
	BindAlreadyExists
)

// RemoveResult reports the outcome of removing a binding.
type RemoveResult int

// Outcomes of RemoveBinding.
const (
	BindRemoved RemoveResult = iota
	BindNotFound
)

// BadWordKind defines how a bad-word entry is matched.
type BadWordKind string

// Supported bad-word kinds.
const (
	BadWordPlain BadWordKind = "word"
	BadWordRegex BadWordKind = "regex"
)

// BadWord is a per-chat forbidden word or pattern.
type BadWord struct {
	ChatID    int64
	Kind      BadWordKind
	Entry     string
	CreatedAt time.Time
}
