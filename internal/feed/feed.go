// Package feed defines the feed-fetch contract and its RSS implementation.
package feed

import (
	"context"
	"time"
)

// Item is a single unit of new content returned by a fetch. It is transient:
// never persisted, only passed through the dispatch pipeline.
type Item struct {
	Title      string
	Text       string
	Link       string
	Author     string
	OccurredAt time.Time
}

// Source fetches the latest items for one tracked entity of a feed family.
// Items are returned newest-first.
type Source interface {
	FetchLatest(ctx context.Context, entityKey string) ([]Item, error)
}
