package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxBodySize = 5 * 1024 * 1024

// RSSSource fetches a feed family's items over RSS/Atom. The URL template
// maps an entity key to its feed URL (e.g. "https://example.com/%s/rss").
type RSSSource struct {
	client      HTTPClient
	urlTemplate string
	timeout     time.Duration
}

// NewRSS creates an RSSSource with the given HTTP client and URL template.
func NewRSS(client HTTPClient, urlTemplate string) (*RSSSource, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if !strings.Contains(urlTemplate, "%s") {
		return nil, fmt.Errorf("url template %q must contain %%s for the entity key", urlTemplate)
	}
	return &RSSSource{
		client:      client,
		urlTemplate: urlTemplate,
		timeout:     30 * time.Second,
	}, nil
}

// FetchLatest downloads and parses the feed for one entity and returns its
// items newest-first. Items without a parseable timestamp are dropped since
// they cannot participate in watermark ordering.
func (s *RSSSource) FetchLatest(ctx context.Context, entityKey string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	url := fmt.Sprintf(s.urlTemplate, entityKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "HeraldBot/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		ts := itemTime(it)
		if ts == nil {
			continue
		}
		items = append(items, Item{
			Title:      it.Title,
			Text:       truncate(it.Description, 300),
			Link:       it.Link,
			Author:     itemAuthor(it, entityKey),
			OccurredAt: ts.UTC(),
		})
	}

	// Upstream ordering is not trusted; the poller depends on newest-first.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredAt.After(items[j].OccurredAt)
	})
	return items, nil
}

func itemTime(it *gofeed.Item) *time.Time {
	if it.PublishedParsed != nil {
		return it.PublishedParsed
	}
	return it.UpdatedParsed
}

func itemAuthor(it *gofeed.Item, fallback string) string {
	if len(it.Authors) > 0 && it.Authors[0].Name != "" {
		return it.Authors[0].Name
	}
	return fallback
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
