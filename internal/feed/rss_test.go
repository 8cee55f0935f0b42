package feed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type mockHTTP struct {
	status int
	body   string
	err    error

	gotURL string
	gotUA  string
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) {
	m.gotURL = req.URL.String()
	m.gotUA = req.Header.Get("User-Agent")
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(strings.NewReader(m.body)),
	}, nil
}

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>alice's feed</title>
    <item>
      <title>older post</title>
      <description>first body</description>
      <link>https://example.com/1</link>
      <pubDate>Sat, 01 Aug 2026 12:00:10 +0000</pubDate>
    </item>
    <item>
      <title>undated post</title>
      <description>no timestamp</description>
      <link>https://example.com/2</link>
    </item>
    <item>
      <title>newer post</title>
      <description>second body</description>
      <link>https://example.com/3</link>
      <pubDate>Sat, 01 Aug 2026 12:00:30 +0000</pubDate>
    </item>
  </channel>
</rss>`

func TestFetchLatest(t *testing.T) {
	client := &mockHTTP{status: http.StatusOK, body: sampleFeed}
	src, err := NewRSS(client, "https://nitter.example.com/%s/rss")
	if err != nil {
		t.Fatalf("new rss: %v", err)
	}

	items, err := src.FetchLatest(context.Background(), "alice")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if client.gotURL != "https://nitter.example.com/alice/rss" {
		t.Errorf("requested URL = %q", client.gotURL)
	}
	if client.gotUA == "" {
		t.Error("expected a User-Agent header")
	}

	// Newest first, and the undated item is dropped.
	want := []Item{
		{
			Title:      "newer post",
			Text:       "second body",
			Link:       "https://example.com/3",
			Author:     "alice",
			OccurredAt: time.Date(2026, 8, 1, 12, 0, 30, 0, time.UTC),
		},
		{
			Title:      "older post",
			Text:       "first body",
			Link:       "https://example.com/1",
			Author:     "alice",
			OccurredAt: time.Date(2026, 8, 1, 12, 0, 10, 0, time.UTC),
		},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchLatestHTTPError(t *testing.T) {
	client := &mockHTTP{err: errors.New("connection refused")}
	src, err := NewRSS(client, "https://nitter.example.com/%s/rss")
	if err != nil {
		t.Fatalf("new rss: %v", err)
	}

	if _, err := src.FetchLatest(context.Background(), "alice"); err == nil {
		t.Error("expected transport error")
	}
}

func TestFetchLatestBadStatus(t *testing.T) {
	client := &mockHTTP{status: http.StatusNotFound, body: "not found"}
	src, err := NewRSS(client, "https://nitter.example.com/%s/rss")
	if err != nil {
		t.Fatalf("new rss: %v", err)
	}

	if _, err := src.FetchLatest(context.Background(), "alice"); err == nil {
		t.Error("expected status error")
	}
}

func TestFetchLatestUnparseableBody(t *testing.T) {
	client := &mockHTTP{status: http.StatusOK, body: "this is not xml"}
	src, err := NewRSS(client, "https://nitter.example.com/%s/rss")
	if err != nil {
		t.Fatalf("new rss: %v", err)
	}

	if _, err := src.FetchLatest(context.Background(), "alice"); err == nil {
		t.Error("expected parse error")
	}
}

func TestNewRSSValidates(t *testing.T) {
	if _, err := NewRSS(nil, "https://example.com/%s"); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := NewRSS(&mockHTTP{}, "https://example.com/fixed"); err == nil {
		t.Error("expected error for a template without a key slot")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 300); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	long := strings.Repeat("a", 400)
	got := truncate(long, 300)
	if len(got) != 303 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate long: len=%d suffix=%q", len(got), got[len(got)-3:])
	}
}
