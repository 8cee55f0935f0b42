package bot

import (
	"fmt"
	"strings"

	"herald_bot/internal/feed"
	"herald_bot/internal/model"
)

// FormatNotification formats a feed item as a chat notification message.
func FormatNotification(family string, item feed.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", family, item.Author)
	if item.Title != "" {
		b.WriteString("\n")
		b.WriteString(item.Title)
	}
	if item.Text != "" && item.Text != item.Title {
		b.WriteString("\n\n")
		b.WriteString(item.Text)
	}
	if item.Link != "" {
		b.WriteString("\n\n")
		b.WriteString(item.Link)
	}
	return b.String()
}

// FormatBindingList formats a chat's subscriptions for display.
func FormatBindingList(bindings []model.Binding) string {
	if len(bindings) == 0 {
		return "This chat has no subscriptions yet. Use /watch <service> <key> to add one."
	}
	var b strings.Builder
	b.WriteString("This chat watches:\n")
	for _, bd := range bindings {
		fmt.Fprintf(&b, "\n%s/%s", bd.Family, bd.EntityKey)
	}
	return b.String()
}

// FormatBadWordList formats a chat's word-filter entries grouped by kind.
func FormatBadWordList(words []model.BadWord) string {
	if len(words) == 0 {
		return "No word-filter entries. Use /badword add <word> to create one."
	}

	var plain, regex []model.BadWord
	for _, w := range words {
		if w.Kind == model.BadWordRegex {
			regex = append(regex, w)
		} else {
			plain = append(plain, w)
		}
	}

	var b strings.Builder
	b.WriteString("Word-filter entries:\n")
	if len(plain) > 0 {
		b.WriteString("\nWords:\n")
		for _, w := range plain {
			fmt.Fprintf(&b, "  %s\n", w.Entry)
		}
	}
	if len(regex) > 0 {
		b.WriteString("\nPatterns:\n")
		for _, w := range regex {
			fmt.Fprintf(&b, "  %s\n", w.Entry)
		}
	}
	return b.String()
}
