package app

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/newscurator/internal/news"
)

// previewRunes limits the body shown per item.
const previewRunes = 300

// WriteReport prints a human-readable summary of r.
func WriteReport(w io.Writer, r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "run %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "keywords: %s\n", strings.Join(r.Keywords, ", "))
	fmt.Fprintf(&b, "collected %d, excluded %d, enriched %d, scored %d, selected %d\n",
		r.Collected, r.Excluded, r.Enriched, r.Scored, len(r.Selected))
	if r.Interrupted {
		b.WriteString("interrupted: partial results\n")
	}
	b.WriteString(strings.Repeat("━", 40) + "\n")

	for i, item := range r.Selected {
		b.WriteString(formatItem(item, i+1))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatItem(n news.EnrichedItem, number int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d. %s\n", number, n.Title)
	fmt.Fprintf(&b, "   %s | %s | %s\n", n.MediaName, n.Journalist, n.PublishedAt)
	fmt.Fprintf(&b, "   %s\n", n.Link)

	if content := preview(n.Content, previewRunes); content != "" {
		for _, line := range strings.Split(content, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Fprintf(&b, "   %s\n", line)
			}
		}
	}
	b.WriteString("\n")
	return b.String()
}

// preview cuts content to limit runes, ending on the last full sentence when there is one.
func preview(content string, limit int) string {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\n\n\n", "\n\n"))
	if utf8.RuneCountInString(content) <= limit {
		return content
	}

	cut := string([]rune(content)[:limit])
	if idx := strings.LastIndex(cut, "."); idx > 0 {
		return cut[:idx+1]
	}
	return cut + "..."
}
