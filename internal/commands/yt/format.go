package yt

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/memohai/ytbot/internal/videosearch"
)

const (
	listingSeparator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	unknownChannel   = "Unknown"
	notAvailable     = "N/A"
)

var viewPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatListing renders the numbered result listing sent after a search.
func FormatListing(query string, results []videosearch.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 **YouTube Search Results** 🎬\n🔎 **Query:** %s\n\n", query)
	b.WriteString(listingSeparator + "\n")
	for i, r := range results {
		fmt.Fprintf(&b, "✨ **%d. %s**\n", i+1, r.Title)
		fmt.Fprintf(&b, "👤 Channel: %s\n", orDefault(r.AuthorName(), unknownChannel))
		fmt.Fprintf(&b, "⏱ Duration: %s\n", orDefault(r.DurationText(), notAvailable))
		fmt.Fprintf(&b, "👁 Views: %s\n", formatViews(r.Views))
		b.WriteString(listingSeparator + "\n")
	}
	fmt.Fprintf(&b, "\n📥 Reply with **1-%d** to download your chosen video!\n⚡ Powered by Aminul API", len(results))
	return b.String()
}

func formatViews(views *int64) string {
	if views == nil {
		return notAvailable
	}
	return viewPrinter.Sprintf("%d", *views)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
