package yt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memohai/ytbot/internal/videosearch"
)

func TestFormatListingDefaults(t *testing.T) {
	t.Parallel()
	name := "Lo-Fi Girl"
	ts := "2:13:09"
	views := int64(1234567)
	empty := ""
	results := []videosearch.SearchResult{
		{
			Title:    "beats to relax",
			Author:   &videosearch.Author{Name: &name},
			Duration: &videosearch.Duration{Timestamp: &ts},
			Views:    &views,
		},
		{Title: "bare"},
		{Title: "blank author", Author: &videosearch.Author{Name: &empty}, Duration: &videosearch.Duration{}},
	}

	got := FormatListing("lofi", results)
	want := "🎬 **YouTube Search Results** 🎬\n🔎 **Query:** lofi\n\n" +
		listingSeparator + "\n" +
		"✨ **1. beats to relax**\n👤 Channel: Lo-Fi Girl\n⏱ Duration: 2:13:09\n👁 Views: 1,234,567\n" +
		listingSeparator + "\n" +
		"✨ **2. bare**\n👤 Channel: Unknown\n⏱ Duration: N/A\n👁 Views: N/A\n" +
		listingSeparator + "\n" +
		"✨ **3. blank author**\n👤 Channel: Unknown\n⏱ Duration: N/A\n👁 Views: N/A\n" +
		listingSeparator + "\n" +
		"\n📥 Reply with **1-3** to download your chosen video!\n⚡ Powered by Aminul API"
	assert.Equal(t, want, got)
}

func TestFormatViews(t *testing.T) {
	t.Parallel()
	cases := map[int64]string{
		0:          "0",
		999:        "999",
		1000:       "1,000",
		9876543210: "9,876,543,210",
	}
	for in, want := range cases {
		v := in
		assert.Equal(t, want, formatViews(&v))
	}
	assert.Equal(t, "N/A", formatViews(nil))
	assert.Equal(t, 30, strings.Count(listingSeparator, "━"))
}
