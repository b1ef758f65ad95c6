package yt

import (
	"errors"
)

var (
	ErrEmptyQuery          = errors.New("empty search query")
	ErrNoResults           = errors.New("no search results")
	ErrInvalidSelection    = errors.New("selection out of range")
	ErrNoDownloadAvailable = errors.New("no downloadable media url")
)

// User-facing messages. Upstream error detail never reaches the chat.
const (
	msgEmptyQuery       = "❌ Please provide a search term!"
	msgNoResults        = "😔 No videos found! Try another keyword."
	msgSearchFailed     = "⚠️ Failed to fetch YouTube videos. Try again later."
	msgInvalidSelect    = "❌ Invalid selection!"
	msgNoDownload       = "❌ Cannot download this video. It may be restricted."
	msgDownloadFailed   = "❌ Error occurred while downloading the video. Try again later."
	msgProgressFormat   = "⏳ Downloading **%s**... Please wait!"
	msgDownloadedFormat = "✅ Successfully downloaded: **%s**\n🎉 Enjoy your video!"
)

// searchFailureMessage maps a search flow error to its chat message.
func searchFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return msgEmptyQuery
	case errors.Is(err, ErrNoResults):
		return msgNoResults
	default:
		return msgSearchFailed
	}
}

// downloadFailureMessage maps a download flow error to its chat message.
func downloadFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSelection):
		return msgInvalidSelect
	case errors.Is(err, ErrNoDownloadAvailable):
		return msgNoDownload
	default:
		return msgDownloadFailed
	}
}

// isUserError reports errors caused by user input rather than a failure.
func isUserError(err error) bool {
	return errors.Is(err, ErrEmptyQuery) || errors.Is(err, ErrNoResults) || errors.Is(err, ErrInvalidSelection)
}
