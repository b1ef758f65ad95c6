package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohai/ytbot/internal/channel"
	"github.com/memohai/ytbot/internal/commands/yt"
	"github.com/memohai/ytbot/internal/videosearch"
)

type botAPICall struct {
	method string
	form   map[string]string
	files  int
}

type fakeBotAPI struct {
	mu    sync.Mutex
	calls []botAPICall
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	call := botAPICall{method: method, form: map[string]string{}}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(10 << 20); err == nil && r.MultipartForm != nil {
			for key, values := range r.MultipartForm.Value {
				call.form[key] = values[0]
			}
			call.files = len(r.MultipartForm.File)
		}
	} else if err := r.ParseForm(); err == nil {
		for key, values := range r.PostForm {
			call.form[key] = values[0]
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"yt","username":"ytsearchbot"}}`))
	case "sendMediaGroup":
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"message_id":10,"date":0,"chat":{"id":42,"type":"private"}}]}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":11,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}
}

func (f *fakeBotAPI) sent() []botAPICall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]botAPICall, 0, len(f.calls))
	for _, call := range f.calls {
		if call.method != "getMe" {
			out = append(out, call)
		}
	}
	return out
}

// withFakeBot points getOrCreateBot at an httptest server for one test.
// Tests using it must not run in parallel.
func withFakeBot(t *testing.T) *fakeBotAPI {
	t.Helper()
	api := &fakeBotAPI{}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	bot, err := tgbotapi.NewBotAPIWithClient("test-token", server.URL+"/bot%s/%s", server.Client())
	if err != nil {
		t.Fatalf("create bot: %v", err)
	}
	getOrCreateBotForTest = func(*TelegramAdapter, string, string) (*tgbotapi.BotAPI, error) {
		return bot, nil
	}
	t.Cleanup(func() { getOrCreateBotForTest = nil })
	return api
}

func writeTempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("data"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

var testTelegramConfig = channel.ChannelConfig{
	ID:          "tg",
	BotID:       "ytbot",
	ChannelType: Type,
	Credentials: map[string]any{"botToken": "test-token"},
}

func TestSendText(t *testing.T) {
	api := withFakeBot(t)
	adapter := NewTelegramAdapter(nil)

	err := adapter.Send(context.Background(), testTelegramConfig, channel.OutboundMessage{
		Target: "42",
		Message: channel.Message{
			Format: channel.MessageFormatMarkdown,
			Text:   "⏳ Downloading **a_b <c>**... Please wait!",
			Reply:  &channel.ReplyRef{MessageID: "7"},
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	calls := api.sent()
	if len(calls) != 1 || calls[0].method != "sendMessage" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if calls[0].form["parse_mode"] != tgbotapi.ModeHTML {
		t.Fatalf("expected HTML parse mode, got %q", calls[0].form["parse_mode"])
	}
	if calls[0].form["text"] != "⏳ Downloading <b>a_b &lt;c&gt;</b>... Please wait!" {
		t.Fatalf("unexpected text: %q", calls[0].form["text"])
	}
	if calls[0].form["reply_to_message_id"] != "7" {
		t.Fatalf("expected reply id, got %q", calls[0].form["reply_to_message_id"])
	}
}

func TestSendThumbnailsAsMediaGroup(t *testing.T) {
	api := withFakeBot(t)
	adapter := NewTelegramAdapter(nil)

	err := adapter.Send(context.Background(), testTelegramConfig, channel.OutboundMessage{
		Target: "42",
		Message: channel.Message{
			Text: "results",
			Attachments: []channel.Attachment{
				{Type: channel.AttachmentImage, Path: writeTempFile(t, "thumb_1.jpg")},
				{Type: channel.AttachmentImage, Path: writeTempFile(t, "thumb_2.jpg")},
			},
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	calls := api.sent()
	if len(calls) != 1 || calls[0].method != "sendMediaGroup" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if calls[0].files != 2 {
		t.Fatalf("expected 2 uploaded files, got %d", calls[0].files)
	}
	media := calls[0].form["media"]
	if !strings.Contains(media, "attach://") || !strings.Contains(media, `"caption":"results"`) {
		t.Fatalf("unexpected media payload: %s", media)
	}
}

func TestSendVideoWithCaption(t *testing.T) {
	api := withFakeBot(t)
	adapter := NewTelegramAdapter(nil)

	err := adapter.Send(context.Background(), testTelegramConfig, channel.OutboundMessage{
		Target: "42",
		Message: channel.Message{
			Text:        "done",
			Attachments: []channel.Attachment{{Type: channel.AttachmentVideo, Path: writeTempFile(t, "video.mp4")}},
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	calls := api.sent()
	if len(calls) != 1 || calls[0].method != "sendVideo" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if calls[0].form["caption"] != "done" || calls[0].files != 1 {
		t.Fatalf("unexpected video call: %+v", calls[0])
	}
}

func TestSendRequiresToken(t *testing.T) {
	t.Parallel()

	adapter := NewTelegramAdapter(nil)
	err := adapter.Send(context.Background(), channel.ChannelConfig{ID: "tg"}, channel.OutboundMessage{
		Target:  "42",
		Message: channel.Message{Text: "hi"},
	})
	if err == nil || !strings.Contains(err.Error(), "botToken") {
		t.Fatalf("expected botToken error, got %v", err)
	}
}

func TestFormatTelegramOutput(t *testing.T) {
	t.Parallel()

	text, mode := formatTelegramOutput("plain **x**", channel.MessageFormatPlain)
	if text != "plain **x**" || mode != "" {
		t.Fatalf("plain text should pass through: %q %q", text, mode)
	}
	text, mode = formatTelegramOutput("no bold & here", channel.MessageFormatMarkdown)
	if text != "no bold & here" || mode != "" {
		t.Fatalf("markdown without bold should pass through: %q %q", text, mode)
	}
	text, mode = formatTelegramOutput("✨ **1. Tom & Jerry**", channel.MessageFormatMarkdown)
	if text != "✨ <b>1. Tom &amp; Jerry</b>" || mode != tgbotapi.ModeHTML {
		t.Fatalf("unexpected html: %q %q", text, mode)
	}
}

func TestTelegramFileData(t *testing.T) {
	t.Parallel()

	file, err := telegramFileData(channel.Attachment{Path: "/tmp/a.jpg", URL: "https://x/a.jpg"})
	if err != nil {
		t.Fatalf("file data: %v", err)
	}
	if _, ok := file.(tgbotapi.FilePath); !ok {
		t.Fatalf("expected FilePath, got %T", file)
	}
	file, err = telegramFileData(channel.Attachment{PlatformKey: "abc", SourcePlatform: "telegram"})
	if err != nil {
		t.Fatalf("file data: %v", err)
	}
	if _, ok := file.(tgbotapi.FileID); !ok {
		t.Fatalf("expected FileID, got %T", file)
	}
	file, err = telegramFileData(channel.Attachment{PlatformKey: "abc", SourcePlatform: "discord", URL: "https://x/a.jpg"})
	if err != nil {
		t.Fatalf("file data: %v", err)
	}
	if _, ok := file.(tgbotapi.FileURL); !ok {
		t.Fatalf("expected FileURL for foreign key, got %T", file)
	}
	if _, err := telegramFileData(channel.Attachment{}); err == nil {
		t.Fatal("expected error without reference")
	}
}

func TestIsTelegramMediaGroup(t *testing.T) {
	t.Parallel()

	img := channel.Attachment{Type: channel.AttachmentImage}
	vid := channel.Attachment{Type: channel.AttachmentVideo}
	doc := channel.Attachment{Type: channel.AttachmentFile}
	if isTelegramMediaGroup([]channel.Attachment{img}) {
		t.Fatal("single attachment is not a group")
	}
	if !isTelegramMediaGroup([]channel.Attachment{img, vid}) {
		t.Fatal("photo and video should group")
	}
	if isTelegramMediaGroup([]channel.Attachment{img, doc}) {
		t.Fatal("documents cannot join a photo album")
	}
}

func TestParseConfigAndNormalizeTarget(t *testing.T) {
	t.Parallel()

	cfg, err := parseConfig(map[string]any{"bot_token": " t1 "})
	if err != nil || cfg.BotToken != "t1" {
		t.Fatalf("parseConfig = (%+v, %v)", cfg, err)
	}
	if _, err := parseConfig(nil); err == nil {
		t.Fatal("expected error for missing token")
	}
	for raw, want := range map[string]string{
		"https://t.me/x": "@x",
		"@chan/":         "@chan",
		" -100123 ":      "-100123",
	} {
		if got := normalizeTarget(raw); got != want {
			t.Fatalf("normalizeTarget(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestSendListingMovesOversizedCaptionAfterAlbum(t *testing.T) {
	api := withFakeBot(t)
	adapter := NewTelegramAdapter(nil)

	author := "Hanna-Barbera"
	duration := "21:37"
	views := int64(1234567)
	results := make([]videosearch.SearchResult, 5)
	attachments := make([]channel.Attachment, 5)
	for i := range results {
		results[i] = videosearch.SearchResult{
			Title:    fmt.Sprintf("Tom & Jerry & Spike & Tyke & Butch Classic Compilation Part %d HD", i+1),
			Author:   &videosearch.Author{Name: &author},
			Duration: &videosearch.Duration{Timestamp: &duration},
			Views:    &views,
		}
		attachments[i] = channel.Attachment{Type: channel.AttachmentImage, Path: writeTempFile(t, fmt.Sprintf("thumb_%d.jpg", i))}
	}
	listing := yt.FormatListing("tom & jerry", results)
	rendered, _ := formatTelegramOutput(listing, channel.MessageFormatMarkdown)
	if utf8.RuneCountInString(rendered) <= telegramMaxCaptionLength {
		t.Fatalf("rendered listing should exceed the caption limit, got %d runes", utf8.RuneCountInString(rendered))
	}

	err := adapter.Send(context.Background(), testTelegramConfig, channel.OutboundMessage{
		Target: "42",
		Message: channel.Message{
			Format:      channel.MessageFormatMarkdown,
			Text:        listing,
			Attachments: attachments,
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	calls := api.sent()
	if len(calls) != 2 || calls[0].method != "sendMediaGroup" || calls[1].method != "sendMessage" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if strings.Contains(calls[0].form["media"], "caption") {
		t.Fatalf("album should be uncaptioned: %s", calls[0].form["media"])
	}
	text := calls[1].form["text"]
	if text != rendered {
		t.Fatalf("listing text was altered:\n%s", text)
	}
	if !strings.Contains(text, "Reply with <b>1-5</b>") || !strings.Contains(text, "Tom &amp; Jerry") {
		t.Fatalf("unexpected listing text: %s", text)
	}
	if calls[1].form["parse_mode"] != tgbotapi.ModeHTML {
		t.Fatalf("expected HTML parse mode, got %q", calls[1].form["parse_mode"])
	}
}
