// Package yt implements the yt chat command: search videos, list the top
// results with thumbnails, then download the one the thread picks.
package yt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/memohai/ytbot/internal/channel"
	"github.com/memohai/ytbot/internal/command"
	"github.com/memohai/ytbot/internal/media"
	"github.com/memohai/ytbot/internal/session"
	"github.com/memohai/ytbot/internal/storage/providers/scratchfs"
	"github.com/memohai/ytbot/internal/videosearch"
)

const (
	// MaxResults is the most results a thread can pick from; replies are a single digit.
	MaxResults = 5

	defaultThumbnailWorkers = 5
)

var selectionPattern = regexp.MustCompile(`^[1-5]$`)

// VideoAPI is the upstream search and resolver API.
type VideoAPI interface {
	Search(ctx context.Context, query string) ([]videosearch.SearchResult, error)
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)
	ResolveDownload(ctx context.Context, videoURL string) (videosearch.DownloadInfo, error)
}

// Scratch stores files while they are attached to outbound messages.
type Scratch interface {
	SaveBytes(ctx context.Context, name string, data []byte) (string, error)
	StreamDownload(ctx context.Context, url, name string) (string, error)
	Delete(ctx context.Context, name string)
}

// Command is the yt command and its selection listener.
type Command struct {
	logger           *slog.Logger
	api              VideoAPI
	scratch          Scratch
	sessions         session.Store
	locks            *session.KeyedMutex
	maxResults       int
	thumbnailWorkers int
}

// Option configures a Command.
type Option func(*Command)

// WithMaxResults caps how many results are listed, between 1 and MaxResults.
func WithMaxResults(n int) Option {
	return func(c *Command) {
		if n > 0 && n <= MaxResults {
			c.maxResults = n
		}
	}
}

// WithThumbnailWorkers bounds concurrent thumbnail fetches.
func WithThumbnailWorkers(n int) Option {
	return func(c *Command) {
		if n > 0 {
			c.thumbnailWorkers = n
		}
	}
}

// New creates the yt command. locks may be nil.
func New(log *slog.Logger, api VideoAPI, scratch Scratch, sessions session.Store, locks *session.KeyedMutex, opts ...Option) *Command {
	if log == nil {
		log = slog.Default()
	}
	if locks == nil {
		locks = session.NewKeyedMutex()
	}
	c := &Command{
		logger:           log.With(slog.String("command", "yt")),
		api:              api,
		scratch:          scratch,
		sessions:         sessions,
		locks:            locks,
		maxResults:       MaxResults,
		thumbnailWorkers: defaultThumbnailWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Command) Spec() command.Spec {
	return command.Spec{
		Name:        "yt",
		Aliases:     []string{"youtube", "yts"},
		Category:    "media",
		Description: "Search & download YouTube videos interactively",
		Usage:       "{pn} [search term] - Search YouTube\nReply 1-5 to download the video",
	}
}

// OnStart searches for the joined args and lists the results.
func (c *Command) OnStart(ctx context.Context, ev command.Event, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return c.fail(ctx, ev, ErrEmptyQuery, searchFailureMessage(ErrEmptyQuery))
	}

	unlock := c.locks.Lock(ev.ThreadID)
	defer unlock()

	results, err := c.search(ctx, ev.ThreadID, query)
	if err != nil {
		return c.fail(ctx, ev, err, searchFailureMessage(err))
	}

	attachments := c.stageThumbnails(ctx, ev.ThreadID, results)
	defer c.cleanup(ctx, attachments)

	return ev.Reply(ctx, command.Reply{
		Text:        FormatListing(query, results),
		Format:      channel.MessageFormatMarkdown,
		Attachments: attachments,
	})
}

// search runs the query and records the listed results for the thread.
// Nothing is recorded on failure or when nothing was found.
func (c *Command) search(ctx context.Context, threadID, query string) ([]videosearch.SearchResult, error) {
	results, err := c.api.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoResults, query)
	}
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}
	if err := c.sessions.Put(ctx, threadID, results); err != nil {
		return nil, fmt.Errorf("store pending selection: %w", err)
	}
	c.logger.Info("search listed",
		slog.String("thread_id", threadID),
		slog.String("query", query),
		slog.Int("results", len(results)))
	return results, nil
}

// stageThumbnails writes result thumbnails to scratch files, keeping result
// order. A thumbnail that cannot be fetched or saved is skipped.
func (c *Command) stageThumbnails(ctx context.Context, threadID string, results []videosearch.SearchResult) []channel.Attachment {
	slots := make([]*channel.Attachment, len(results))
	var g errgroup.Group
	g.SetLimit(c.thumbnailWorkers)
	for i, r := range results {
		thumbURL := strings.TrimSpace(r.ThumbnailURL())
		if thumbURL == "" {
			continue
		}
		g.Go(func() error {
			data, err := c.api.FetchBytes(ctx, thumbURL)
			if err != nil {
				c.logger.Warn("thumbnail fetch failed", slog.Int("index", i), slog.Any("error", err))
				return nil
			}
			path, err := c.scratch.SaveBytes(ctx, scratchfs.ThumbnailName(threadID, i), data)
			if err != nil {
				c.logger.Warn("thumbnail save failed", slog.Int("index", i), slog.Any("error", err))
				return nil
			}
			mime := media.DetectMime(data)
			slots[i] = &channel.Attachment{
				Type: attachmentType(mime, channel.AttachmentImage),
				Path: path,
				Name: filepath.Base(path),
				Size: int64(len(data)),
				Mime: mime,
			}
			return nil
		})
	}
	_ = g.Wait()

	attachments := make([]channel.Attachment, 0, len(slots))
	for _, att := range slots {
		if att != nil {
			attachments = append(attachments, *att)
		}
	}
	return attachments
}

// OnChat handles a digit reply for a thread with a pending listing. Any other
// message is left alone.
func (c *Command) OnChat(ctx context.Context, ev command.Event) (bool, error) {
	body := strings.TrimSpace(ev.Body)
	if !selectionPattern.MatchString(body) {
		return false, nil
	}

	unlock := c.locks.Lock(ev.ThreadID)
	defer unlock()

	results, ok, err := c.sessions.Get(ctx, ev.ThreadID)
	if err != nil {
		return false, fmt.Errorf("load pending selection: %w", err)
	}
	if !ok {
		return false, nil
	}
	defer c.clearSelection(ctx, ev.ThreadID)

	index := int(body[0] - '1')
	if index >= len(results) {
		err := fmt.Errorf("%w: %d of %d", ErrInvalidSelection, index+1, len(results))
		return true, c.fail(ctx, ev, err, downloadFailureMessage(err))
	}
	if err := c.download(ctx, ev, results[index]); err != nil {
		return true, c.fail(ctx, ev, err, downloadFailureMessage(err))
	}
	return true, nil
}

// download resolves, streams and sends one video. The scratch file is
// removed once the send has finished, whatever its outcome.
func (c *Command) download(ctx context.Context, ev command.Event, video videosearch.SearchResult) error {
	progress := command.Reply{Text: fmt.Sprintf(msgProgressFormat, video.Title), Format: channel.MessageFormatMarkdown}
	if err := ev.Reply(ctx, progress); err != nil {
		c.logger.Warn("progress message failed", slog.String("thread_id", ev.ThreadID), slog.Any("error", err))
	}

	info, err := c.api.ResolveDownload(ctx, video.URL)
	if err != nil {
		return err
	}
	mediaURL := info.Best()
	if mediaURL == "" {
		return fmt.Errorf("%w: %s", ErrNoDownloadAvailable, video.URL)
	}

	name := scratchfs.VideoName(ev.ThreadID)
	path, err := c.scratch.StreamDownload(ctx, mediaURL, name)
	if err != nil {
		return err
	}
	defer c.scratch.Delete(context.WithoutCancel(ctx), name)

	mime := media.DetectFileMime(path)
	att := channel.Attachment{
		Type: attachmentType(mime, channel.AttachmentVideo),
		Path: path,
		Name: filepath.Base(path),
		Mime: mime,
	}
	if st, err := os.Stat(path); err == nil {
		att.Size = st.Size()
	}
	err = ev.Reply(ctx, command.Reply{
		Text:        fmt.Sprintf(msgDownloadedFormat, video.Title),
		Format:      channel.MessageFormatMarkdown,
		Attachments: []channel.Attachment{att},
	})
	if err != nil {
		return fmt.Errorf("send video: %w", err)
	}
	c.logger.Info("video delivered",
		slog.String("thread_id", ev.ThreadID),
		slog.String("title", video.Title),
		slog.Int64("bytes", att.Size))
	return nil
}

// fail logs err and tells the user msg. Only a failure to deliver msg is
// returned to the caller.
func (c *Command) fail(ctx context.Context, ev command.Event, err error, msg string) error {
	if isUserError(err) {
		c.logger.Debug("yt rejected", slog.String("thread_id", ev.ThreadID), slog.Any("error", err))
	} else {
		c.logger.Error("yt failed", slog.String("thread_id", ev.ThreadID), slog.Any("error", err))
	}
	if replyErr := ev.Reply(ctx, command.Reply{Text: msg, ReplyTo: ev.MessageID}); replyErr != nil {
		return fmt.Errorf("reply %q: %w", msg, replyErr)
	}
	return nil
}

// attachmentType picks the attachment kind from sniffed content. Content the
// sniffer cannot place keeps fallback.
func attachmentType(mime string, fallback channel.AttachmentType) channel.AttachmentType {
	switch media.TypeFromMime(mime) {
	case media.MediaTypeImage:
		return channel.AttachmentImage
	case media.MediaTypeVideo:
		return channel.AttachmentVideo
	case media.MediaTypeAudio:
		return channel.AttachmentAudio
	default:
		return fallback
	}
}

func (c *Command) clearSelection(ctx context.Context, threadID string) {
	if err := c.sessions.Delete(context.WithoutCancel(ctx), threadID); err != nil {
		c.logger.Warn("clear pending selection failed", slog.String("thread_id", threadID), slog.Any("error", err))
	}
}

func (c *Command) cleanup(ctx context.Context, attachments []channel.Attachment) {
	for _, att := range attachments {
		c.scratch.Delete(context.WithoutCancel(ctx), att.Name)
	}
}
