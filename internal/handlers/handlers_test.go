package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/ytbot/internal/auth"
	"github.com/memohai/ytbot/internal/channel"
	"github.com/memohai/ytbot/internal/channel/adapters/local"
	"github.com/memohai/ytbot/internal/command"
	"github.com/memohai/ytbot/internal/healthcheck"
)

const testSecret = "handler-secret"

type fakeDispatcher struct {
	cfgs []channel.ChannelConfig
	msgs []channel.InboundMessage
	err  error
}

func (d *fakeDispatcher) HandleInbound(_ context.Context, cfg channel.ChannelConfig, msg channel.InboundMessage) error {
	d.cfgs = append(d.cfgs, cfg)
	d.msgs = append(d.msgs, msg)
	return d.err
}

type fakeConfigs struct {
	cfg channel.ChannelConfig
	ok  bool
}

func (f fakeConfigs) FirstByType(channel.ChannelType) (channel.ChannelConfig, bool) {
	return f.cfg, f.ok
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Use(auth.JWTMiddleware(testSecret, func(c echo.Context) bool {
		return c.Path() == "/ping" || strings.HasPrefix(c.Path(), "/health")
	}))
	return e
}

func token(t *testing.T, subject string) string {
	t.Helper()
	raw, _, err := auth.GenerateToken(subject, testSecret, time.Minute)
	require.NoError(t, err)
	return raw
}

func TestPing(t *testing.T) {
	t.Parallel()
	e := newEcho()
	NewPingHandler(nil).Register(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type staticChecker []healthcheck.CheckResult

func (s staticChecker) ListChecks(context.Context, string) []healthcheck.CheckResult { return s }

func TestHealthChecks(t *testing.T) {
	t.Parallel()
	e := newEcho()
	NewHealthHandler(nil, "ytbot",
		staticChecker{{ID: "a", Status: healthcheck.StatusOK}},
	).Register(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/checks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var report healthcheck.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "ytbot", report.BotID)
	assert.Equal(t, healthcheck.StatusOK, report.Status)

	e = newEcho()
	NewHealthHandler(nil, "ytbot", staticChecker{{ID: "b", Status: healthcheck.StatusError}}).Register(e)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/checks?bot_id=other", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bot_id":"other"`)
}

type stubAdapter struct{}

func (stubAdapter) Type() channel.ChannelType { return "stub" }
func (stubAdapter) Descriptor() channel.Descriptor {
	return channel.Descriptor{Type: "stub", DisplayName: "Stub", Capabilities: channel.ChannelCapabilities{Text: true}}
}

type fakeConnections []channel.ConnectionStatus

func (f fakeConnections) ConnectionStatuses() []channel.ConnectionStatus { return f }

func TestChannelHandler(t *testing.T) {
	t.Parallel()
	registry := channel.NewRegistry()
	registry.MustRegister(stubAdapter{})
	e := newEcho()
	NewChannelHandler(registry, fakeConnections{
		{ConfigID: "s1", ChannelType: "stub", Running: true},
		{ConfigID: "x1", ChannelType: "other"},
	}).Register(e)
	bearer := "Bearer " + token(t, "ops")

	req := httptest.NewRequest(http.MethodGet, "/channels", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []ChannelMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Stub", items[0].DisplayName)
	require.Len(t, items[0].Connections, 1)
	assert.Equal(t, "s1", items[0].Connections[0].ConfigID)

	req = httptest.NewRequest(http.MethodGet, "/channels/nope", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type namedCommand struct{ spec command.Spec }

func (c namedCommand) Spec() command.Spec { return c.spec }
func (c namedCommand) OnStart(context.Context, command.Event, []string) error {
	return nil
}

func TestCommandsHandler(t *testing.T) {
	t.Parallel()
	registry := command.NewRegistry(nil, []string{"!"})
	registry.MustRegister(namedCommand{spec: command.Spec{Name: "yt", Aliases: []string{"yts"}, Usage: "{pn} [search term]"}})
	e := newEcho()
	NewCommandsHandler(registry).Register(e)

	req := httptest.NewRequest(http.MethodGet, "/commands", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, "ops"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Prefixes []string      `json:"prefixes"`
		Commands []CommandInfo `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"!"}, body.Prefixes)
	require.Len(t, body.Commands, 1)
	assert.Equal(t, "!yt [search term]", body.Commands[0].Usage)
}

func postLocal(t *testing.T, e *echo.Echo, subject, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/local/messages", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if subject != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, subject))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLocalPostMessage(t *testing.T) {
	t.Parallel()
	dispatcher := &fakeDispatcher{}
	cfg := channel.ChannelConfig{ID: "local", BotID: "ytbot", ChannelType: local.Type}
	e := newEcho()
	NewLocalChannelHandler(nil, dispatcher, fakeConfigs{cfg: cfg, ok: true}, local.NewRouteHub(nil)).Register(e)

	rec := postLocal(t, e, "alice", `{"text":" /yt lofi "}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp localMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp.Status)
	assert.NotEmpty(t, resp.MessageID)

	require.Len(t, dispatcher.msgs, 1)
	msg := dispatcher.msgs[0]
	assert.Equal(t, "local", dispatcher.cfgs[0].ID)
	assert.Equal(t, "/yt lofi", msg.Message.Text)
	assert.Equal(t, resp.MessageID, msg.Message.ID)
	assert.Equal(t, "alice", msg.ReplyTarget)
	assert.Equal(t, "alice", msg.Conversation.ID)
	assert.Equal(t, "ytbot", msg.BotID)
}

func TestLocalPostMessageErrors(t *testing.T) {
	t.Parallel()
	cfg := channel.ChannelConfig{ID: "local", BotID: "ytbot", ChannelType: local.Type}
	hub := local.NewRouteHub(nil)

	e := newEcho()
	NewLocalChannelHandler(nil, &fakeDispatcher{}, fakeConfigs{cfg: cfg, ok: true}, hub).Register(e)
	assert.NotEqual(t, http.StatusAccepted, postLocal(t, e, "", `{"text":"hi"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postLocal(t, e, "alice", `{"text":"  "}`).Code)

	e = newEcho()
	NewLocalChannelHandler(nil, &fakeDispatcher{}, fakeConfigs{}, hub).Register(e)
	assert.Equal(t, http.StatusNotFound, postLocal(t, e, "alice", `{"text":"hi"}`).Code)

	e = newEcho()
	NewLocalChannelHandler(nil, &fakeDispatcher{err: errors.New("queue full")}, fakeConfigs{cfg: cfg, ok: true}, hub).Register(e)
	rec := postLocal(t, e, "alice", `{"text":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "queue full")
}

func TestLocalStreamMessages(t *testing.T) {
	t.Parallel()
	hub := local.NewRouteHub(nil)
	e := newEcho()
	NewLocalChannelHandler(nil, &fakeDispatcher{}, fakeConfigs{}, hub).Register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/local/stream?token="+token(t, "alice"), nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get(echo.HeaderContentType))

	require.Eventually(t, func() bool { return hub.Subscribers("alice") == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Publish("bob", channel.Message{Text: "not for alice"})
	hub.Publish("alice", channel.Message{Text: "😔 No videos found! Try another keyword."})

	reader := bufio.NewReader(resp.Body)
	var data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			break
		}
	}
	var event local.Event
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, "alice", event.Target)
	assert.Equal(t, "😔 No videos found! Try another keyword.", event.Message.Text)
	assert.NotEmpty(t, event.ID)
}
