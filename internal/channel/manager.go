package channel

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// ConnectionStatus describes runtime status for one configured channel connection.
type ConnectionStatus struct {
	ConfigID    string      `json:"config_id"`
	BotID       string      `json:"bot_id"`
	ChannelType ChannelType `json:"channel_type"`
	Running     bool        `json:"running"`
	LastError   string      `json:"last_error,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ManagerOption tunes a Manager.
type ManagerOption func(*Manager)

// WithInboundWorkers sets the size of the inbound worker pool. Each worker
// owns the threads that hash to it.
func WithInboundWorkers(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.inboundWorkers = n
		}
	}
}

// Manager coordinates channel adapters, connection lifecycle, and message dispatch.
// Connection lifecycle lives in connection.go, inbound dispatch in inbound.go,
// and outbound pipeline in outbound.go.
type Manager struct {
	registry        *Registry
	store           ConfigLister
	processor       InboundProcessor
	refreshInterval time.Duration
	logger          *slog.Logger

	inboundQueues  []chan inboundTask
	inboundWorkers int
	inboundOnce    sync.Once
	inboundCtx     context.Context
	inboundCancel  context.CancelFunc
	mu             sync.Mutex
	refreshMu      sync.Mutex
	connections    map[string]*connectionEntry
	connectionMeta map[string]ConnectionStatus
}

// NewManager creates a Manager with the given logger, registry, config store, and inbound processor.
func NewManager(log *slog.Logger, registry *Registry, store ConfigLister, processor InboundProcessor, opts ...ManagerOption) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	m := &Manager{
		registry:        registry,
		store:           store,
		processor:       processor,
		refreshInterval: 5 * time.Minute,
		connections:     map[string]*connectionEntry{},
		connectionMeta:  map[string]ConnectionStatus{},
		logger:          log.With(slog.String("component", "channel")),
		inboundWorkers:  4,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Refresh performs a full reconcile of all adapter connections against the store.
func (m *Manager) Refresh(ctx context.Context) {
	if ctx != nil {
		m.refresh(ctx)
	}
}

// Start begins the periodic config refresh loop and inbound worker pool.
func (m *Manager) Start(ctx context.Context) {
	m.logger.Info("manager start")
	m.startInboundWorkers(ctx)
	go func() {
		m.refresh(ctx)
		ticker := time.NewTicker(m.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				m.logger.Info("manager stop")
				m.stopAll(context.WithoutCancel(ctx))
				return
			case <-ticker.C:
				m.refresh(ctx)
			}
		}
	}()
}

// Shutdown cancels the inbound worker pool and stops all active connections.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.inboundCancel != nil {
		m.inboundCancel()
	}
	m.stopAll(ctx)
	return nil
}

// ConnectionStatuses returns the observed status of every configured connection.
func (m *Manager) ConnectionStatuses() []ConnectionStatus {
	m.mu.Lock()
	items := make([]ConnectionStatus, 0, len(m.connectionMeta))
	for _, status := range m.connectionMeta {
		items = append(items, status)
	}
	m.mu.Unlock()
	sortStatuses(items)
	return items
}

// ConnectionStatusesByBot returns observed channel connection statuses for a bot.
func (m *Manager) ConnectionStatusesByBot(botID string) []ConnectionStatus {
	botID = strings.TrimSpace(botID)
	if botID == "" {
		return []ConnectionStatus{}
	}
	all := m.ConnectionStatuses()
	items := make([]ConnectionStatus, 0, len(all))
	for _, status := range all {
		if status.BotID == botID {
			items = append(items, status)
		}
	}
	return items
}

func sortStatuses(items []ConnectionStatus) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].ChannelType == items[j].ChannelType {
			return items[i].ConfigID < items[j].ConfigID
		}
		return items[i].ChannelType < items[j].ChannelType
	})
}
