package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type connectionEntry struct {
	config     ChannelConfig
	connection Connection
}

func (m *Manager) refresh(ctx context.Context) {
	// Serialize refresh calls so concurrent callers wait instead of silently skipping.
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	if m.store == nil {
		return
	}
	configs := make([]ChannelConfig, 0)
	for _, channelType := range m.registry.Types() {
		items, err := m.store.ListConfigsByType(ctx, channelType)
		if err != nil {
			m.logger.Error("list configs failed", slog.String("channel", channelType.String()), slog.Any("error", err))
			continue
		}
		configs = append(configs, items...)
	}
	m.reconcile(ctx, configs)
}

func (m *Manager) reconcile(ctx context.Context, configs []ChannelConfig) {
	active := map[string]ChannelConfig{}
	for _, cfg := range configs {
		if cfg.ID == "" || cfg.Disabled {
			continue
		}
		active[cfg.ID] = cfg
		if err := m.ensureConnection(ctx, cfg); err != nil {
			m.markConnectionStatus(cfg, false, err)
			m.logger.Error("adapter start failed", connAttrs(cfg, slog.Any("error", err))...)
		}
	}

	m.mu.Lock()
	stale := make([]*connectionEntry, 0)
	for id, entry := range m.connections {
		if _, ok := active[id]; ok {
			continue
		}
		stale = append(stale, entry)
		delete(m.connections, id)
	}
	for id := range m.connectionMeta {
		if _, ok := active[id]; !ok {
			delete(m.connectionMeta, id)
		}
	}
	m.mu.Unlock()

	for _, entry := range stale {
		_ = m.stopEntry(ctx, entry, "adapter stop")
	}
}

func (m *Manager) ensureConnection(ctx context.Context, cfg ChannelConfig) error {
	receiver, ok := m.registry.GetReceiver(cfg.ChannelType)
	if !ok {
		m.markConnectionStatus(cfg, false, fmt.Errorf("receiver not available"))
		return nil
	}

	m.mu.Lock()
	entry := m.connections[cfg.ID]
	// Config unchanged: nothing to do.
	if entry != nil && !entry.config.UpdatedAt.Before(cfg.UpdatedAt) {
		m.setConnectionStatusLocked(entry.config, entryRunning(entry), nil)
		m.mu.Unlock()
		return nil
	}
	if entry != nil {
		delete(m.connections, cfg.ID)
	}
	m.mu.Unlock()

	if entry != nil {
		if err := m.stopEntry(ctx, entry, "adapter restart"); err != nil {
			if errors.Is(err, ErrStopNotSupported) {
				m.logger.Warn("adapter restart skipped", connAttrs(cfg)...)
				m.mu.Lock()
				if _, exists := m.connections[cfg.ID]; !exists {
					m.connections[cfg.ID] = entry
					m.setConnectionStatusLocked(entry.config, entryRunning(entry), nil)
				}
				m.mu.Unlock()
				return nil
			}
			m.markConnectionStatus(cfg, false, err)
			return err
		}
	}

	m.logger.Info("adapter start", connAttrs(cfg)...)
	connectCtx := context.Background()
	if ctx != nil {
		// Long-lived adapter connections must outlive request contexts.
		connectCtx = context.WithoutCancel(ctx)
	}
	conn, err := receiver.Connect(connectCtx, cfg, m.HandleInbound)
	if err != nil {
		m.markConnectionStatus(cfg, false, err)
		return err
	}

	m.mu.Lock()
	if existing, ok := m.connections[cfg.ID]; ok && existing != nil {
		// Lost a race with another refresh; keep the existing connection.
		m.setConnectionStatusLocked(existing.config, entryRunning(existing), nil)
		m.mu.Unlock()
		_ = conn.Stop(context.Background())
		return nil
	}
	m.connections[cfg.ID] = &connectionEntry{config: cfg, connection: conn}
	m.setConnectionStatusLocked(cfg, true, nil)
	m.mu.Unlock()
	return nil
}

func (m *Manager) stopAll(ctx context.Context) {
	m.mu.Lock()
	entries := make([]*connectionEntry, 0, len(m.connections))
	for id, entry := range m.connections {
		entries = append(entries, entry)
		delete(m.connections, id)
		delete(m.connectionMeta, id)
	}
	m.mu.Unlock()
	for _, entry := range entries {
		_ = m.stopEntry(ctx, entry, "adapter stop")
	}
}

// stopEntry stops one connection, logging the outcome under action.
func (m *Manager) stopEntry(ctx context.Context, entry *connectionEntry, action string) error {
	if entry == nil || entry.connection == nil {
		return nil
	}
	m.logger.Info(action, connAttrs(entry.config)...)
	err := entry.connection.Stop(ctx)
	if err != nil && !errors.Is(err, ErrStopNotSupported) {
		m.logger.Warn(action+" failed", connAttrs(entry.config, slog.Any("error", err))...)
	}
	return err
}

func entryRunning(entry *connectionEntry) bool {
	return entry != nil && entry.connection != nil && entry.connection.Running()
}

func connAttrs(cfg ChannelConfig, extra ...any) []any {
	attrs := []any{
		slog.String("bot_id", cfg.BotID),
		slog.String("channel", cfg.ChannelType.String()),
		slog.String("config_id", cfg.ID),
	}
	return append(attrs, extra...)
}

func (m *Manager) markConnectionStatus(cfg ChannelConfig, running bool, checkErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setConnectionStatusLocked(cfg, running, checkErr)
}

func (m *Manager) setConnectionStatusLocked(cfg ChannelConfig, running bool, checkErr error) {
	if strings.TrimSpace(cfg.ID) == "" {
		return
	}
	previous, hasPrevious := m.connectionMeta[cfg.ID]
	status := ConnectionStatus{
		ConfigID:    cfg.ID,
		BotID:       cfg.BotID,
		ChannelType: cfg.ChannelType,
		Running:     running,
		UpdatedAt:   time.Now().UTC(),
	}
	if checkErr != nil {
		status.LastError = checkErr.Error()
	}
	m.connectionMeta[cfg.ID] = status
	if checkErr != nil && (!hasPrevious || previous.LastError != status.LastError || previous.Running != status.Running) {
		m.logger.Warn("connection health check failed", connAttrs(cfg, slog.Any("error", checkErr))...)
	}
	if running && hasPrevious && strings.TrimSpace(previous.LastError) != "" {
		m.logger.Info("connection health recovered", connAttrs(cfg)...)
	}
}
