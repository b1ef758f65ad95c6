package channel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/memohai/ytbot/internal/config"
)

// ConfigLister lists channel configs for periodic refresh.
type ConfigLister interface {
	ListConfigsByType(ctx context.Context, channelType ChannelType) ([]ChannelConfig, error)
}

// StaticStore serves channel configs declared in the config file.
type StaticStore struct {
	mu      sync.RWMutex
	configs []ChannelConfig
}

// NewStaticStore converts file-level channel declarations into ChannelConfigs.
func NewStaticStore(items []config.ChannelConfig) *StaticStore {
	loadedAt := time.Now().UTC()
	configs := make([]ChannelConfig, 0, len(items))
	for _, item := range items {
		botID := strings.TrimSpace(item.BotID)
		if botID == "" {
			botID = config.DefaultBotID
		}
		creds := map[string]any{}
		if token := strings.TrimSpace(item.Token); token != "" {
			creds["botToken"] = token
		}
		configs = append(configs, ChannelConfig{
			ID:          strings.TrimSpace(item.ID),
			BotID:       botID,
			ChannelType: normalizeChannelType(item.Type),
			Credentials: creds,
			Disabled:    item.Disabled,
			UpdatedAt:   loadedAt,
		})
	}
	return &StaticStore{configs: configs}
}

// ListConfigsByType returns the configs declared for channelType.
func (s *StaticStore) ListConfigsByType(_ context.Context, channelType ChannelType) ([]ChannelConfig, error) {
	ct := normalizeChannelType(channelType.String())
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ChannelConfig, 0)
	for _, cfg := range s.configs {
		if cfg.ChannelType == ct {
			items = append(items, cfg)
		}
	}
	return items, nil
}

// Get returns the config with the given id.
func (s *StaticStore) Get(configID string) (ChannelConfig, error) {
	configID = strings.TrimSpace(configID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cfg := range s.configs {
		if cfg.ID == configID {
			return cfg, nil
		}
	}
	return ChannelConfig{}, fmt.Errorf("channel config not found: %s", configID)
}

// FirstByType returns the first enabled config of the given type.
func (s *StaticStore) FirstByType(channelType ChannelType) (ChannelConfig, bool) {
	ct := normalizeChannelType(channelType.String())
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cfg := range s.configs {
		if cfg.ChannelType == ct && !cfg.Disabled {
			return cfg, true
		}
	}
	return ChannelConfig{}, false
}

// BotIDs lists the distinct bot ids across all configs.
func (s *StaticStore) BotIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	ids := make([]string, 0)
	for _, cfg := range s.configs {
		if _, ok := seen[cfg.BotID]; ok {
			continue
		}
		seen[cfg.BotID] = struct{}{}
		ids = append(ids, cfg.BotID)
	}
	return ids
}
