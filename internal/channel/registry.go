package channel

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds all registered channel adapters. It must be created via
// NewRegistry and passed explicitly to components that need it.
type Registry struct {
	mu       sync.RWMutex
	adapters map[ChannelType]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[ChannelType]Adapter{},
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return fmt.Errorf("adapter is nil")
	}
	ct := normalizeChannelType(adapter.Type().String())
	if ct == "" {
		return fmt.Errorf("channel type is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[ct]; exists {
		return fmt.Errorf("channel type already registered: %s", ct)
	}
	r.adapters[ct] = adapter
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(adapter Adapter) {
	if err := r.Register(adapter); err != nil {
		panic(err)
	}
}

// Get returns the adapter for the given channel type.
func (r *Registry) Get(channelType ChannelType) (Adapter, bool) {
	ct := normalizeChannelType(channelType.String())
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[ct]
	return adapter, ok
}

// Types returns all registered channel types in sorted order.
func (r *Registry) Types() []ChannelType {
	r.mu.RLock()
	items := make([]ChannelType, 0, len(r.adapters))
	for ct := range r.adapters {
		items = append(items, ct)
	}
	r.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}

// GetDescriptor returns the descriptor for the given channel type.
func (r *Registry) GetDescriptor(channelType ChannelType) (Descriptor, bool) {
	adapter, ok := r.Get(channelType)
	if !ok {
		return Descriptor{}, false
	}
	return adapter.Descriptor(), true
}

// ListDescriptors returns descriptors for all registered channel types.
func (r *Registry) ListDescriptors() []Descriptor {
	types := r.Types()
	items := make([]Descriptor, 0, len(types))
	for _, ct := range types {
		if desc, ok := r.GetDescriptor(ct); ok {
			items = append(items, desc)
		}
	}
	return items
}

// ParseChannelType validates and normalizes a raw string into a registered ChannelType.
func (r *Registry) ParseChannelType(raw string) (ChannelType, error) {
	ct := normalizeChannelType(raw)
	if ct == "" {
		return "", fmt.Errorf("unsupported channel type: %s", raw)
	}
	if _, ok := r.Get(ct); !ok {
		return "", fmt.Errorf("unsupported channel type: %s", raw)
	}
	return ct, nil
}

// GetCapabilities returns the capability matrix for the given channel type.
func (r *Registry) GetCapabilities(channelType ChannelType) (ChannelCapabilities, bool) {
	desc, ok := r.GetDescriptor(channelType)
	if !ok {
		return ChannelCapabilities{}, false
	}
	return desc.Capabilities, true
}

// GetOutboundPolicy returns the outbound policy for the given channel type.
func (r *Registry) GetOutboundPolicy(channelType ChannelType) (OutboundPolicy, bool) {
	desc, ok := r.GetDescriptor(channelType)
	if !ok {
		return OutboundPolicy{}, false
	}
	return desc.OutboundPolicy, true
}

// GetSender returns the Sender for the given channel type, or nil if unsupported.
func (r *Registry) GetSender(channelType ChannelType) (Sender, bool) {
	adapter, ok := r.Get(channelType)
	if !ok {
		return nil, false
	}
	sender, ok := adapter.(Sender)
	return sender, ok
}

// GetReceiver returns the Receiver for the given channel type, or nil if unsupported.
func (r *Registry) GetReceiver(channelType ChannelType) (Receiver, bool) {
	adapter, ok := r.Get(channelType)
	if !ok {
		return nil, false
	}
	receiver, ok := adapter.(Receiver)
	return receiver, ok
}

// GetProcessingStatusNotifier returns the ProcessingStatusNotifier for the given channel type, or nil if unsupported.
func (r *Registry) GetProcessingStatusNotifier(channelType ChannelType) (ProcessingStatusNotifier, bool) {
	adapter, ok := r.Get(channelType)
	if !ok {
		return nil, false
	}
	notifier, ok := adapter.(ProcessingStatusNotifier)
	return notifier, ok
}

// NormalizeTarget applies the channel-specific target normalization.
func (r *Registry) NormalizeTarget(channelType ChannelType, raw string) (string, bool) {
	adapter, ok := r.Get(channelType)
	if !ok {
		return strings.TrimSpace(raw), false
	}
	if normalizer, ok := adapter.(TargetNormalizer); ok {
		normalized := strings.TrimSpace(normalizer.NormalizeTarget(raw))
		if normalized == "" {
			return "", false
		}
		return normalized, true
	}
	return strings.TrimSpace(raw), false
}

func normalizeChannelType(raw string) ChannelType {
	normalized := strings.TrimSpace(strings.ToLower(raw))
	if normalized == "" {
		return ""
	}
	return ChannelType(normalized)
}
