package command

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Registry holds commands by name and alias plus the ordered chat listeners.
type Registry struct {
	logger    *slog.Logger
	mu        sync.RWMutex
	prefixes  []string
	commands  map[string]Command
	ordered   []Command
	listeners []ChatListener
}

// NewRegistry creates a registry that recognizes the given prefixes.
// An empty list means "/".
func NewRegistry(log *slog.Logger, prefixes []string) *Registry {
	if log == nil {
		log = slog.Default()
	}
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{"/"}
	}
	// Longest first so "!!" wins over "!".
	sort.SliceStable(cleaned, func(i, j int) bool { return len(cleaned[i]) > len(cleaned[j]) })
	return &Registry{
		logger:   log.With(slog.String("component", "command")),
		prefixes: cleaned,
		commands: map[string]Command{},
	}
}

// Register adds cmd under its name and aliases. A command that also
// implements ChatListener is subscribed to chat messages.
func (r *Registry) Register(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("command is nil")
	}
	spec := cmd.Spec()
	keys := make([]string, 0, len(spec.Aliases)+1)
	for _, raw := range append([]string{spec.Name}, spec.Aliases...) {
		key := normalizeName(raw)
		if key == "" {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 || normalizeName(spec.Name) == "" {
		return fmt.Errorf("command name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		if _, exists := r.commands[key]; exists {
			return fmt.Errorf("command already registered: %s", key)
		}
	}
	for _, key := range keys {
		r.commands[key] = cmd
	}
	r.ordered = append(r.ordered, cmd)
	if listener, ok := cmd.(ChatListener); ok {
		r.listeners = append(r.listeners, listener)
	}
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(cmd Command) {
	if err := r.Register(cmd); err != nil {
		panic(err)
	}
}

// Listen subscribes a standalone chat listener.
func (r *Registry) Listen(listener ChatListener) {
	if listener == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, listener)
	r.mu.Unlock()
}

// Lookup finds a command by name or alias.
func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[normalizeName(name)]
	return cmd, ok
}

// Commands returns registered commands in registration order.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Command(nil), r.ordered...)
}

// Prefixes returns the recognized command prefixes.
func (r *Registry) Prefixes() []string {
	return append([]string(nil), r.prefixes...)
}

// PrimaryPrefix is the prefix shown in help and usage text.
func (r *Registry) PrimaryPrefix() string {
	for _, p := range r.prefixes {
		if p == "/" {
			return p
		}
	}
	return r.prefixes[len(r.prefixes)-1]
}

// Parse splits body into a registered command and its arguments.
func (r *Registry) Parse(body string) (Command, string, []string, bool) {
	trimmed := strings.TrimSpace(body)
	for _, prefix := range r.prefixes {
		if !strings.HasPrefix(trimmed, prefix) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(trimmed, prefix))
		if len(fields) == 0 {
			return nil, "", nil, false
		}
		name := fields[0]
		// Telegram groups address commands as /name@botname.
		if at := strings.Index(name, "@"); at > 0 {
			name = name[:at]
		}
		cmd, ok := r.Lookup(name)
		if !ok {
			return nil, "", nil, false
		}
		return cmd, prefix, fields[1:], true
	}
	return nil, "", nil, false
}

// Dispatch routes ev to a command, or to the chat listeners in order until
// one consumes it. It reports whether anything handled the message.
func (r *Registry) Dispatch(ctx context.Context, ev Event) (bool, error) {
	if strings.TrimSpace(ev.Body) == "" {
		return false, nil
	}
	if cmd, prefix, args, ok := r.Parse(ev.Body); ok {
		ev.Prefix = prefix
		name := cmd.Spec().Name
		r.logger.Debug("command invoked",
			slog.String("command", name),
			slog.String("thread_id", ev.ThreadID),
			slog.Int("args", len(args)))
		if err := cmd.OnStart(ctx, ev, args); err != nil {
			return true, fmt.Errorf("command %s: %w", name, err)
		}
		return true, nil
	}

	r.mu.RLock()
	listeners := append([]ChatListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, listener := range listeners {
		handled, err := listener.OnChat(ctx, ev)
		if err != nil {
			return handled, err
		}
		if handled {
			return true, nil
		}
	}
	return false, nil
}

func normalizeName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
