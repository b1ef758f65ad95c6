package command

import (
	"context"
	"fmt"
	"strings"
)

// Help lists registered commands or describes one of them.
type Help struct {
	registry *Registry
}

// NewHelp creates the help command for registry.
func NewHelp(registry *Registry) *Help {
	return &Help{registry: registry}
}

func (h *Help) Spec() Spec {
	return Spec{
		Name:        "help",
		Aliases:     []string{"commands"},
		Category:    "info",
		Description: "Show available commands",
		Usage:       "{pn} [command]",
	}
}

func (h *Help) OnStart(ctx context.Context, ev Event, args []string) error {
	prefix := ev.Prefix
	if prefix == "" {
		prefix = h.registry.PrimaryPrefix()
	}
	if len(args) > 0 {
		cmd, ok := h.registry.Lookup(args[0])
		if !ok {
			return ev.Reply(ctx, Reply{Text: fmt.Sprintf("❌ Unknown command: %s", args[0]), ReplyTo: ev.MessageID})
		}
		return ev.Reply(ctx, Reply{Text: describe(cmd.Spec(), prefix), ReplyTo: ev.MessageID})
	}
	var b strings.Builder
	b.WriteString("📖 Available commands\n")
	for _, cmd := range h.registry.Commands() {
		spec := cmd.Spec()
		fmt.Fprintf(&b, "\n• %s%s", prefix, spec.Name)
		if spec.Description != "" {
			fmt.Fprintf(&b, " - %s", spec.Description)
		}
	}
	fmt.Fprintf(&b, "\n\nUse %shelp <command> for details.", prefix)
	return ev.Reply(ctx, Reply{Text: b.String(), ReplyTo: ev.MessageID})
}

func describe(spec Spec, prefix string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s", prefix, spec.Name)
	if spec.Description != "" {
		fmt.Fprintf(&b, "\n%s", spec.Description)
	}
	if len(spec.Aliases) > 0 {
		fmt.Fprintf(&b, "\nAliases: %s", strings.Join(spec.Aliases, ", "))
	}
	if spec.Category != "" {
		fmt.Fprintf(&b, "\nCategory: %s", spec.Category)
	}
	if spec.Usage != "" {
		fmt.Fprintf(&b, "\nUsage:\n%s", FormatUsage(spec.Usage, prefix, spec.Name))
	}
	return b.String()
}
