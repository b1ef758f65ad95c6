// Package common holds helpers shared by channel adapters.
package common

import "strings"

const summaryLimit = 120

// SummarizeText collapses whitespace and truncates text for log lines.
func SummarizeText(text string) string {
	value := strings.Join(strings.Fields(text), " ")
	runes := []rune(value)
	if len(runes) <= summaryLimit {
		return value
	}
	return string(runes[:summaryLimit]) + "..."
}
