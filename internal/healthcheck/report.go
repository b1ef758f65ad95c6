package healthcheck

import (
	"context"
	"time"
)

// Report is the combined result of several checkers.
type Report struct {
	Status    string        `json:"status"`
	BotID     string        `json:"bot_id"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Run evaluates every checker in order. The report status is the worst
// status of any check, or ok when there are none.
func Run(ctx context.Context, botID string, checkers ...Checker) Report {
	report := Report{
		Status:    StatusOK,
		BotID:     botID,
		Checks:    []CheckResult{},
		CheckedAt: time.Now().UTC(),
	}
	for _, checker := range checkers {
		if checker == nil {
			continue
		}
		for _, item := range checker.ListChecks(ctx, botID) {
			report.Checks = append(report.Checks, item)
			if severity(item.Status) > severity(report.Status) {
				report.Status = item.Status
			}
		}
	}
	return report
}

func severity(status string) int {
	switch status {
	case StatusOK:
		return 0
	case StatusUnknown:
		return 1
	case StatusWarn:
		return 2
	case StatusError:
		return 3
	default:
		return 1
	}
}
