package healthcheck

import (
	"context"
	"testing"
)

type testChecker struct {
	items []CheckResult
}

func (c *testChecker) ListChecks(ctx context.Context, botID string) []CheckResult {
	return c.items
}

func TestRunTakesWorstStatus(t *testing.T) {
	t.Parallel()

	report := Run(context.Background(), "bot-1",
		&testChecker{items: []CheckResult{{ID: "a", Status: StatusOK}}},
		nil,
		&testChecker{items: []CheckResult{{ID: "b", Status: StatusWarn}, {ID: "c", Status: StatusOK}}},
	)
	if report.Status != StatusWarn {
		t.Fatalf("expected warn, got %s", report.Status)
	}
	if len(report.Checks) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(report.Checks))
	}
	if report.Checks[1].ID != "b" {
		t.Fatalf("checks out of order: %+v", report.Checks)
	}
	if report.BotID != "bot-1" || report.CheckedAt.IsZero() {
		t.Fatalf("unexpected report header: %+v", report)
	}

	report = Run(context.Background(), "bot-1",
		&testChecker{items: []CheckResult{{ID: "x", Status: StatusError}}},
		&testChecker{items: []CheckResult{{ID: "y", Status: StatusWarn}}},
	)
	if report.Status != StatusError {
		t.Fatalf("expected error, got %s", report.Status)
	}
}

func TestRunWithoutChecks(t *testing.T) {
	t.Parallel()

	report := Run(context.Background(), "bot-1")
	if report.Status != StatusOK {
		t.Fatalf("expected ok, got %s", report.Status)
	}
	if report.Checks == nil {
		t.Fatal("checks should be an empty slice")
	}
}
