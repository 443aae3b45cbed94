package domain

import (
	"strings"
	"testing"
	"time"
)

func TestRunDay(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("NZST", 12*3600)
	stamp := time.Date(2026, time.August, 29, 3, 45, 12, 0, loc)

	day := RunDay(stamp)
	if day.Location() != time.UTC {
		t.Fatalf("run day must be UTC, got %v", day.Location())
	}
	if day.Hour() != 0 || day.Minute() != 0 || day.Second() != 0 {
		t.Fatalf("run day must be midnight, got %v", day)
	}
	// 03:45 NZST on the 29th is still the 28th in UTC.
	if day.Day() != 28 {
		t.Fatalf("expected UTC date 28, got %d", day.Day())
	}
}

func TestFailureVerdicts(t *testing.T) {
	t.Parallel()

	result := BatchResult{FailureReason: "api timeout"}
	if !result.Failed() {
		t.Fatal("result with a failure reason must report failed")
	}

	verdicts := result.FailureVerdicts(3)
	if len(verdicts) != 3 {
		t.Fatalf("expected 3 verdicts, got %d", len(verdicts))
	}
	for i, v := range verdicts {
		if v.IsRelevant {
			t.Fatalf("verdict %d must default to not relevant", i)
		}
		if !strings.Contains(v.Reasoning, "api timeout") {
			t.Fatalf("verdict %d must record the failure cause, got %q", i, v.Reasoning)
		}
	}
}
