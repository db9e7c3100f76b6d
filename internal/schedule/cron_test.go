package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestNextAfterVariants(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 3, 10, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  string
		ref  time.Time
		want time.Time
	}{
		{name: "hourly mid-hour", raw: "0 * * * *", ref: base, want: time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)},
		{name: "hourly on boundary", raw: "0 * * * *", ref: time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC), want: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		{name: "with seconds field", raw: "*/15 * * * * *", ref: time.Date(2024, 3, 10, 10, 30, 7, 0, time.UTC), want: time.Date(2024, 3, 10, 10, 30, 15, 0, time.UTC)},
		{name: "descriptor", raw: "@daily", ref: base, want: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{name: "specific minute", raw: "45 9 * * *", ref: base, want: time.Date(2024, 3, 11, 9, 45, 0, 0, time.UTC)},
		{name: "year wraparound", raw: "0 0 1 1 *", ref: base, want: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "leap day", raw: "0 12 29 2 *", ref: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), want: time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseCron(tt.raw)
			if err != nil {
				t.Fatalf("ParseCron(%q) error: %v", tt.raw, err)
			}
			got, err := expr.NextAfter(tt.ref)
			if err != nil {
				t.Fatalf("NextAfter error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("NextAfter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextAfterStrictlyAfterRef(t *testing.T) {
	t.Parallel()
	expr, err := ParseCron("*/5 * * * *")
	if err != nil {
		t.Fatalf("ParseCron error: %v", err)
	}
	ref := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	got, err := expr.NextAfter(ref)
	if err != nil {
		t.Fatalf("NextAfter error: %v", err)
	}
	if !got.After(ref) {
		t.Fatalf("NextAfter = %v, not strictly after ref %v", got, ref)
	}
}

func TestParseCronInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not a cron", "61 * * * *", "* * * *"} {
		if _, err := ParseCron(raw); err == nil {
			t.Fatalf("ParseCron(%q) expected error", raw)
		}
	}
}

func TestNextAfterUnsatisfiable(t *testing.T) {
	t.Parallel()
	// Feb 30 never exists.
	expr, err := ParseCron("0 0 30 2 *")
	if err != nil {
		t.Fatalf("ParseCron error: %v", err)
	}
	_, err = expr.NextAfter(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("err = %v, want ErrUnsatisfiable", err)
	}
}
