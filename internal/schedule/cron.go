package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts 5-field cron (seconds default to 0), 6-field cron with a
// leading seconds field, and descriptors like "@hourly".
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Expression is a parsed cron rule. The zero value is unusable; obtain one
// via ParseCron. Safe for concurrent use.
type Expression struct {
	raw   string
	sched cron.Schedule
}

func ParseCron(raw string) (Expression, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Expression{}, fmt.Errorf("%w: empty expression", ErrInvalidCron)
	}
	sched, err := parser.Parse(raw)
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %q: %v", ErrInvalidCron, raw, err)
	}
	return Expression{raw: raw, sched: sched}, nil
}

func (e Expression) String() string { return e.raw }

func (e Expression) IsZero() bool { return e.sched == nil }

// NextAfter returns the smallest matching instant strictly greater than ref,
// at second resolution.
//
// The underlying search is bounded (it gives up several years out), so a
// parseable expression that can never match again, e.g. "0 0 30 2 *",
// yields ErrUnsatisfiable instead of looping forever.
func (e Expression) NextAfter(ref time.Time) (time.Time, error) {
	if e.sched == nil {
		return time.Time{}, fmt.Errorf("%w: unparsed expression", ErrInvalidCron)
	}
	next := e.sched.Next(ref)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q after %s", ErrUnsatisfiable, e.raw, ref.Format(time.RFC3339))
	}
	return next, nil
}
