package schedule

import (
	"errors"
	"testing"
)

func TestLoadPerEntryValidation(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	report := reg.Load([]Schedule{
		{ID: "b", Kind: KindCron, Cron: "0 * * * *", File: "b.wav", Enabled: true},
		{ID: "a", Kind: KindCron, Cron: "*/5 * * * *", File: "a.wav", Enabled: true},
		{ID: "bad", Kind: KindCron, Cron: "not a cron", File: "x.wav"},
		{ID: "", Kind: KindCron, Cron: "0 * * * *", File: "y.wav"},
		{ID: "a", Kind: KindCron, Cron: "0 0 * * *", File: "dup.wav"},
		{ID: "weird", Kind: Kind("interval"), Cron: "0 * * * *", File: "z.wav"},
	})

	if report.Accepted != 2 {
		t.Fatalf("Accepted = %d, want 2", report.Accepted)
	}
	if len(report.Rejected) != 4 {
		t.Fatalf("Rejected = %d, want 4", len(report.Rejected))
	}
	if report.Ok() {
		t.Fatal("report.Ok() = true with rejects")
	}

	var gotDup, gotEmpty, gotKind bool
	for _, rej := range report.Rejected {
		switch {
		case errors.Is(rej.Err, ErrDuplicateID):
			gotDup = true
		case errors.Is(rej.Err, ErrEmptyID):
			gotEmpty = true
		case errors.Is(rej.Err, ErrUnknownKind):
			gotKind = true
		}
	}
	if !gotDup || !gotEmpty || !gotKind {
		t.Fatalf("missing expected reject reasons: dup=%v empty=%v kind=%v", gotDup, gotEmpty, gotKind)
	}
}

func TestSnapshotOrderedByID(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Load([]Schedule{
		{ID: "charlie", Cron: "0 * * * *", File: "c.wav"},
		{ID: "alpha", Cron: "0 * * * *", File: "a.wav"},
		{ID: "bravo", Cron: "0 * * * *", File: "b.wav"},
	})

	snap := reg.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len = %d, want 3", len(snap))
	}
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if snap[i].ID != want {
			t.Fatalf("snap[%d].ID = %s, want %s", i, snap[i].ID, want)
		}
	}
}

func TestAddRemoveSetEnabled(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()

	if err := reg.Add(Schedule{ID: "x", Cron: "0 * * * *", File: "x.wav", Enabled: true}); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := reg.Add(Schedule{ID: "x", Cron: "0 0 * * *", File: "x2.wav"}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate Add err = %v, want ErrDuplicateID", err)
	}
	if err := reg.Add(Schedule{ID: "y", Cron: "nope", File: "y.wav"}); err == nil {
		t.Fatal("expected error for invalid cron")
	}

	if err := reg.SetEnabled("x", false); err != nil {
		t.Fatalf("SetEnabled error: %v", err)
	}
	s, ok := reg.Get("x")
	if !ok || s.Enabled {
		t.Fatalf("Get(x) = %+v ok=%v, want disabled entry", s, ok)
	}

	if err := reg.SetEnabled("missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetEnabled(missing) err = %v, want ErrNotFound", err)
	}
	if err := reg.Remove("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Remove(missing) err = %v, want ErrNotFound", err)
	}
	if err := reg.Remove("x"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("Len = %d, want 0", reg.Len())
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Load([]Schedule{{ID: "x", Cron: "0 * * * *", File: "x.wav", Enabled: true}})

	before := reg.Snapshot()
	if err := reg.SetEnabled("x", false); err != nil {
		t.Fatalf("SetEnabled error: %v", err)
	}
	if !before[0].Enabled {
		t.Fatal("earlier snapshot mutated by SetEnabled")
	}
	after := reg.Snapshot()
	if after[0].Enabled {
		t.Fatal("new snapshot missing the toggle")
	}
}

func TestLoadedScheduleHasParsedExpression(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Load([]Schedule{{ID: "x", Cron: "0 * * * *", File: "x.wav", Enabled: true}})

	s, ok := reg.Get("x")
	if !ok {
		t.Fatal("Get(x) missing")
	}
	if _, err := s.Expr().NextAfter(reg.now()); err != nil {
		t.Fatalf("Expr().NextAfter error: %v", err)
	}
}
