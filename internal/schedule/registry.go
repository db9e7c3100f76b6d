package schedule

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry owns the live schedule set. It is the single writer; consumers
// read point-in-time snapshots.
type Registry struct {
	mu     sync.RWMutex
	scheds []Schedule // ascending by ID; never mutated in place

	now func() time.Time
}

// Rejected reports one schedule that failed validation.
type Rejected struct {
	ID  string
	Err error
}

// LoadReport is the per-entry outcome of a Load.
type LoadReport struct {
	Accepted int
	Rejected []Rejected
}

func (r LoadReport) Ok() bool { return len(r.Rejected) == 0 }

func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// validate parses the cron rule and proves it can still fire.
func (r *Registry) validate(s *Schedule) error {
	if s.ID == "" {
		return ErrEmptyID
	}
	if s.Kind == "" {
		s.Kind = KindCron
	}
	if s.Kind != KindCron {
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	expr, err := ParseCron(s.Cron)
	if err != nil {
		return err
	}
	if _, err := expr.NextAfter(r.now()); err != nil {
		return err
	}
	s.expr = expr
	return nil
}

// Load replaces the schedule set. Entries are validated independently:
// valid ones are installed, invalid ones (bad cron, unsatisfiable rule,
// duplicate id, empty id) are reported in the returned LoadReport and
// skipped. Callers that need all-or-nothing semantics check report.Ok()
// before committing dependent state.
func (r *Registry) Load(in []Schedule) LoadReport {
	var report LoadReport
	next := make([]Schedule, 0, len(in))
	seen := make(map[string]struct{}, len(in))

	for _, s := range in {
		if _, dup := seen[s.ID]; dup && s.ID != "" {
			report.Rejected = append(report.Rejected, Rejected{ID: s.ID, Err: fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)})
			continue
		}
		if err := r.validate(&s); err != nil {
			report.Rejected = append(report.Rejected, Rejected{ID: s.ID, Err: err})
			continue
		}
		seen[s.ID] = struct{}{}
		next = append(next, s)
	}
	sortByID(next)
	report.Accepted = len(next)

	r.mu.Lock()
	r.scheds = next
	r.mu.Unlock()
	return report
}

func (r *Registry) Add(s Schedule) error {
	if err := r.validate(&s); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.scheds {
		if cur.ID == s.ID {
			return fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
		}
	}
	next := make([]Schedule, 0, len(r.scheds)+1)
	next = append(next, r.scheds...)
	next = append(next, s)
	sortByID(next)
	r.scheds = next
	return nil
}

func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make([]Schedule, 0, len(r.scheds))
	found := false
	for _, cur := range r.scheds {
		if cur.ID == id {
			found = true
			continue
		}
		next = append(next, cur)
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	r.scheds = next
	return nil
}

func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make([]Schedule, len(r.scheds))
	copy(next, r.scheds)
	for i := range next {
		if next[i].ID == id {
			next[i].Enabled = enabled
			r.scheds = next
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

// Snapshot returns the current schedule set, ascending by id. The returned
// slice is shared and must be treated as read-only.
func (r *Registry) Snapshot() []Schedule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scheds
}

func (r *Registry) Get(id string) (Schedule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cur := range r.scheds {
		if cur.ID == id {
			return cur, true
		}
	}
	return Schedule{}, false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scheds)
}

func sortByID(s []Schedule) {
	sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })
}
