package schedule

// Kind tags the recurrence rule variant. Cron is the only variant today;
// the tag exists so configs stay forward-compatible.
type Kind string

const KindCron Kind = "cron"

// Schedule binds one recurrence rule to a sound asset.
//
// Values are immutable once inside a registry snapshot; mutations replace
// the whole record.
type Schedule struct {
	ID      string
	Kind    Kind
	Cron    string
	File    string
	Enabled bool

	// expr is the parsed form of Cron, populated by the registry on accept.
	expr Expression
}

// Expr returns the parsed cron expression.
func (s Schedule) Expr() Expression { return s.expr }
