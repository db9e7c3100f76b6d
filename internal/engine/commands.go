package engine

import (
	"context"

	"chimed/internal/schedule"
)

// Commands are request structs consumed by the loop goroutine, one at a
// time, in arrival order. Every mutation is guaranteed visible to the very
// next target recomputation because the loop recomputes after each command.

type command interface{ isCommand() }

type reloadReq struct {
	scheds []schedule.Schedule
	resp   chan schedule.LoadReport
}

type addReq struct {
	sched schedule.Schedule
	resp  chan error
}

type removeReq struct {
	id   string
	resp chan error
}

type setEnabledReq struct {
	id      string
	enabled bool
	resp    chan error
}

type autostartReq struct {
	resp chan autostartResult
}

type autostartResult struct {
	enabled bool
	err     error
}

type shutdownReq struct {
	resp chan struct{}
}

func (reloadReq) isCommand()     {}
func (addReq) isCommand()        {}
func (removeReq) isCommand()     {}
func (setEnabledReq) isCommand() {}
func (autostartReq) isCommand()  {}
func (shutdownReq) isCommand()   {}

// send delivers a command to the loop, failing fast when the engine has
// stopped or the caller's context ends.
func (e *Engine) send(ctx context.Context, c command) error {
	select {
	case e.cmds <- c:
		return nil
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload replaces the schedule set from a freshly parsed config. Invalid
// entries are reported per entry; valid ones are installed.
func (e *Engine) Reload(ctx context.Context, scheds []schedule.Schedule) (schedule.LoadReport, error) {
	r := reloadReq{scheds: scheds, resp: make(chan schedule.LoadReport, 1)}
	if err := e.send(ctx, r); err != nil {
		return schedule.LoadReport{}, err
	}
	select {
	case report := <-r.resp:
		return report, nil
	case <-ctx.Done():
		return schedule.LoadReport{}, ctx.Err()
	}
}

func (e *Engine) Add(ctx context.Context, s schedule.Schedule) error {
	r := addReq{sched: s, resp: make(chan error, 1)}
	if err := e.send(ctx, r); err != nil {
		return err
	}
	select {
	case err := <-r.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) Remove(ctx context.Context, id string) error {
	r := removeReq{id: id, resp: make(chan error, 1)}
	if err := e.send(ctx, r); err != nil {
		return err
	}
	select {
	case err := <-r.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) SetEnabled(ctx context.Context, id string, enabled bool) error {
	r := setEnabledReq{id: id, enabled: enabled, resp: make(chan error, 1)}
	if err := e.send(ctx, r); err != nil {
		return err
	}
	select {
	case err := <-r.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ToggleAutostart forwards the tray command to the autostart manager. It is
// not a scheduling concern; the loop only sequences it with other commands.
func (e *Engine) ToggleAutostart(ctx context.Context) (bool, error) {
	r := autostartReq{resp: make(chan autostartResult, 1)}
	if err := e.send(ctx, r); err != nil {
		return false, err
	}
	select {
	case res := <-r.resp:
		return res.enabled, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Shutdown asks the loop to stop and waits for it to finish (including the
// in-flight playback grace window).
func (e *Engine) Shutdown(ctx context.Context) error {
	r := shutdownReq{resp: make(chan struct{}, 1)}
	if err := e.send(ctx, r); err != nil {
		if err == ErrStopped {
			return nil
		}
		return err
	}
	select {
	case <-e.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
