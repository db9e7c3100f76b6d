// Package engine runs the dispatch loop: a single goroutine that reconciles
// every enabled schedule into one wait, sleeps until the earliest next fire
// instant, and hands due schedules to the player.
//
// All mutations (reload, add, remove, enable/disable, autostart toggle,
// shutdown) enter through one command channel, so the loop never polls and
// every registry change retargets the pending wait before it can expire
// stale. Playback runs on separate goroutines; the loop only tracks
// in-flight schedule ids so a schedule never overlaps itself while other
// schedules keep firing concurrently.
//
// The loop survives everything except shutdown: asset and device failures
// are isolated to the attempt, unsatisfiable schedules are skipped with a
// warning, and a backward wall-clock jump just forces a recomputation
// (dispatching the same (schedule, instant) pair twice is prevented by
// remembering the last dispatched instant per schedule).
package engine
