// Package snapshot holds the debugger's Context Snapshot — the fields
// recorded on each instrumented test evaluation — and the scoped
// save/restore discipline the `test` REPL command uses to run an ad-hoc
// evaluation without disturbing the real run.
package snapshot

import "github.com/polyfile/pfdbg/magic"

// Snapshot is the closed set of fields named in spec.md §3/§4.4. It is a
// plain value type: copying it by assignment is exactly the "shallow copy
// of every named field" save_context requires.
type Snapshot struct {
	Data            []byte
	LastTest        magic.Test
	LastOffset      int
	LastParentMatch magic.Result
	LastResult      magic.Result
	LastCommand     string
	// ReplTest tags an ad-hoc test run via the REPL's `test` command so the
	// instrumentation hook can recognize and skip recording it.
	ReplTest magic.Test
}

// Guard is a scoped handle returned by Save. Release restores every field
// of the live Snapshot to what it held at Save time, regardless of what
// happened in between — including on an exceptional exit path, since
// callers defer Release immediately after Save.
type Guard struct {
	target *Snapshot
	saved  Snapshot
}

// Save captures a copy of *target and returns a Guard whose Release
// restores it.
func Save(target *Snapshot) *Guard {
	return &Guard{target: target, saved: *target}
}

// Release restores the snapshot captured at Save time.
func (g *Guard) Release() {
	*g.target = g.saved
}
