// Package submatch implements the Submatch Debug Driver: the pre-parse
// prompt and lazy submatch relay that hands control to an external
// source-level debugger when the user opts in.
package submatch

import (
	"fmt"
	"io"
	"iter"

	"github.com/polyfile/pfdbg/magic"
)

// Prompter asks the user a yes/no question, returning defaultYes if the
// input is empty. Implementations read from the REPL's input source; a
// nested prompt's EOF is a cancel signal the caller treats as "decline."
type Prompter interface {
	Confirm(message string, defaultYes bool) (bool, error)
}

// ExternalDebugger represents the handle to the secondary source-level
// debugger the driver hands control to. The real stepping behavior is an
// external collaborator (spec.md's "hand off to a secondary source-level
// debugger"); this package only needs to know a handle exists so it can
// detect re-entrancy and release it deterministically.
type ExternalDebugger interface {
	// Step pulls exactly one item from next "under" the external debugger.
	// A trivial implementation just calls next(); a real integration would
	// run it under a breakpoint-aware stepper configured to skip this
	// package's own frames.
	Step(next func() (magic.SubmatchView, bool)) (magic.SubmatchView, bool)
	Release()
}

// Driver orchestrates one debug_parse invocation. A single Driver instance
// is owned by the debugger and reused across parser hooks, so its active
// handle can be checked for re-entrancy.
type Driver struct {
	Out     io.Writer
	Prompt  Prompter
	NewDebugger func() ExternalDebugger

	active ExternalDebugger
}

// Active reports whether an external debugger handle is currently
// installed — re-entrant debug_parse calls check this and skip straight
// to transparent iteration.
func (d *Driver) Active() bool { return d.active != nil }

// Drive wraps seq, the lazy submatch sequence a just-matched container's
// parser produces. If an external debugger is already active (re-entrant
// call), seq is returned untouched and nothing is printed — spec.md §4.6's
// re-entrancy rule skips steps 1-4 entirely. Otherwise step 1 prints the
// matched structure (a key/value dump, scalar and string fields only) and
// location (source name and current stream offset), then the user is
// prompted; on decline, seq passes through untouched; on acceptance, each
// submatch is pulled one at a time under a fresh external debugger handle,
// printed, and offered for continued stepping.
func (d *Driver) Drive(parserName string, matched magic.SubmatchView, location string, seq iter.Seq[magic.SubmatchView]) iter.Seq[magic.SubmatchView] {
	if d.Active() {
		return seq
	}

	fmt.Fprintln(d.Out, FormatView(matched))
	fmt.Fprintf(d.Out, "%s About to parse submatches for %s.\n", location, parserName)

	debug, err := d.Prompt.Confirm("Debug using PDB-equivalent? (set break_on_parsing False to disable)", false)
	if err != nil || !debug {
		return seq
	}

	return func(yield func(magic.SubmatchView) bool) {
		handle := d.NewDebugger()
		d.active = handle

		defer func() {
			handle.Release()
			d.active = nil
		}()

		next, stop := iter.Pull(seq)
		defer stop()

		for {
			item, ok := handle.Step(next)
			if !ok {
				fmt.Fprintln(d.Out, "No more submatches.")
				return
			}

			fmt.Fprintln(d.Out, FormatView(item))

			if !yield(item) {
				return
			}

			cont, err := d.Prompt.Confirm("Continue debugging the next submatch?", true)
			if err == nil && cont {
				continue
			}

			printRest, err := d.Prompt.Confirm("Print the remaining submatches?", false)
			if err != nil || !printRest {
				// Drain silently — the sequence must still be exhausted so
				// no pending items are dropped, but nothing more is printed.
				for {
					_, ok := next()
					if !ok {
						return
					}
				}
			}

			for {
				rest, ok := next()
				if !ok {
					return
				}

				fmt.Fprintln(d.Out, FormatView(rest))

				if !yield(rest) {
					return
				}
			}
		}
	}
}

// FormatView renders a SubmatchView as a key/value dump — scalar and
// string fields only, list-valued fields skipped, matching spec.md §9's
// "small view interface... list-valued fields are explicitly skipped."
func FormatView(v magic.SubmatchView) string {
	out := v.Name() + " {"

	first := true

	for _, f := range v.Fields() {
		if f.IsList {
			continue
		}

		if !first {
			out += ", "
		}

		first = false

		switch val := f.Value.(type) {
		case string:
			out += fmt.Sprintf("%s: %q", f.Key, val)
		default:
			out += fmt.Sprintf("%s: %v", f.Key, val)
		}
	}

	return out + fmt.Sprintf("} @%d", v.Offset())
}
