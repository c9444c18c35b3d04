package debugger

import (
	"fmt"
	"iter"

	"github.com/polyfile/pfdbg/magic"
	"github.com/polyfile/pfdbg/submatch"
)

// debugParse is the ParseInterceptor installed on the engine when
// break_on_parsing is set. It delegates to the Submatch Debug Driver,
// which itself detects re-entrancy, after building the matched-structure
// dump and source location spec.md §4.6 step 1 requires printing before
// the driver's prompt.
func (d *Debugger) debugParse(parser magic.Parser, match magic.Result, original func() iter.Seq[magic.SubmatchView]) iter.Seq[magic.SubmatchView] {
	view := matchView{test: d.snap.LastTest, result: match, offset: d.snap.LastOffset}
	location := fmt.Sprintf("%s:%d", d.sourceName(), d.snap.LastOffset)

	return d.submatchDriver.Drive(parser.Name(), view, location, original())
}

// sourceName is the file_stream.name analogue spec.md §4.6 step 1 prints
// alongside the stream offset; "<buffer>" when the debugger was built
// against an in-memory buffer with no named source.
func (d *Debugger) sourceName() string {
	if d.source == "" {
		return "<buffer>"
	}

	return d.source
}

// matchView adapts the matched container's Test and Result to
// magic.SubmatchView so the Submatch Debug Driver can print it through the
// same key/value-dump formatting (FormatView) used for every submatch.
type matchView struct {
	test   magic.Test
	result magic.Result
	offset int
}

func (v matchView) Name() string {
	if v.test == nil {
		return "match"
	}

	return v.test.Message()
}

func (v matchView) Offset() int { return v.offset }

func (v matchView) Fields() []magic.Field {
	fields := []magic.Field{{Key: "offset", Value: v.offset}}

	if v.test != nil {
		if mime, ok := v.test.MIME(); ok {
			fields = append(fields, magic.Field{Key: "mime", Value: mime})
		}
	}

	if v.result != nil {
		if length, ok := v.result.Length(); ok {
			fields = append(fields, magic.Field{Key: "length", Value: length})
		}

		fields = append(fields, magic.Field{Key: "matched", Value: v.result.Truthy()})
	}

	return fields
}

// noopDebugger is the default ExternalDebugger: it steps the underlying
// sequence directly rather than handing off to a real source-level
// stepper, since that integration is an external collaborator per
// spec.md §1 ("hand off to a secondary source-level debugger" is
// explicitly out of scope for the core). Hosts that embed a real stepper
// substitute their own submatch.ExternalDebugger via
// Debugger.SetExternalDebuggerFactory.
type noopDebugger struct{}

func newNoopDebugger() submatch.ExternalDebugger { return &noopDebugger{} }

func (*noopDebugger) Step(next func() (magic.SubmatchView, bool)) (magic.SubmatchView, bool) {
	return next()
}

func (*noopDebugger) Release() {}

// SetExternalDebuggerFactory overrides how the Submatch Debug Driver
// constructs an external debugger handle on acceptance of its "Debug
// using PDB-equivalent?" prompt.
func (d *Debugger) SetExternalDebuggerFactory(factory func() submatch.ExternalDebugger) {
	d.submatchDriver.NewDebugger = factory
}
