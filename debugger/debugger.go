// Package debugger ties together instrumentation, breakpoints, the step
// controller, the context snapshot, and the REPL into the single scoped
// resource hosts enable around a run of the reference magic engine.
package debugger

import (
	"bufio"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/polyfile/pfdbg/breakpoint"
	"github.com/polyfile/pfdbg/history"
	"github.com/polyfile/pfdbg/magic"
	"github.com/polyfile/pfdbg/snapshot"
	"github.com/polyfile/pfdbg/step"
	"github.com/polyfile/pfdbg/submatch"
	"github.com/polyfile/pfdbg/variable"
)

// Debugger is the process-wide scoped resource described in spec.md §6:
// entering it increments a re-entry counter, enabling instrumentation on
// the first entry and disabling (restoring the host engine untouched) on
// the last exit.
type Debugger struct {
	engine *magic.Engine
	logger *zap.Logger

	in     *bufio.Reader
	out    io.Writer
	source string

	breakpoints []breakpoint.Breakpoint
	step        *step.Controller
	snap        snapshot.Snapshot

	variables      *variable.Table
	breakOnParsing *variable.Variable[bool]

	history *history.History

	submatchDriver *submatch.Driver

	entries     int
	instrumented bool
}

// Options configures a new Debugger.
type Options struct {
	In             io.Reader
	Out            io.Writer
	Logger         *zap.Logger
	HistoryPath    string
	BreakOnParsing bool
	Breakpoints    []string
	// Source names the byte buffer being debugged (e.g. the path it was
	// read from), printed by the Submatch Debug Driver alongside the
	// current stream offset. Defaults to "<buffer>" when empty.
	Source string
}

// New builds a Debugger over engine. Malformed breakpoint spec strings in
// opts.Breakpoints are logged and skipped rather than rejected outright —
// config-seeded breakpoints are a convenience, not a hard requirement.
func New(engine *magic.Engine, opts Options) *Debugger {
	if opts.In == nil {
		opts.In = os.Stdin
	}

	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if opts.HistoryPath == "" {
		if p, err := history.DefaultPath(); err == nil {
			opts.HistoryPath = p
		}
	}

	d := &Debugger{
		engine:  engine,
		logger:  opts.Logger,
		in:      bufio.NewReader(opts.In),
		out:     opts.Out,
		source:  opts.Source,
		step:    step.NewController(),
		history: history.New(opts.HistoryPath),
	}

	// Start single-stepping so the REPL opens at the first test evaluation.
	d.step.Step()

	d.variables = variable.NewTable()
	d.breakOnParsing = variable.NewBool(
		"break_on_parsing",
		"Hand off to an external debugger when a submatch parser is about to run.",
		opts.BreakOnParsing,
		d.onBreakOnParsingChange,
	)
	d.variables.Register(d.breakOnParsing)

	d.submatchDriver = &submatch.Driver{
		Out:         d.out,
		Prompt:      d,
		NewDebugger: newNoopDebugger,
	}

	for _, spec := range opts.Breakpoints {
		if bp, ok := breakpoint.Parse(spec); ok {
			d.breakpoints = append(d.breakpoints, bp)
		} else {
			d.logger.Warn("ignoring malformed configured breakpoint", zap.String("spec", spec))
		}
	}

	return d
}

// Enter begins a scoped use of the Debugger, enabling instrumentation on
// the first entry.
func (d *Debugger) Enter() {
	d.entries++

	if d.entries == 1 {
		d.Enable()
	}
}

// Exit ends a scoped use, disabling instrumentation once the last entry
// exits.
func (d *Debugger) Exit() {
	d.entries--

	if d.entries <= 0 {
		d.entries = 0
		d.Disable()
	}
}

// Enabled reports whether instrumentation is currently installed.
func (d *Debugger) Enabled() bool { return d.instrumented }

// Enable installs the test interceptor (and, if break_on_parsing is set,
// the parse interceptor) and loads command history. It is idempotent.
func (d *Debugger) Enable() {
	if d.instrumented {
		return
	}

	d.engine.SetInterceptor(d.debugTest)

	if d.breakOnParsing.Value() {
		d.engine.SetParseInterceptor(d.debugParse)
	}

	if err := d.history.Load(); err != nil {
		d.logger.Warn("failed to load history file", zap.Error(err))
	}

	d.instrumented = true

	d.logger.Debug("debugger enabled", zap.Bool("break_on_parsing", d.breakOnParsing.Value()))
}

// Disable removes every installed hook, restoring the host engine's
// dispatch to exactly its pre-enable state, and persists this session's
// new history entries. It is idempotent and safe to call from an at-exit
// hook.
func (d *Debugger) Disable() {
	if !d.instrumented {
		return
	}

	d.engine.ClearInterceptor()
	d.engine.ClearParseInterceptor()

	if err := d.history.Save(); err != nil {
		d.logger.Warn("failed to persist history", zap.Error(err))
	}

	d.instrumented = false

	d.logger.Debug("debugger disabled")
}

// onBreakOnParsingChange re-instruments atomically when the variable
// changes while the debugger is enabled, per spec.md §4.2.
func (d *Debugger) onBreakOnParsingChange(_, newValue bool) {
	if !d.instrumented {
		return
	}

	d.engine.ClearParseInterceptor()

	if newValue {
		d.engine.SetParseInterceptor(d.debugParse)
	}

	d.logger.Debug("re-instrumented parsers", zap.Bool("break_on_parsing", newValue))
}

// debugTest is the TestInterceptor installed on the engine. It implements
// spec.md §4.2's test hook contract.
func (d *Debugger) debugTest(test magic.Test, data []byte, absoluteOffset int, parentMatch magic.Result, original func() (magic.Result, error)) (magic.Result, error) {
	result, err := original()
	if err != nil {
		return result, err
	}

	if d.snap.ReplTest != nil && d.snap.ReplTest == test {
		return result, nil
	}

	d.snap.Data = data
	d.snap.LastTest = test
	d.snap.LastOffset = absoluteOffset
	d.snap.LastParentMatch = parentMatch
	d.snap.LastResult = result

	if d.shouldBreak() {
		d.repl()
	}

	return result, nil
}

// shouldBreak combines the Step Controller's own state with the
// breakpoint list, per spec.md §4.3: the breakpoint check runs even in
// Running mode.
func (d *Debugger) shouldBreak() bool {
	if d.step.ShouldBreak(magic.IsMatched(d.snap.LastResult)) {
		return true
	}

	ctx := breakpoint.Context{
		Test:           d.snap.LastTest,
		Data:           d.snap.Data,
		AbsoluteOffset: d.snap.LastOffset,
		ParentMatch:    d.snap.LastParentMatch,
		Result:         d.snap.LastResult,
	}

	for _, bp := range d.breakpoints {
		if bp.ShouldBreak(ctx) {
			return true
		}
	}

	return false
}
