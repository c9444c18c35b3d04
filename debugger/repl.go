package debugger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	pfdbg "github.com/polyfile/pfdbg"
	"github.com/polyfile/pfdbg/ansiwriter"
	"github.com/polyfile/pfdbg/breakpoint"
	"github.com/polyfile/pfdbg/magic"
	"github.com/polyfile/pfdbg/snapshot"
	"github.com/polyfile/pfdbg/where"
)

const replPrompt = "(polyfile) "

// repl runs the interactive loop until a control command (continue, step,
// next) requests it return, or the process exits via quit/EOF.
func (d *Debugger) repl() {
	if d.snap.LastTest != nil {
		d.renderWhere(where.Args{Test: d.snap.LastTest, ParentMatch: d.snap.LastParentMatch, Result: d.snap.LastResult, HasResult: true})
	}

	for {
		line, err := d.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.Disable()
				os.Exit(0)
			}

			return
		}

		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if d.snap.LastCommand == "" {
				continue
			}

			trimmed = d.snap.LastCommand
		}

		d.history.Record(trimmed)

		command, args := splitCommand(trimmed)

		exit, recognized := d.dispatch(command, args)

		if !recognized {
			d.printError(fmt.Errorf("%w: %q (try \"help\")", pfdbg.ErrUnknownCommand, command))
			d.snap.LastCommand = ""

			continue
		}

		d.snap.LastCommand = trimmed

		if exit {
			return
		}
	}
}

func splitCommand(line string) (command, args string) {
	fields := strings.SplitN(line, " ", 2)

	command = fields[0]
	if len(fields) == 2 {
		args = strings.TrimSpace(fields[1])
	}

	return command, args
}

// dispatch runs one REPL command. The returned bool reports whether the
// REPL loop should return to resume evaluation (continue/step/next/quit);
// recognized reports whether command matched anything at all.
func (d *Debugger) dispatch(command, args string) (exit bool, recognized bool) {
	// set/show are matched exactly, not by prefix — the one asymmetry
	// spec.md's distillation source carries over from the upstream REPL.
	switch command {
	case "set":
		d.cmdSet(args)
		return false, true
	case "show":
		d.cmdShow(args)
		return false, true
	}

	switch {
	case isPrefix(command, "help"):
		d.cmdHelp()
		return false, true
	case isPrefix(command, "continue") || isPrefix(command, "run"):
		d.step.Continue()
		return true, true
	case isPrefix(command, "step"):
		d.step.Step()
		return true, true
	case isPrefix(command, "next"):
		d.step.Next()
		return true, true
	case isPrefix(command, "where") || matchesInfoStack(command, args) || isPrefix(command, "backtrace"):
		d.cmdWhere()
		return false, true
	case isPrefix(command, "breakpoint"):
		d.cmdBreakpoint(args)
		return false, true
	case isPrefix(command, "delete"):
		d.cmdDelete(args)
		return false, true
	case isPrefix(command, "test"):
		d.cmdTest(args)
		return false, true
	case isPrefix(command, "print"):
		d.cmdPrint(args)
		return false, true
	case isPrefix(command, "quit"):
		d.Disable()
		os.Exit(0)

		return true, true
	}

	return false, false
}

// matchesInfoStack recognizes "info stack" as a two-token alias for where.
func matchesInfoStack(command, args string) bool {
	return isPrefix(command, "info") && strings.TrimSpace(args) == "stack"
}

// isPrefix reports whether command is a non-empty prefix of canonical.
func isPrefix(command, canonical string) bool {
	return command != "" && strings.HasPrefix(canonical, command)
}

func (d *Debugger) readLine() (string, error) {
	prompt := replPrompt

	if f, ok := d.out.(*os.File); ok {
		w := ansiwriter.New(f)
		prompt = w.FormatPrompt(replPrompt, ansiwriter.Style{Bold: true})
	}

	fmt.Fprint(d.out, prompt)

	return d.in.ReadString('\n')
}

func (d *Debugger) printError(err error) {
	w := ansiwriter.New(d.out)
	fmt.Fprintln(d.out, w.FormatLine(err.Error(), ansiwriter.Style{Color: ansiwriter.Red}))
}

func (d *Debugger) cmdHelp() {
	lines := []string{
		"help              -- this listing",
		"continue, run     -- resume execution",
		"step              -- break at the next test evaluation",
		"next              -- break at the next test that matches",
		"where, info stack, backtrace -- show the current test chain",
		"breakpoint [spec] -- list, or set, a breakpoint",
		"delete N          -- remove breakpoint N",
		"test DSL          -- evaluate an ad-hoc test at the current cursor",
		"print OFFSET      -- resolve and display a DSL offset",
		"set VAR VALUE     -- assign a variable",
		"show [VAR]        -- display variable(s)",
		"quit              -- terminate",
	}

	for _, l := range lines {
		fmt.Fprintln(d.out, l)
	}
}

func (d *Debugger) cmdWhere() {
	if d.snap.LastTest == nil {
		d.printError(pfdbg.ErrNeedsFirstTest)
		return
	}

	d.renderWhere(where.Args{
		Test:        d.snap.LastTest,
		ParentMatch: d.snap.LastParentMatch,
		Result:      d.snap.LastResult,
		HasResult:   true,
	})
}

func (d *Debugger) renderWhere(args where.Args) {
	w := ansiwriter.New(d.out)
	where.Render(d.out, w, d.breakpoints, d.snap.Data, args)
}

func (d *Debugger) cmdBreakpoint(args string) {
	if args == "" {
		if len(d.breakpoints) == 0 {
			fmt.Fprintln(d.out, "No breakpoints set. Usage: breakpoint mime:PATTERN | ext:EXT | FILE:LINE | !SPEC | =SPEC")
			return
		}

		for i, bp := range d.breakpoints {
			fmt.Fprintf(d.out, "%d: %s\n", i, bp.Describe())
		}

		return
	}

	bp, ok := breakpoint.Parse(args)
	if !ok {
		d.printError(fmt.Errorf("%w: %q", pfdbg.ErrBadBreakpoint, args))
		return
	}

	d.breakpoints = append(d.breakpoints, bp)
	fmt.Fprintf(d.out, "Breakpoint %d: %s\n", len(d.breakpoints)-1, bp.Describe())
}

func (d *Debugger) cmdDelete(args string) {
	idx, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || idx < 0 || idx >= len(d.breakpoints) {
		d.printError(fmt.Errorf("%w: %q", pfdbg.ErrBadIndex, args))
		return
	}

	d.breakpoints = append(d.breakpoints[:idx], d.breakpoints[idx+1:]...)
}

func (d *Debugger) cmdTest(args string) {
	if d.snap.LastTest == nil {
		d.printError(pfdbg.ErrNeedsFirstTest)
		return
	}

	rule, err := magic.ParseTest(args, "STDIN", 1, d.snap.LastTest)
	if err != nil {
		d.printError(fmt.Errorf("%w: %w", pfdbg.ErrBadDSL, err))
		return
	}

	guard := snapshot.Save(&d.snap)
	defer guard.Release()

	d.snap.ReplTest = rule
	defer magic.Detach(rule)

	if rule.Parent() == nil {
		d.snap.LastResult = nil
		d.snap.LastOffset = 0
	}

	offset := d.snap.LastOffset

	if !rule.Offset().IsAbsolute() {
		resolved, err := rule.Offset().ToAbsolute(d.snap.Data, d.snap.LastParentMatch)
		if err == nil {
			offset = resolved
		}
	}

	result, evalErr := rule.Evaluate(d.snap.Data, offset, d.snap.LastParentMatch)

	if evalErr != nil {
		d.printError(evalErr)
	} else {
		d.renderWhere(where.Args{
			Test:           rule,
			AbsoluteOffset: offset,
			HasOffset:      true,
			ParentMatch:    d.snap.LastParentMatch,
			Result:         result,
			HasResult:      true,
		})
	}
}

func (d *Debugger) cmdPrint(args string) {
	if d.snap.LastTest == nil {
		d.printError(pfdbg.ErrNeedsFirstTest)
		return
	}

	offset, err := magic.ParseOffset(args)
	if err != nil {
		d.printError(fmt.Errorf("%w: %w", pfdbg.ErrBadDSL, err))
		return
	}

	resolved, err := offset.ToAbsolute(d.snap.Data, d.snap.LastResult)
	if err != nil {
		var invalid *magic.InvalidOffsetError
		if errors.As(err, &invalid) {
			d.printError(fmt.Errorf("invalid offset: %s", invalid.Reason))
		} else {
			d.printError(err)
		}

		return
	}

	fmt.Fprintln(d.out, resolved)

	w := ansiwriter.New(d.out)
	where.PrintContext(d.out, w, d.snap.Data, resolved, 32, 1)
}

func (d *Debugger) cmdSet(args string) {
	fields := strings.Fields(args)

	// Accept a literal '=' between name and value: "set VAR = VALUE".
	if len(fields) == 3 && fields[1] == "=" {
		fields = []string{fields[0], fields[2]}
	}

	if len(fields) != 2 {
		d.printVariableUsage()
		return
	}

	v, ok := d.variables.Lookup(fields[0])
	if !ok {
		d.printError(fmt.Errorf("%w: %q", pfdbg.ErrUnknownVariable, fields[0]))
		d.printVariableUsage()

		return
	}

	if err := v.VarSet(fields[1]); err != nil {
		d.printError(fmt.Errorf("%w: %w", pfdbg.ErrBadVariableValue, err))
		d.printVariableUsage()
	}
}

func (d *Debugger) cmdShow(args string) {
	args = strings.TrimSpace(args)

	if args == "" {
		for _, name := range d.variables.Names() {
			v, _ := d.variables.Lookup(name)
			fmt.Fprintf(d.out, "%s = %s -- %s\n", v.VarName(), v.VarDisplay(), v.VarDescription())
		}

		return
	}

	v, ok := d.variables.Lookup(args)
	if !ok {
		d.printError(fmt.Errorf("%w: %q", pfdbg.ErrUnknownVariable, args))
		return
	}

	fmt.Fprintln(d.out, v.VarDisplay())
}

func (d *Debugger) printVariableUsage() {
	for _, name := range d.variables.Names() {
		v, _ := d.variables.Lookup(name)
		fmt.Fprintf(d.out, "  %s (%s) -- %s\n", v.VarName(), v.VarPossibilitiesText(), v.VarDescription())
	}
}
