package pfdbg

import "errors"

// Sentinel errors surfaced by the REPL. Every one of these is printed red
// and never fatal — the only propagation path that does leave the REPL is
// an unhandled panic inside a Test or Parser, which the instrumentation
// hook passes through untouched.
var (
	// ErrConfigNotFound is returned when no .pfdbg.yaml is found walking up
	// from the search directory.
	ErrConfigNotFound = errors.New("pfdbg: no .pfdbg.yaml found")

	// ErrUnknownCommand is the first-token REPL dispatch miss.
	ErrUnknownCommand = errors.New("pfdbg: unknown command")

	// ErrNeedsFirstTest is returned by commands (where, test, print) that
	// require a prior evaluation before they have anything to act on.
	ErrNeedsFirstTest = errors.New("pfdbg: no test has run yet")

	// ErrBadBreakpoint is returned when a breakpoint spec string matches no
	// known variant.
	ErrBadBreakpoint = errors.New("pfdbg: unrecognized breakpoint pattern")

	// ErrBadIndex is returned by delete when given a non-integer or
	// out-of-range breakpoint index.
	ErrBadIndex = errors.New("pfdbg: invalid breakpoint index")

	// ErrBadDSL is returned when the reference DSL parser rejects input
	// given to the REPL's test command.
	ErrBadDSL = errors.New("pfdbg: malformed rule text")

	// ErrUnknownVariable is returned by set/show for an unrecognized
	// variable name.
	ErrUnknownVariable = errors.New("pfdbg: unknown variable")

	// ErrBadVariableValue is returned by set when the given value does not
	// parse as the target variable's type.
	ErrBadVariableValue = errors.New("pfdbg: invalid value for variable")
)
