package magic

import "iter"

// TestInterceptor wraps a single Test evaluation. It is called in place of
// the test's own logic; calling original invokes the real evaluation. This
// is the dispatch-table replacement for the host engine's auto-registering
// subclass hooks — the debugger installs one to observe (and suspend on)
// every test evaluated through an Engine.
type TestInterceptor func(test Test, data []byte, absoluteOffset int, parentMatch Result, original func() (Result, error)) (Result, error)

// ParseInterceptor wraps a single format Parser's submatch sequence. It is
// called in place of the parser's own Parse; calling original invokes the
// real sequence. Interceptors observe (and may re-drive) the sequence one
// submatch at a time rather than materializing it.
type ParseInterceptor func(parser Parser, match Result, original func() iter.Seq[SubmatchView]) iter.Seq[SubmatchView]

// Parser produces a lazy sequence of structured submatches for a format
// that a Rule matched (e.g. the central-directory entries of a zip file).
// It is the concrete analogue of spec.md §4.6's "format parser".
type Parser interface {
	Name() string
	Parse(data []byte, match Result) iter.Seq[SubmatchView]
}

// Engine is the registry of root tests and format parsers that a debugger
// instruments. It owns the single installed TestInterceptor/
// ParseInterceptor — spec.md §9's "replace monkeypatching with a dispatch
// table": instrumenting the engine means setting these two fields rather
// than rebinding methods on every Test/Parser instance.
type Engine struct {
	roots   []*Rule
	parsers map[string]Parser // keyed by MIME type

	testInterceptor  TestInterceptor
	parseInterceptor ParseInterceptor
}

// NewEngine returns an Engine seeded with roots and no registered parsers.
func NewEngine(roots []*Rule) *Engine {
	e := &Engine{
		roots:   roots,
		parsers: make(map[string]Parser),
	}

	for _, r := range roots {
		bindEngine(r, e)
	}

	return e
}

func bindEngine(r *Rule, e *Engine) {
	r.engine = e
	for _, c := range r.children {
		if cr, ok := c.(*Rule); ok {
			bindEngine(cr, e)
		}
	}
}

// Roots returns the engine's top-level tests.
func (e *Engine) Roots() []Test {
	tests := make([]Test, len(e.roots))
	for i, r := range e.roots {
		tests[i] = r
	}

	return tests
}

// RegisterParser associates a format Parser with the MIME type it handles.
func (e *Engine) RegisterParser(mime string, p Parser) {
	e.parsers[mime] = p
}

// ParserFor returns the registered Parser for a MIME type, if any.
func (e *Engine) ParserFor(mime string) (Parser, bool) {
	p, ok := e.parsers[mime]
	return p, ok
}

// SetInterceptor installs fn as the sole observer of every Test evaluation
// run through this engine, replacing any interceptor already installed.
func (e *Engine) SetInterceptor(fn TestInterceptor) {
	e.testInterceptor = fn
}

// ClearInterceptor removes the installed TestInterceptor, if any.
func (e *Engine) ClearInterceptor() {
	e.testInterceptor = nil
}

// Instrumented reports whether a TestInterceptor is currently installed.
func (e *Engine) Instrumented() bool {
	return e.testInterceptor != nil
}

// SetParseInterceptor installs fn as the sole observer of every Parser
// sequence run through RunParser.
func (e *Engine) SetParseInterceptor(fn ParseInterceptor) {
	e.parseInterceptor = fn
}

// ClearParseInterceptor removes the installed ParseInterceptor, if any.
func (e *Engine) ClearParseInterceptor() {
	e.parseInterceptor = nil
}

// ParseInstrumented reports whether a ParseInterceptor is currently
// installed.
func (e *Engine) ParseInstrumented() bool {
	return e.parseInterceptor != nil
}

// RunParser runs a registered Parser's submatch sequence, routing it
// through the installed ParseInterceptor if any is set. Callers pull
// results one at a time via range-over-func, so a debugger's interceptor
// can suspend between submatches without buffering the whole sequence.
func (e *Engine) RunParser(p Parser, data []byte, match Result) iter.Seq[SubmatchView] {
	original := func() iter.Seq[SubmatchView] { return p.Parse(data, match) }

	if e.parseInterceptor != nil {
		return e.parseInterceptor(p, match, original)
	}

	return original()
}

// Run evaluates every root test against data in order, stopping at (and
// returning) the first match. A nil result means no root test matched. On
// a match, Run looks up a registered Parser for the matched test's MIME
// type (walking up to the nearest ancestor that advertises one) and drives
// its submatch sequence through RunParser, so a host's ParseInterceptor
// (the Submatch Debug Driver's break_on_parsing hook) actually observes
// format parsing rather than only the test evaluation tree.
func (e *Engine) Run(data []byte) (Test, Result, error) {
	for _, root := range e.roots {
		deepest, result, err := e.evalTree(root, data, 0, nil)
		if err != nil {
			return nil, nil, err
		}

		if IsMatched(result) {
			e.runMatchedParser(deepest, data, result)
			return root, result, nil
		}
	}

	return nil, nil, nil
}

// runMatchedParser looks up a Parser for matched's MIME (or the nearest
// ancestor's) and drains its submatch sequence, if one is registered. The
// entries themselves aren't needed here — draining is what routes the
// sequence through the installed ParseInterceptor.
func (e *Engine) runMatchedParser(matched Test, data []byte, result Result) {
	for t := matched; t != nil; t = t.Parent() {
		mime, ok := t.MIME()
		if !ok {
			continue
		}

		parser, ok := e.ParserFor(mime)
		if !ok {
			return
		}

		for range e.RunParser(parser, data, result) {
		}

		return
	}
}

// evalTree evaluates test, and on success descends into its children using
// its own result as their parentMatch, returning the deepest matched Test
// and Result along the first successful path (pre-order, first match wins
// per sibling).
func (e *Engine) evalTree(test *Rule, data []byte, absoluteOffset int, parentMatch Result) (Test, Result, error) {
	offset := absoluteOffset

	if !test.Offset().IsAbsolute() {
		resolved, err := test.Offset().ToAbsolute(data, parentMatch)
		if err != nil {
			return nil, nil, err
		}

		offset = resolved
	} else if absoluteOffset == 0 {
		resolved, err := test.Offset().ToAbsolute(data, parentMatch)
		if err != nil {
			return nil, nil, err
		}

		offset = resolved
	}

	result, err := test.Evaluate(data, offset, parentMatch)
	if err != nil {
		return nil, nil, err
	}

	if IsFailed(result) {
		return test, result, nil
	}

	deepestTest, deepestResult := Test(test), result

	for _, child := range test.children {
		cr, ok := child.(*Rule)
		if !ok {
			continue
		}

		childTest, childResult, err := e.evalTree(cr, data, offset, result)
		if err != nil {
			return nil, nil, err
		}

		if IsMatched(childResult) && deepestTest == Test(test) {
			deepestTest, deepestResult = childTest, childResult
		}
	}

	return deepestTest, deepestResult, nil
}
