package debugger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/polyfile/pfdbg/debugger"
	"github.com/polyfile/pfdbg/magic"
)

const zipRule = "0\tstring\tPK\\x03\\x04\tZip archive data\n!:mime\tapplication/zip\n!:ext\tzip\n"

func newEngine(t *testing.T) *magic.Engine {
	t.Helper()

	roots, err := magic.ParseRules("rules.magic", []byte(zipRule))
	require.NoError(t, err)

	return magic.NewEngine(roots)
}

func TestEnterInstallsAndExitRemovesInterceptor(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	in := strings.NewReader("continue\n")
	var out bytes.Buffer

	dbg := debugger.New(engine, debugger.Options{In: in, Out: &out, Logger: zaptest.NewLogger(t)})

	assert.False(t, engine.Instrumented())

	dbg.Enter()
	assert.True(t, engine.Instrumented())
	assert.True(t, dbg.Enabled())

	dbg.Exit()
	assert.False(t, engine.Instrumented())
	assert.False(t, dbg.Enabled())
}

func TestEnterIsReferenceCounted(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	dbg := debugger.New(engine, debugger.Options{In: strings.NewReader(""), Out: &bytes.Buffer{}, Logger: zaptest.NewLogger(t)})

	dbg.Enter()
	dbg.Enter()
	dbg.Exit()

	assert.True(t, engine.Instrumented(), "should remain enabled while one entry is still open")

	dbg.Exit()
	assert.False(t, engine.Instrumented())
}

func TestRunStepsThroughReplUntilContinue(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	in := strings.NewReader("step\ncontinue\n")
	var out bytes.Buffer

	dbg := debugger.New(engine, debugger.Options{In: in, Out: &out, Logger: zaptest.NewLogger(t)})

	dbg.Enter()
	defer dbg.Exit()

	test, result, err := engine.Run([]byte("PK\x03\x04rest"))
	require.NoError(t, err)
	require.NotNil(t, test)
	assert.True(t, magic.IsMatched(result))
	assert.Contains(t, out.String(), "Zip archive data")
}

func TestConfirmLoopsOnUnrecognizedAnswer(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	in := strings.NewReader("bogus\nno\nbogus\nyes\n")
	var out bytes.Buffer

	dbg := debugger.New(engine, debugger.Options{In: in, Out: &out, Logger: zaptest.NewLogger(t)})

	ok, err := dbg.Confirm("Proceed?", false)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = dbg.Confirm("Proceed?", false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfirmDefaultOnEmptyLine(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	in := strings.NewReader("\n")
	var out bytes.Buffer

	dbg := debugger.New(engine, debugger.Options{In: in, Out: &out, Logger: zaptest.NewLogger(t)})

	ok, err := dbg.Confirm("Proceed?", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunDrivesRegisteredParserWhenBreakOnParsingSet(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	engine.RegisterParser("application/zip", magic.ZipParser{})

	in := strings.NewReader("n\ncontinue\n")
	var out bytes.Buffer

	dbg := debugger.New(engine, debugger.Options{
		In:             in,
		Out:            &out,
		Logger:         zaptest.NewLogger(t),
		BreakOnParsing: true,
		Source:         "sample.zip",
	})

	dbg.Enter()
	defer dbg.Exit()

	data := buildMiniZip(t, "hello.txt")

	test, result, err := engine.Run(data)
	require.NoError(t, err)
	require.NotNil(t, test)
	assert.True(t, magic.IsMatched(result))

	// A registered parser for the matched MIME must actually be driven
	// through RunParser in production, not just in magic's own tests.
	assert.Contains(t, out.String(), "About to parse submatches for zip")
	assert.Contains(t, out.String(), "sample.zip")
	assert.Contains(t, out.String(), "Zip archive data")
}

// buildMiniZip constructs the minimal local-file-header-only byte sequence
// magic.ZipParser understands: no compression, zero-length bodies.
func buildMiniZip(t *testing.T, names ...string) []byte {
	t.Helper()

	var out []byte

	for _, name := range names {
		header := make([]byte, 30)
		header[0], header[1], header[2], header[3] = 'P', 'K', 0x03, 0x04
		header[26] = byte(len(name))
		header[27] = byte(len(name) >> 8)

		out = append(out, header...)
		out = append(out, []byte(name)...)
	}

	return out
}

func TestMalformedConfiguredBreakpointIsSkippedNotFatal(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)

	dbg := debugger.New(engine, debugger.Options{
		In:          strings.NewReader(""),
		Out:         &bytes.Buffer{},
		Logger:      zaptest.NewLogger(t),
		Breakpoints: []string{"mime:application/zip", "garbage"},
	})

	require.NotNil(t, dbg)
}
