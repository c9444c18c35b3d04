package magic_test

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyfile/pfdbg/magic"
)

func TestEngineInterceptorObservesEvaluation(t *testing.T) {
	t.Parallel()

	roots, err := magic.ParseRules("test.magic", []byte("0\tstring\tabc\tmarker\n"))
	require.NoError(t, err)

	engine := magic.NewEngine(roots)

	var observed []magic.Test

	engine.SetInterceptor(func(test magic.Test, data []byte, absoluteOffset int, parentMatch magic.Result, original func() (magic.Result, error)) (magic.Result, error) {
		observed = append(observed, test)
		return original()
	})

	assert.True(t, engine.Instrumented())

	_, _, err = engine.Run([]byte("abcdef"))
	require.NoError(t, err)
	assert.Len(t, observed, 1)

	engine.ClearInterceptor()
	assert.False(t, engine.Instrumented())
}

func TestZipParserYieldsEntries(t *testing.T) {
	t.Parallel()

	data := buildMiniZip(t, "hello.txt")

	parser := magic.ZipParser{}
	engine := magic.NewEngine(nil)

	var names []string

	for entry := range engine.RunParser(parser, data, nil) {
		for _, f := range entry.Fields() {
			if f.Key == "filename" {
				names = append(names, f.Value.(string))
			}
		}
	}

	assert.Equal(t, []string{"hello.txt"}, names)
}

func TestParseInterceptorObservesSequence(t *testing.T) {
	t.Parallel()

	data := buildMiniZip(t, "a.txt", "b.txt")

	parser := magic.ZipParser{}
	engine := magic.NewEngine(nil)

	var observedParser string

	engine.SetParseInterceptor(func(p magic.Parser, match magic.Result, original func() iter.Seq[magic.SubmatchView]) iter.Seq[magic.SubmatchView] {
		observedParser = p.Name()
		return original()
	})

	assert.True(t, engine.ParseInstrumented())

	count := 0

	for range engine.RunParser(parser, data, nil) {
		count++
		break
	}

	assert.Equal(t, 1, count)
	assert.Equal(t, "zip", observedParser)

	engine.ClearParseInterceptor()
	assert.False(t, engine.ParseInstrumented())
}

// buildMiniZip constructs the minimal local-file-header-only byte sequence
// ZipParser understands: no compression, zero-length bodies.
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
