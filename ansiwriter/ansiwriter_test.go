package ansiwriter_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polyfile/pfdbg/ansiwriter"
)

func TestNewOnNonFileIsNeverANSI(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := ansiwriter.New(&buf)

	assert.False(t, w.UseANSI())
}

func TestFormatPassthroughWhenANSIDisabled(t *testing.T) {
	t.Parallel()

	got := ansiwriter.Format("hello", ansiwriter.Style{Color: ansiwriter.Red, Bold: true}, false, false)
	assert.Equal(t, "hello", got)
}

func TestFormatNoStyleIsPassthrough(t *testing.T) {
	t.Parallel()

	got := ansiwriter.Format("hello", ansiwriter.Style{}, true, false)
	assert.Equal(t, "hello", got)
}

func TestFormatWithANSIWrapsEscapes(t *testing.T) {
	t.Parallel()

	got := ansiwriter.Format("hello", ansiwriter.Style{Bold: true}, true, false)

	assert.Contains(t, got, "hello")
	assert.NotEqual(t, "hello", got)
}

func TestFormatReadlineMarkersBracketEscapesOnly(t *testing.T) {
	t.Parallel()

	got := ansiwriter.Format("prompt", ansiwriter.Style{Bold: true}, true, true)

	assert.Contains(t, got, "\001")
	assert.Contains(t, got, "\002")
	assert.Contains(t, got, "prompt")
}

func TestWriterFormatPromptBracketsEscapesOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := ansiwriter.NewForced(&buf, true)

	got := w.FormatPrompt("(polyfile) ", ansiwriter.Style{Bold: true})

	assert.Contains(t, got, "\001")
	assert.Contains(t, got, "\002")
	assert.Contains(t, got, "(polyfile) ")
}

func TestWriterWriteLineAppendsNewline(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := ansiwriter.NewForced(&buf, false)

	w.WriteLine("hello", ansiwriter.Style{})

	assert.Equal(t, "hello\n", buf.String())
}

func TestWriterWriteNoTrailingNewline(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := ansiwriter.NewForced(&buf, false)

	w.Write("hello", ansiwriter.Style{})

	assert.Equal(t, "hello", buf.String())
}

func TestWriterFormatLineNoWrite(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := ansiwriter.NewForced(&buf, false)

	line := w.FormatLine("hello", ansiwriter.Style{Bold: true})

	assert.Equal(t, "hello", line)
	assert.Empty(t, buf.String())
}
