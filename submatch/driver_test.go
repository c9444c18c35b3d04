package submatch_test

import (
	"bytes"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyfile/pfdbg/magic"
	"github.com/polyfile/pfdbg/submatch"
)

type fakeView struct {
	name   string
	offset int
}

func (v fakeView) Name() string   { return v.name }
func (v fakeView) Offset() int    { return v.offset }
func (v fakeView) Fields() []magic.Field {
	return []magic.Field{{Key: "name", Value: v.name}, {Key: "items", Value: nil, IsList: true}}
}

type queuePrompter struct {
	answers []bool
	i       int
}

func (q *queuePrompter) Confirm(_ string, defaultYes bool) (bool, error) {
	if q.i >= len(q.answers) {
		return defaultYes, nil
	}

	a := q.answers[q.i]
	q.i++

	return a, nil
}

type noopExternal struct{ released bool }

func (n *noopExternal) Step(next func() (magic.SubmatchView, bool)) (magic.SubmatchView, bool) {
	return next()
}

func (n *noopExternal) Release() { n.released = true }

func seqOf(views ...fakeView) iter.Seq[magic.SubmatchView] {
	return func(yield func(magic.SubmatchView) bool) {
		for _, v := range views {
			if !yield(v) {
				return
			}
		}
	}
}

func TestDriveDeclinedPassesThroughUntouched(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	d := &submatch.Driver{Out: &out, Prompt: &queuePrompter{answers: []bool{false}}, NewDebugger: func() submatch.ExternalDebugger { return &noopExternal{} }}

	seq := d.Drive("ZipParser", fakeView{name: "ZipEOCD"}, "archive.zip:0", seqOf(fakeView{name: "A"}, fakeView{name: "B"}))

	var collected []string
	for v := range seq {
		collected = append(collected, v.Name())
	}

	assert.Equal(t, []string{"A", "B"}, collected)
	assert.Contains(t, out.String(), "About to parse submatches for ZipParser")
	assert.Contains(t, out.String(), "ZipEOCD")
	assert.Contains(t, out.String(), "archive.zip:0")
}

func TestDriveAcceptedStepsEachItem(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	ext := &noopExternal{}
	d := &submatch.Driver{
		Out:    &out,
		Prompt: &queuePrompter{answers: []bool{true, true, true}},
		NewDebugger: func() submatch.ExternalDebugger { return ext },
	}

	seq := d.Drive("ZipParser", fakeView{name: "ZipEOCD"}, "archive.zip:0", seqOf(fakeView{name: "A"}, fakeView{name: "B"}))

	var collected []string
	for v := range seq {
		collected = append(collected, v.Name())
	}

	assert.Equal(t, []string{"A", "B"}, collected)
	assert.True(t, ext.released)
	assert.False(t, d.Active())
}

func TestDriveReentrantCallPassesThrough(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	d := &submatch.Driver{Out: &out, Prompt: &queuePrompter{answers: []bool{true}}, NewDebugger: func() submatch.ExternalDebugger { return &noopExternal{} }}

	outer := d.Drive("Outer", fakeView{name: "Outer"}, "outer.bin:0", seqOf(fakeView{name: "A"}))

	next, stop := iter.Pull(outer)
	defer stop()

	_, ok := next()
	require.True(t, ok)

	assert.True(t, d.Active())

	inner := d.Drive("Inner", fakeView{name: "Inner"}, "inner.bin:0", seqOf(fakeView{name: "X"}))

	var collected []string
	for v := range inner {
		collected = append(collected, v.Name())
	}

	assert.Equal(t, []string{"X"}, collected)
	assert.NotContains(t, out.String(), "Inner {")
}

func TestFormatViewSkipsListFields(t *testing.T) {
	t.Parallel()

	rendered := submatch.FormatView(fakeView{name: "ZipEOCD", offset: 12})

	assert.Contains(t, rendered, "ZipEOCD")
	assert.Contains(t, rendered, `name: "ZipEOCD"`)
	assert.NotContains(t, rendered, "items")
	assert.Contains(t, rendered, "@12")
}
