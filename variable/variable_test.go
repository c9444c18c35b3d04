package variable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyfile/pfdbg/variable"
)

func TestBoolVariableParseExplicitTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text    string
		want    bool
		wantErr bool
	}{
		{text: "true", want: true},
		{text: "True", want: true},
		{text: "yes", want: true},
		{text: "on", want: true},
		{text: "1", want: true},
		{text: "false", want: false},
		{text: "f", want: false},
		{text: "no", want: false},
		{text: "off", want: false},
		{text: "0", want: false},
		{text: "maybe", wantErr: true},
		{text: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			v := variable.NewBool("x", "desc", false, nil)
			err := v.VarSet(tt.text)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Value())
		})
	}
}

func TestBoolVariableDisplay(t *testing.T) {
	t.Parallel()

	v := variable.NewBool("break_on_parsing", "desc", true, nil)
	assert.Equal(t, "True", v.VarDisplay())

	require.NoError(t, v.VarSet("false"))
	assert.Equal(t, "False", v.VarDisplay())
}

func TestBoolVariableOnChangeFires(t *testing.T) {
	t.Parallel()

	var gotOld, gotNew bool
	var called bool

	v := variable.NewBool("x", "desc", false, func(old, new bool) {
		called = true
		gotOld = old
		gotNew = new
	})

	require.NoError(t, v.VarSet("true"))
	assert.True(t, called)
	assert.False(t, gotOld)
	assert.True(t, gotNew)
}

func TestTableLookupAlwaysInstance(t *testing.T) {
	t.Parallel()

	table := variable.NewTable()
	v := variable.NewBool("break_on_parsing", "desc", false, nil)
	table.Register(v)

	got, ok := table.Lookup("break_on_parsing")
	require.True(t, ok)
	assert.Equal(t, "break_on_parsing", got.VarName())

	_, ok = table.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestTableNamesPreservesOrder(t *testing.T) {
	t.Parallel()

	table := variable.NewTable()
	table.Register(variable.NewBool("b", "", false, nil))
	table.Register(variable.NewBool("a", "", false, nil))

	assert.Equal(t, []string{"b", "a"}, table.Names())
}
