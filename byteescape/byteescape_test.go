package byteescape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polyfile/pfdbg/byteescape"
)

func TestEscape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{name: "printable", in: []byte("hello"), want: "hello"},
		{name: "newline", in: []byte("a\nb"), want: `a\nb`},
		{name: "tab", in: []byte("a\tb"), want: `a\tb`},
		{name: "carriage return", in: []byte("a\rb"), want: `a\rb`},
		{name: "nul", in: []byte{'a', 0, 'b'}, want: `a\0b`},
		{name: "backslash", in: []byte(`a\b`), want: `a\\b`},
		{name: "high byte", in: []byte{0xff}, want: `\xff`},
		{name: "empty", in: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, byteescape.Escape(tt.in))
		})
	}
}

func TestWidthMonotonic(t *testing.T) {
	t.Parallel()

	shorter := byteescape.Width([]byte("ab"))
	longer := byteescape.Width([]byte{0xff, 0xff})

	assert.GreaterOrEqual(t, longer, shorter)
}
