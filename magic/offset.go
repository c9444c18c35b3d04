package magic

import (
	"fmt"
	"strconv"
	"strings"
)

// AbsoluteOffset is a literal byte position requiring no data or parent
// match to resolve.
type AbsoluteOffset struct {
	Value int
}

func (o *AbsoluteOffset) IsAbsolute() bool { return true }

func (o *AbsoluteOffset) ToAbsolute(_ []byte, _ Result) (int, error) {
	return o.Value, nil
}

func (o *AbsoluteOffset) String() string {
	return strconv.Itoa(o.Value)
}

// indirectWidth is the size, in bytes, of the value read at an indirect
// offset's base location.
type indirectWidth int

const (
	widthByte  indirectWidth = 1
	widthShort indirectWidth = 2
	widthLong  indirectWidth = 4
)

func (w indirectWidth) suffix() string {
	switch w {
	case widthByte:
		return "b"
	case widthShort:
		return "s"
	case widthLong:
		return "l"
	default:
		return "?"
	}
}

// IndirectOffset reads a little-endian integer from data at Base's resolved
// position, then adds Adjustment. If SelfRelative, the offset at which the
// value was read is also added — the common libmagic "&" convention for a
// pointer stored relative to itself.
type IndirectOffset struct {
	Base         Offset
	Width        indirectWidth
	Adjustment   int
	SelfRelative bool
}

func (o *IndirectOffset) IsAbsolute() bool { return false }

func (o *IndirectOffset) String() string {
	var b strings.Builder

	b.WriteByte('(')

	if o.SelfRelative {
		b.WriteByte('&')
	}

	b.WriteString(o.Base.String())
	b.WriteByte('.')
	b.WriteString(o.Width.suffix())

	if o.Adjustment >= 0 {
		fmt.Fprintf(&b, "+0x%x", o.Adjustment)
	} else {
		fmt.Fprintf(&b, "-0x%x", -o.Adjustment)
	}

	b.WriteByte(')')

	return b.String()
}

func (o *IndirectOffset) ToAbsolute(data []byte, parentMatch Result) (int, error) {
	base, err := o.Base.ToAbsolute(data, parentMatch)
	if err != nil {
		return 0, err
	}

	if base < 0 || base+int(o.Width) > len(data) {
		return 0, &InvalidOffsetError{Reason: fmt.Sprintf("indirect read at %d.%s out of range (%d bytes available)", base, o.Width.suffix(), len(data))}
	}

	var value int

	for i := range int(o.Width) {
		value |= int(data[base+i]) << (8 * i)
	}

	result := value + o.Adjustment
	if o.SelfRelative {
		result += base
	}

	return result, nil
}

// ParseOffset parses a DSL offset expression: a bare decimal/hex integer,
// or a parenthesized indirect read such as "(&0x7c.l+0x26)".
func ParseOffset(text string) (Offset, error) {
	p := &offsetParser{input: strings.TrimSpace(text)}

	off, err := p.parseOffset()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if p.pos != len(p.input) {
		return nil, fmt.Errorf("%w: unexpected trailing text %q", errBadOffsetSyntax, p.input[p.pos:])
	}

	return off, nil
}

var errBadOffsetSyntax = fmt.Errorf("magic: malformed offset expression")

type offsetParser struct {
	input string
	pos   int
}

func (p *offsetParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *offsetParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}

	return p.input[p.pos]
}

func (p *offsetParser) parseOffset() (Offset, error) {
	p.skipSpace()

	if p.peek() == '(' {
		return p.parseIndirect()
	}

	return p.parseAbsolute()
}

func (p *offsetParser) parseAbsolute() (Offset, error) {
	p.skipSpace()
	start := p.pos

	if p.peek() == '+' || p.peek() == '-' {
		p.pos++
	}

	digitsStart := p.pos

	if strings.HasPrefix(p.input[p.pos:], "0x") || strings.HasPrefix(p.input[p.pos:], "0X") {
		p.pos += 2
		for p.pos < len(p.input) && isHexDigit(p.input[p.pos]) {
			p.pos++
		}
	} else {
		for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
			p.pos++
		}
	}

	if p.pos == digitsStart {
		return nil, fmt.Errorf("%w: expected a number at %q", errBadOffsetSyntax, p.input[start:])
	}

	value, err := strconv.ParseInt(p.input[start:p.pos], 0, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadOffsetSyntax, err)
	}

	return &AbsoluteOffset{Value: int(value)}, nil
}

func (p *offsetParser) parseIndirect() (Offset, error) {
	p.pos++ // consume '('
	p.skipSpace()

	selfRelative := false
	if p.peek() == '&' {
		selfRelative = true
		p.pos++
	}

	base, err := p.parseOffset()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if p.peek() != '.' {
		return nil, fmt.Errorf("%w: expected '.' after indirect base", errBadOffsetSyntax)
	}

	p.pos++

	width, err := p.parseWidth()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	adjustment := 0

	if p.peek() == '+' || p.peek() == '-' {
		sign := 1
		if p.peek() == '-' {
			sign = -1
		}

		p.pos++

		adjOff, err := p.parseAbsolute()
		if err != nil {
			return nil, err
		}

		abs, ok := adjOff.(*AbsoluteOffset)
		if !ok {
			return nil, fmt.Errorf("%w: adjustment must be a literal", errBadOffsetSyntax)
		}

		adjustment = sign * abs.Value
	}

	p.skipSpace()

	if p.peek() != ')' {
		return nil, fmt.Errorf("%w: expected ')'", errBadOffsetSyntax)
	}

	p.pos++

	return &IndirectOffset{Base: base, Width: width, Adjustment: adjustment, SelfRelative: selfRelative}, nil
}

func (p *offsetParser) parseWidth() (indirectWidth, error) {
	switch p.peek() {
	case 'b':
		p.pos++
		return widthByte, nil
	case 's':
		p.pos++
		return widthShort, nil
	case 'l':
		p.pos++
		return widthLong, nil
	default:
		return 0, fmt.Errorf("%w: unknown width %q (expected b, s, or l)", errBadOffsetSyntax, string(p.peek()))
	}
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
