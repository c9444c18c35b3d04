package magic

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/expr-lang/expr"
)

// ruleHeader is the participle grammar for a rule line's fixed-column
// header: its offset expression, type keyword, and match value. The level
// markers (leading '>') and the free-text message that follows the value
// are column-split by the caller before this grammar ever sees the line.
type ruleHeader struct {
	OffsetText string `parser:"@Word"`
	TypeText   string `parser:"@Word"`
	ValueText  string `parser:"@Word"`
}

var headerParser = participle.MustBuild[ruleHeader](
	participle.Lexer(headerLexer),
	participle.Elide("Whitespace"),
)

// Rule is the reference Test implementation: one line of a magic rule
// file, holding its offset, type test, advertised MIME/extensions, and its
// position in the rule tree.
type Rule struct {
	level      int
	offset     Offset
	message    string
	mime       string
	hasMime    bool
	extensions []string
	comments   []Comment
	sourceInfo *SourceInfo
	parent     Test
	children   []Test

	typeName  string
	valueText string

	engine *Engine
}

func (r *Rule) Level() int                { return r.level }
func (r *Rule) Offset() Offset            { return r.offset }
func (r *Rule) Message() string           { return r.message }
func (r *Rule) Comments() []Comment       { return r.comments }
func (r *Rule) SourceInfo() *SourceInfo   { return r.sourceInfo }
func (r *Rule) Parent() Test              { return r.parent }
func (r *Rule) Children() []Test          { return r.children }
func (r *Rule) Extensions() []string      { return r.extensions }

func (r *Rule) MIME() (string, bool) { return r.mime, r.hasMime }

func (r *Rule) CanMatchMime() bool {
	if r.hasMime {
		return true
	}

	for _, c := range r.children {
		if c.CanMatchMime() {
			return true
		}
	}

	return false
}

func (r *Rule) MimeTypes() []string {
	var mimes []string
	if r.hasMime {
		mimes = append(mimes, r.mime)
	}

	for _, c := range r.children {
		mimes = append(mimes, c.MimeTypes()...)
	}

	return mimes
}

func (r *Rule) AllExtensions() []string {
	exts := append([]string(nil), r.extensions...)
	for _, c := range r.children {
		exts = append(exts, c.AllExtensions()...)
	}

	return exts
}

// Evaluate runs this rule's own type test against data at absoluteOffset.
// If an Engine interceptor is installed, the evaluation is routed through
// it so the debugger can observe and suspend on it.
func (r *Rule) Evaluate(data []byte, absoluteOffset int, parentMatch Result) (Result, error) {
	if r.engine != nil && r.engine.testInterceptor != nil {
		return r.engine.testInterceptor(r, data, absoluteOffset, parentMatch, func() (Result, error) {
			return r.evaluateSelf(data, absoluteOffset)
		})
	}

	return r.evaluateSelf(data, absoluteOffset)
}

func (r *Rule) evaluateSelf(data []byte, absoluteOffset int) (Result, error) {
	switch r.typeName {
	case "string":
		literal, err := decodeEscapes(r.valueText)
		if err != nil {
			return nil, err
		}

		if absoluteOffset < 0 || absoluteOffset+len(literal) > len(data) {
			return &Failure{Message: "out of bounds"}, nil
		}

		if bytes.Equal(data[absoluteOffset:absoluteOffset+len(literal)], literal) {
			return NewMatch(len(literal)), nil
		}

		return &Failure{Message: fmt.Sprintf("expected %q", r.valueText)}, nil
	case "byte", "short", "long":
		width := map[string]int{"byte": 1, "short": 2, "long": 4}[r.typeName]
		if absoluteOffset < 0 || absoluteOffset+width > len(data) {
			return &Failure{Message: "out of bounds"}, nil
		}

		var value int64
		for i := range width {
			value |= int64(data[absoluteOffset+i]) << (8 * i)
		}

		program, err := expr.Compile(r.valueText, expr.Env(map[string]any{"value": int64(0)}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("magic: bad comparison %q: %w", r.valueText, err)
		}

		out, err := expr.Run(program, map[string]any{"value": value})
		if err != nil {
			return nil, fmt.Errorf("magic: comparison error: %w", err)
		}

		if matched, _ := out.(bool); matched {
			return NewMatch(width), nil
		}

		return &Failure{Message: fmt.Sprintf("%d does not satisfy %q", value, r.valueText)}, nil
	default:
		return nil, fmt.Errorf("magic: unknown test type %q", r.typeName)
	}
}

// decodeEscapes turns a magic value literal such as `PK\x03\x04` into raw
// bytes, supporting \n \t \r \0 \\ and \xHH.
func decodeEscapes(text string) ([]byte, error) {
	var out []byte

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}

		if i+1 >= len(text) {
			return nil, fmt.Errorf("magic: dangling escape in %q", text)
		}

		switch text[i+1] {
		case 'n':
			out = append(out, '\n')
			i++
		case 't':
			out = append(out, '\t')
			i++
		case 'r':
			out = append(out, '\r')
			i++
		case '0':
			out = append(out, 0)
			i++
		case '\\':
			out = append(out, '\\')
			i++
		case 'x':
			if i+3 >= len(text) {
				return nil, fmt.Errorf("magic: truncated \\x escape in %q", text)
			}

			v, err := strconv.ParseUint(text[i+2:i+4], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("magic: bad \\x escape in %q: %w", text, err)
			}

			out = append(out, byte(v))
			i += 3
		default:
			return nil, fmt.Errorf("magic: unknown escape \\%c in %q", text[i+1], text)
		}
	}

	return out, nil
}

// ParseTest parses a single magic rule line as a new child of parent (or a
// root test if parent is nil), attributing it to the synthetic source
// location (path, line). This is the REPL `test` command's entry point —
// the one place §3 allows ephemeral mutation of the rule tree.
func ParseTest(line string, path string, lineNo int, parent Test) (*Rule, error) {
	_, offsetText, typeName, valueText, message, err := splitRuleLine(line)
	if err != nil {
		return nil, err
	}

	offset, err := ParseOffset(offsetText)
	if err != nil {
		return nil, err
	}

	level := 0
	if parent != nil {
		level = parent.Level() + 1
	}

	rule := &Rule{
		level:     level,
		offset:    offset,
		message:   message,
		typeName:  typeName,
		valueText: valueText,
		parent:    parent,
		sourceInfo: &SourceInfo{
			Path:         path,
			Line:         lineNo,
			OriginalLine: line,
		},
	}

	if parent != nil {
		if p, ok := parent.(*Rule); ok {
			p.children = append(p.children, rule)
			rule.engine = p.engine
		}
	}

	return rule, nil
}

// Detach removes a test from its parent's children — used to roll back an
// ephemeral `test` command evaluation.
func Detach(t Test) {
	parent, ok := t.Parent().(*Rule)
	if !ok {
		return
	}

	filtered := parent.children[:0]

	for _, c := range parent.children {
		if c != t {
			filtered = append(filtered, c)
		}
	}

	parent.children = filtered
}

// splitDirective reports whether trimmed is a directive line naming
// directive (e.g. "!:mime"), returning its value with surrounding
// whitespace trimmed. The separator between directive and value may be a
// space or a tab — magic rule files are conventionally tab-separated.
func splitDirective(trimmed, directive string) (name, value string, ok bool) {
	if !strings.HasPrefix(trimmed, directive) {
		return "", "", false
	}

	rest := trimmed[len(directive):]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", "", false
	}

	return directive, strings.TrimSpace(rest), true
}

// splitRuleLine separates a magic rule line into its level marker count,
// offset text, type keyword, value literal, and trailing message. The
// first three columns are whitespace-delimited words; the message is
// everything after the value, verbatim (it is free-text commentary, not a
// token stream).
func splitRuleLine(line string) (level int, offsetText, typeName, valueText, message string, err error) {
	trimmed := line

	for len(trimmed) > 0 && trimmed[0] == '>' {
		level++
		trimmed = trimmed[1:]
	}

	header, err := headerParser.ParseString("", trimmed)
	if err != nil {
		return 0, "", "", "", "", fmt.Errorf("magic: malformed rule line %q: %w", line, err)
	}

	rest := trimmed

	for _, word := range []string{header.OffsetText, header.TypeText, header.ValueText} {
		idx := strings.Index(rest, word)
		if idx < 0 {
			return 0, "", "", "", "", fmt.Errorf("magic: internal error splitting %q", line)
		}

		rest = rest[idx+len(word):]
	}

	return level, header.OffsetText, header.TypeText, header.ValueText, strings.TrimSpace(rest), nil
}

// ParseRules parses a full magic rule file into a forest of root Tests,
// attributing each rule to its 1-indexed source line. Lines beginning with
// '#' are comments; "!:mime" and "!:ext" lines annotate the most recently
// parsed rule at or below the current nesting level.
func ParseRules(path string, data []byte) ([]*Rule, error) {
	var (
		roots   []*Rule
		stack   []*Rule // stack[level] = most recent rule at that level
		pending []Comment // comment lines accumulated since the last rule
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)

		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			pending = append(pending, Comment{
				Text:       strings.TrimSpace(strings.TrimPrefix(trimmed, "#")),
				SourceInfo: &SourceInfo{Path: path, Line: lineNo, OriginalLine: raw},
			})

			continue
		}

		if directive, value, ok := splitDirective(trimmed, "!:mime"); ok {
			if len(stack) == 0 {
				return nil, fmt.Errorf("magic: %s:%d: %s with no preceding test", path, lineNo, directive)
			}

			last := stack[len(stack)-1]
			last.mime = value
			last.hasMime = true

			continue
		}

		if directive, value, ok := splitDirective(trimmed, "!:ext"); ok {
			if len(stack) == 0 {
				return nil, fmt.Errorf("magic: %s:%d: %s with no preceding test", path, lineNo, directive)
			}

			last := stack[len(stack)-1]
			last.extensions = append(last.extensions, value)

			continue
		}

		level, offsetText, typeName, valueText, message, err := splitRuleLine(raw)
		if err != nil {
			return nil, fmt.Errorf("magic: %s:%d: %w", path, lineNo, err)
		}

		offset, err := ParseOffset(offsetText)
		if err != nil {
			return nil, fmt.Errorf("magic: %s:%d: %w", path, lineNo, err)
		}

		rule := &Rule{
			level:     level,
			offset:    offset,
			message:   message,
			typeName:  typeName,
			valueText: valueText,
			comments:  pending,
			sourceInfo: &SourceInfo{
				Path:         path,
				Line:         lineNo,
				OriginalLine: raw,
			},
		}

		pending = nil

		if level == 0 {
			roots = append(roots, rule)
			stack = []*Rule{rule}
		} else {
			if level > len(stack) {
				return nil, fmt.Errorf("magic: %s:%d: level %d has no parent at level %d", path, lineNo, level, level-1)
			}

			parent := stack[level-1]
			rule.parent = parent
			parent.children = append(parent.children, rule)
			stack = append(stack[:level], rule)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return roots, nil
}
