package magic

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// headerLexer tokenizes the fixed-column header of a magic rule line —
// "OFFSET TYPE VALUE" — once the level markers and trailing free-text
// message have already been split off by the caller. Confining participle
// to this bounded, whitespace-delimited header (rather than the whole
// line, whose message column is unconstrained English text) keeps the
// grammar a genuine token grammar instead of needing a stateful lexer to
// avoid swallowing the message as individual word tokens. Offset and type
// text are re-parsed by dedicated, non-participle parsers (ParseOffset,
// decodeEscapes) since their own internal structure — indirect offset
// arithmetic, byte-escaped literals — is unrelated to column splitting.
var headerLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Word", Pattern: `\S+`},
})
