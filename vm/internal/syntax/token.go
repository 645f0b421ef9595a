package syntax

import "fmt"

// TokenType identifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenLine

	TokenNumber
	TokenString
	TokenInterpolation // string part before a %( ... ) expression
	TokenName
	TokenField       // _name
	TokenStaticField // __name

	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenColon
	TokenDot
	TokenDotDot
	TokenDotDotDot
	TokenQuestion
	TokenEq
	TokenEqEq
	TokenBangEq
	TokenLt
	TokenLtEq
	TokenLtLt
	TokenGt
	TokenGtEq
	TokenGtGt
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenBang
	TokenTilde
	TokenAmp
	TokenAmpAmp
	TokenPipe
	TokenPipePipe
	TokenCaret

	TokenBreak
	TokenClass
	TokenConstruct
	TokenContinue
	TokenElse
	TokenFalse
	TokenFor
	TokenForeign
	TokenIf
	TokenImport
	TokenIn
	TokenIs
	TokenNull
	TokenReturn
	TokenStatic
	TokenSuper
	TokenThis
	TokenTrue
	TokenVar
	TokenWhile
)

var keywords = map[string]TokenType{
	"break":     TokenBreak,
	"class":     TokenClass,
	"construct": TokenConstruct,
	"continue":  TokenContinue,
	"else":      TokenElse,
	"false":     TokenFalse,
	"for":       TokenFor,
	"foreign":   TokenForeign,
	"if":        TokenIf,
	"import":    TokenImport,
	"in":        TokenIn,
	"is":        TokenIs,
	"null":      TokenNull,
	"return":    TokenReturn,
	"static":    TokenStatic,
	"super":     TokenSuper,
	"this":      TokenThis,
	"true":      TokenTrue,
	"var":       TokenVar,
	"while":     TokenWhile,
}

// operatorTokens maps operator tokens to the method name they dispatch to.
var operatorTokens = map[TokenType]string{
	TokenDotDot:    "..",
	TokenDotDotDot: "...",
	TokenEqEq:      "==",
	TokenBangEq:    "!=",
	TokenLt:        "<",
	TokenLtEq:      "<=",
	TokenLtLt:      "<<",
	TokenGt:        ">",
	TokenGtEq:      ">=",
	TokenGtGt:      ">>",
	TokenPlus:      "+",
	TokenMinus:     "-",
	TokenStar:      "*",
	TokenSlash:     "/",
	TokenPercent:   "%",
	TokenBang:      "!",
	TokenTilde:     "~",
	TokenAmp:       "&",
	TokenPipe:      "|",
	TokenCaret:     "^",
}

// Token is one lexical token. Text holds the source lexeme, or the decoded
// value for strings.
type Token struct {
	Text string
	Num  float64
	Type TokenType
	Line int
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "end of file"
	case TokenLine:
		return "newline"
	case TokenString, TokenInterpolation:
		return fmt.Sprintf("%q", t.Text)
	default:
		return t.Text
	}
}
