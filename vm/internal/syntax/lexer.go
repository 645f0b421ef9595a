package syntax

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Lexer tokenizes script source.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)

	// parens holds, for each open interpolation, the number of unclosed
	// parentheses inside it.
	parens []int
}

// NewLexer creates a lexer for src.
func NewLexer(src string) *Lexer {
	l := &Lexer{input: src, line: 1}
	l.readChar()
	return l
}

// Tokenize returns every token of src up to and including EOF. Consecutive
// newlines are collapsed.
func Tokenize(src string) []Token {
	l := NewLexer(src)
	var toks []Token
	for {
		t := l.Next()
		if t.Type == TokenLine && len(toks) > 0 && toks[len(toks)-1].Type == TokenLine {
			continue
		}
		toks = append(toks, t)
		if t.Type == TokenEOF || t.Type == TokenError {
			if t.Type == TokenError {
				toks = append(toks, Token{Type: TokenEOF, Line: t.Line})
			}
			return toks
		}
	}
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = l.readPos
		return
	}
	if l.ch == '\n' {
		l.line++
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) tok(t TokenType, text string, line int) Token {
	return Token{Type: t, Text: text, Line: line}
}

func (l *Lexer) errorf(line int, msg string) Token {
	return Token{Type: TokenError, Text: msg, Line: line}
}

// single consumes one character and returns a token of type t.
func (l *Lexer) single(t TokenType) Token {
	line := l.line
	text := string(l.ch)
	l.readChar()
	return l.tok(t, text, line)
}

// two returns a two-character token if the next char is second, otherwise
// the one-character token.
func (l *Lexer) two(second rune, double, one TokenType) Token {
	line := l.line
	first := l.ch
	l.readChar()
	if l.ch == second {
		l.readChar()
		return l.tok(double, string(first)+string(second), line)
	}
	return l.tok(one, string(first), line)
}

// Next returns the next token.
func (l *Lexer) Next() Token {
	if tok, ok := l.skipSpace(); ok {
		return tok
	}

	line := l.line
	if l.atEOF() {
		return l.tok(TokenEOF, "", line)
	}

	switch c := l.ch; {
	case c == '\n':
		l.readChar()
		return l.tok(TokenLine, "\n", line)
	case c == '(':
		if n := len(l.parens); n > 0 {
			l.parens[n-1]++
		}
		return l.single(TokenLParen)
	case c == ')':
		if n := len(l.parens); n > 0 {
			l.parens[n-1]--
			if l.parens[n-1] == 0 {
				l.parens = l.parens[:n-1]
				l.readChar()
				return l.readString(line)
			}
		}
		return l.single(TokenRParen)
	case c == '[':
		return l.single(TokenLBracket)
	case c == ']':
		return l.single(TokenRBracket)
	case c == '{':
		return l.single(TokenLBrace)
	case c == '}':
		return l.single(TokenRBrace)
	case c == ',':
		return l.single(TokenComma)
	case c == ':':
		return l.single(TokenColon)
	case c == '?':
		return l.single(TokenQuestion)
	case c == '*':
		return l.single(TokenStar)
	case c == '/':
		return l.single(TokenSlash)
	case c == '%':
		return l.single(TokenPercent)
	case c == '+':
		return l.single(TokenPlus)
	case c == '-':
		return l.single(TokenMinus)
	case c == '~':
		return l.single(TokenTilde)
	case c == '^':
		return l.single(TokenCaret)
	case c == '.':
		l.readChar()
		if l.ch != '.' {
			return l.tok(TokenDot, ".", line)
		}
		l.readChar()
		if l.ch != '.' {
			return l.tok(TokenDotDot, "..", line)
		}
		l.readChar()
		return l.tok(TokenDotDotDot, "...", line)
	case c == '=':
		return l.two('=', TokenEqEq, TokenEq)
	case c == '!':
		return l.two('=', TokenBangEq, TokenBang)
	case c == '&':
		return l.two('&', TokenAmpAmp, TokenAmp)
	case c == '|':
		return l.two('|', TokenPipePipe, TokenPipe)
	case c == '<':
		if l.peekChar() == '<' {
			l.readChar()
			l.readChar()
			return l.tok(TokenLtLt, "<<", line)
		}
		return l.two('=', TokenLtEq, TokenLt)
	case c == '>':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return l.tok(TokenGtGt, ">>", line)
		}
		return l.two('=', TokenGtEq, TokenGt)
	case c == '"':
		l.readChar()
		return l.readString(line)
	case isDigit(c):
		return l.readNumber()
	case isNameStart(c):
		return l.readName()
	default:
		text := string(c)
		l.readChar()
		return l.errorf(line, "Invalid character '"+text+"'.")
	}
}

// skipSpace skips whitespace and comments. It returns an error token for an
// unterminated block comment.
func (l *Lexer) skipSpace() (Token, bool) {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			line := l.line
			l.readChar()
			l.readChar()
			depth := 1
			for depth > 0 {
				if l.atEOF() {
					return l.errorf(line, "Unterminated block comment."), true
				}
				switch {
				case l.ch == '/' && l.peekChar() == '*':
					l.readChar()
					depth++
				case l.ch == '*' && l.peekChar() == '/':
					l.readChar()
					depth--
				}
				l.readChar()
			}
		case l.ch == '#' && l.pos == 0 && l.peekChar() == '!':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return Token{}, false
		}
	}
}

func (l *Lexer) readName() Token {
	line := l.line
	start := l.pos
	for isNameStart(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	text := l.input[start:l.pos]

	switch {
	case strings.HasPrefix(text, "__"):
		return l.tok(TokenStaticField, text, line)
	case strings.HasPrefix(text, "_"):
		return l.tok(TokenField, text, line)
	}
	if kw, ok := keywords[text]; ok {
		return l.tok(kw, text, line)
	}
	return l.tok(TokenName, text, line)
}

func (l *Lexer) readNumber() Token {
	line := l.line
	start := l.pos

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		text := l.input[start:l.pos]
		n, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return l.errorf(line, "Invalid number literal.")
		}
		return Token{Type: TokenNumber, Text: text, Num: float64(n), Line: line}
	}

	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			return l.errorf(line, "Unterminated scientific notation.")
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	text := l.input[start:l.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return l.errorf(line, "Invalid number literal.")
	}
	return Token{Type: TokenNumber, Text: text, Num: n, Line: line}
}

// readString reads string contents after an opening quote or after the
// closing paren of an interpolated expression.
func (l *Lexer) readString(line int) Token {
	var b strings.Builder
	for {
		if l.atEOF() {
			return l.errorf(line, "Unterminated string.")
		}
		switch l.ch {
		case '"':
			l.readChar()
			return l.tok(TokenString, b.String(), line)
		case '%':
			if l.peekChar() != '(' {
				return l.errorf(l.line, "Expect '(' after '%'.")
			}
			l.readChar()
			l.readChar()
			l.parens = append(l.parens, 1)
			return l.tok(TokenInterpolation, b.String(), line)
		case '\\':
			l.readChar()
			if err := l.readEscape(&b); err != "" {
				return l.errorf(l.line, err)
			}
		default:
			b.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) readEscape(b *strings.Builder) string {
	c := l.ch
	l.readChar()
	switch c {
	case '"':
		b.WriteByte('"')
	case '\\':
		b.WriteByte('\\')
	case '%':
		b.WriteByte('%')
	case '0':
		b.WriteByte(0)
	case 'a':
		b.WriteByte('\a')
	case 'b':
		b.WriteByte('\b')
	case 'e':
		b.WriteByte(0x1b)
	case 'f':
		b.WriteByte('\f')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'v':
		b.WriteByte('\v')
	case 'x':
		n, ok := l.readHex(2)
		if !ok {
			return "Incomplete byte escape sequence."
		}
		b.WriteByte(byte(n))
	case 'u':
		n, ok := l.readHex(4)
		if !ok {
			return "Incomplete Unicode escape sequence."
		}
		b.WriteRune(rune(n))
	case 'U':
		n, ok := l.readHex(8)
		if !ok {
			return "Incomplete Unicode escape sequence."
		}
		b.WriteRune(rune(n))
	default:
		return "Invalid escape character '" + string(c) + "'."
	}
	return ""
}

func (l *Lexer) readHex(digits int) (uint64, bool) {
	var n uint64
	for i := 0; i < digits; i++ {
		if !isHexDigit(l.ch) {
			return 0, false
		}
		d, _ := strconv.ParseUint(string(l.ch), 16, 8)
		n = n*16 + d
		l.readChar()
	}
	return n, true
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c rune) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isNameStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
