package syntax

import "testing"

func types(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		src  string
		want []TokenType
	}{
		{"var x = 1", []TokenType{TokenVar, TokenName, TokenEq, TokenNumber, TokenEOF}},
		{"a.b(_c, __d)", []TokenType{TokenName, TokenDot, TokenName, TokenLParen, TokenField, TokenComma, TokenStaticField, TokenRParen, TokenEOF}},
		{"1..2 1...2", []TokenType{TokenNumber, TokenDotDot, TokenNumber, TokenNumber, TokenDotDotDot, TokenNumber, TokenEOF}},
		{"a == b != c <= d >= e << f >> g", []TokenType{
			TokenName, TokenEqEq, TokenName, TokenBangEq, TokenName, TokenLtEq, TokenName,
			TokenGtEq, TokenName, TokenLtLt, TokenName, TokenGtGt, TokenName, TokenEOF,
		}},
		{"a && b || !c", []TokenType{TokenName, TokenAmpAmp, TokenName, TokenPipePipe, TokenBang, TokenName, TokenEOF}},
		{"x\n\n\ny", []TokenType{TokenName, TokenLine, TokenName, TokenEOF}},
		{"x // comment\ny", []TokenType{TokenName, TokenLine, TokenName, TokenEOF}},
		{"x /* a /* nested */ comment */ y", []TokenType{TokenName, TokenName, TokenEOF}},
		{"foreign class Vec3 is Object", []TokenType{TokenForeign, TokenClass, TokenName, TokenIs, TokenName, TokenEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := types(Tokenize(tt.src))
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.src, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenize_Numbers(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"0", 0},
		{"42", 42},
		{"3.25", 3.25},
		{"1e3", 1000},
		{"2.5e-1", 0.25},
		{"0xff", 255},
	}
	for _, tt := range tests {
		toks := Tokenize(tt.src)
		if toks[0].Type != TokenNumber || toks[0].Num != tt.want {
			t.Errorf("Tokenize(%q) = %+v, want number %v", tt.src, toks[0], tt.want)
		}
	}

	// A dot not followed by a digit is a method call.
	toks := Tokenize("1.abs")
	if got := types(toks); got[0] != TokenNumber || got[1] != TokenDot || got[2] != TokenName {
		t.Errorf("1.abs = %v", got)
	}
}

func TestTokenize_Strings(t *testing.T) {
	toks := Tokenize(`"a\tb\n\"q\" A \x42 100\%"`)
	if toks[0].Type != TokenString {
		t.Fatalf("type = %v", toks[0].Type)
	}
	if want := "a\tb\n\"q\" A B 100%"; toks[0].Text != want {
		t.Errorf("text = %q, want %q", toks[0].Text, want)
	}
}

func TestTokenize_Interpolation(t *testing.T) {
	toks := Tokenize(`"x = %(a.f(1)) and %((b)) end"`)
	want := []TokenType{
		TokenInterpolation, TokenName, TokenDot, TokenName, TokenLParen, TokenNumber, TokenRParen,
		TokenInterpolation, TokenLParen, TokenName, TokenRParen,
		TokenString, TokenEOF,
	}
	got := types(toks)
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
	if toks[0].Text != "x = " || toks[7].Text != " and " || toks[11].Text != " end" {
		t.Errorf("parts = %q %q %q", toks[0].Text, toks[7].Text, toks[11].Text)
	}
}

func TestTokenize_Errors(t *testing.T) {
	for _, src := range []string{
		`"unterminated`,
		`"bad \q escape"`,
		`/* open`,
		`1e`,
		"@",
	} {
		toks := Tokenize(src)
		found := false
		for _, tok := range toks {
			if tok.Type == TokenError {
				found = true
			}
		}
		if !found {
			t.Errorf("Tokenize(%q) produced no error token: %v", src, types(toks))
		}
		if toks[len(toks)-1].Type != TokenEOF {
			t.Errorf("Tokenize(%q) must end with EOF", src)
		}
	}
}

func TestTokenize_Lines(t *testing.T) {
	toks := Tokenize("a\nb\n\nc")
	lines := []int{1, 1, 2, 2, 4}
	for i, want := range lines {
		if toks[i].Line != want {
			t.Errorf("token %d (%v) line = %d, want %d", i, toks[i], toks[i].Line, want)
		}
	}
}
