package registry

import (
	"strings"

	"github.com/wippyai/wren-bridge/errors"
)

// SigKind is the call shape of a signature.
type SigKind uint8

const (
	SigGetter SigKind = iota
	SigSetter
	SigMethod
	SigSubscript
	SigSubscriptSetter
	SigPrefix
	SigInfix
	SigConstructor
)

func (k SigKind) String() string {
	switch k {
	case SigGetter:
		return "getter"
	case SigSetter:
		return "setter"
	case SigMethod:
		return "method"
	case SigSubscript:
		return "subscript"
	case SigSubscriptSetter:
		return "subscript setter"
	case SigPrefix:
		return "prefix operator"
	case SigInfix:
		return "infix operator"
	case SigConstructor:
		return "constructor"
	default:
		return "unknown"
	}
}

// Signature identifies a method by name, call shape and arity.
// For subscripts Arity counts the index arguments only.
type Signature struct {
	Name  string
	Kind  SigKind
	Arity int
}

// Getter returns the signature of a getter.
func Getter(name string) Signature { return Signature{Name: name, Kind: SigGetter} }

// Setter returns the signature of a setter.
func Setter(name string) Signature { return Signature{Name: name, Kind: SigSetter, Arity: 1} }

// Method returns the signature of a method taking arity arguments.
func Method(name string, arity int) Signature {
	return Signature{Name: name, Kind: SigMethod, Arity: arity}
}

// Subscript returns the signature of a subscript getter.
func Subscript(arity int) Signature { return Signature{Kind: SigSubscript, Arity: arity} }

// SubscriptSetter returns the signature of a subscript setter.
func SubscriptSetter(arity int) Signature {
	return Signature{Kind: SigSubscriptSetter, Arity: arity}
}

// Prefix returns the signature of a unary operator.
func Prefix(op string) Signature { return Signature{Name: op, Kind: SigPrefix} }

// Infix returns the signature of a binary operator.
func Infix(op string) Signature { return Signature{Name: op, Kind: SigInfix, Arity: 1} }

// Constructor returns the signature of a constructor initializer.
func Constructor(name string, arity int) Signature {
	return Signature{Name: name, Kind: SigConstructor, Arity: arity}
}

// String returns the signature in the VM's wire format.
func (s Signature) String() string {
	var b strings.Builder
	switch s.Kind {
	case SigGetter, SigPrefix:
		b.WriteString(s.Name)
	case SigSetter:
		b.WriteString(s.Name)
		b.WriteString("=(_)")
	case SigMethod, SigInfix:
		b.WriteString(s.Name)
		writeParams(&b, '(', ')', s.Arity)
	case SigSubscript:
		writeParams(&b, '[', ']', s.Arity)
	case SigSubscriptSetter:
		writeParams(&b, '[', ']', s.Arity)
		b.WriteString("=(_)")
	case SigConstructor:
		b.WriteString("init ")
		b.WriteString(s.Name)
		writeParams(&b, '(', ')', s.Arity)
	}
	return b.String()
}

// ArgCount returns how many argument slots a call with this signature fills
// after the receiver.
func (s Signature) ArgCount() int {
	switch s.Kind {
	case SigGetter, SigPrefix:
		return 0
	case SigSetter, SigInfix:
		return 1
	case SigSubscriptSetter:
		return s.Arity + 1
	default:
		return s.Arity
	}
}

func writeParams(b *strings.Builder, open, close byte, n int) {
	b.WriteByte(open)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('_')
	}
	b.WriteByte(close)
}

// ParseSignature parses a wire-format signature string.
func ParseSignature(s string) (Signature, error) {
	bad := func(reason string) (Signature, error) {
		return Signature{}, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Signature(s).
			Detail("invalid signature: %s", reason).
			Build()
	}

	if s == "" {
		return bad("empty")
	}

	if rest, ok := strings.CutPrefix(s, "init "); ok {
		sig, err := ParseSignature(rest)
		if err != nil || sig.Kind != SigMethod {
			return bad("constructor must look like a method")
		}
		sig.Kind = SigConstructor
		return sig, nil
	}

	if s[0] == '[' {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return bad("unterminated subscript")
		}
		n, ok := countParams(s[1:end])
		if !ok || n == 0 {
			return bad("subscript needs at least one parameter")
		}
		switch s[end+1:] {
		case "":
			return Subscript(n), nil
		case "=(_)":
			return SubscriptSetter(n), nil
		default:
			return bad("trailing characters after subscript")
		}
	}

	open := strings.IndexByte(s, '(')
	if open < 0 {
		switch {
		case isIdent(s):
			return Getter(s), nil
		case isOperator(s):
			return Prefix(s), nil
		default:
			return bad("malformed name")
		}
	}

	if !strings.HasSuffix(s, ")") {
		return bad("unterminated parameter list")
	}
	name := s[:open]
	n, ok := countParams(s[open+1 : len(s)-1])
	if !ok {
		return bad("malformed parameter list")
	}

	if setter, ok := strings.CutSuffix(name, "="); ok && isIdent(setter) {
		if n != 1 {
			return bad("setter takes exactly one argument")
		}
		return Setter(setter), nil
	}

	switch {
	case isIdent(name):
		return Method(name, n), nil
	case isOperator(name) && n == 1:
		return Infix(name), nil
	default:
		return bad("malformed name")
	}
}

// MustParseSignature is like ParseSignature but panics on error.
func MustParseSignature(s string) Signature {
	sig, err := ParseSignature(s)
	if err != nil {
		panic(err)
	}
	return sig
}

func countParams(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	parts := strings.Split(s, ",")
	for _, p := range parts {
		if p != "_" {
			return 0, false
		}
	}
	return len(parts), true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

var operators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"<": true, ">": true, "<=": true, ">=": true, "==": true, "!=": true,
	"&": true, "|": true, "^": true, "<<": true, ">>": true,
	"..": true, "...": true, "!": true, "~": true,
}

func isOperator(s string) bool {
	return operators[s]
}
