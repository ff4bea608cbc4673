// Package calc evaluates the small arithmetic expressions accepted by *calc:
// numbers, parentheses, + - * / // and ** (or ^). Integer arithmetic is exact;
// true division and decimal literals produce floats.
package calc

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrSyntax is returned for anything that does not parse.
	ErrSyntax = errors.New("syntax error")
	// ErrTooComplex is returned when a result would be unreasonably large.
	ErrTooComplex = errors.New("formula too complex")
	// ErrDivisionByZero is returned for x/0 and x//0.
	ErrDivisionByZero = errors.New("division by zero")
)

// maxExponent bounds integer powers.
const maxExponent = 10000

// maxBits bounds the size of integer results.
const maxBits = 1 << 16

// Value is an exact integer or a float.
type Value struct {
	i *big.Int
	f float64
}

// IsInt reports whether v is an exact integer.
func (v Value) IsInt() bool { return v.i != nil }

func (v Value) float() float64 {
	if v.i != nil {
		f, _ := new(big.Float).SetInt(v.i).Float64()
		return f
	}
	return v.f
}

// String renders v the way an interactive calculator would: integers in full,
// floats in their shortest form with a trailing ".0" when integral.
func (v Value) String() string {
	if v.i != nil {
		return v.i.String()
	}
	f := v.f
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	exp := int(math.Floor(math.Log10(math.Abs(f))))
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func intValue(i *big.Int) (Value, error) {
	if i.BitLen() > maxBits {
		return Value{}, ErrTooComplex
	}
	return Value{i: i}, nil
}

func floatValue(f float64) (Value, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, ErrTooComplex
	}
	return Value{f: f}, nil
}

// Eval parses and evaluates expr.
func Eval(expr string) (Value, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return Value{}, err
	}
	p := &parser{toks: toks}
	v, err := p.expr()
	if err != nil {
		return Value{}, err
	}
	if p.pos != len(p.toks) {
		return Value{}, ErrSyntax
	}
	return v, nil
}

type tokKind int

const (
	tokNum tokKind = iota
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNum, s[i:j]})
			i = j
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '^':
			toks = append(toks, token{tokOp, "**"})
			i++
		case c == '*' || c == '/':
			if i+1 < len(s) && s[i+1] == c {
				toks = append(toks, token{tokOp, s[i : i+2]})
				i += 2
			} else {
				toks = append(toks, token{tokOp, s[i : i+1]})
				i++
			}
		case c == '+' || c == '-':
			toks = append(toks, token{tokOp, s[i : i+1]})
			i++
		default:
			return nil, ErrSyntax
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peekOp(ops ...string) (string, bool) {
	if p.pos >= len(p.toks) || p.toks[p.pos].kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if p.toks[p.pos].text == op {
			return op, true
		}
	}
	return "", false
}

func (p *parser) expr() (Value, error) {
	left, err := p.term()
	if err != nil {
		return Value{}, err
	}
	for {
		op, ok := p.peekOp("+", "-")
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return Value{}, err
		}
		if left, err = apply(op, left, right); err != nil {
			return Value{}, err
		}
	}
}

func (p *parser) term() (Value, error) {
	left, err := p.unary()
	if err != nil {
		return Value{}, err
	}
	for {
		op, ok := p.peekOp("*", "/", "//")
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.unary()
		if err != nil {
			return Value{}, err
		}
		if left, err = apply(op, left, right); err != nil {
			return Value{}, err
		}
	}
}

func (p *parser) unary() (Value, error) {
	if op, ok := p.peekOp("+", "-"); ok {
		p.pos++
		v, err := p.unary()
		if err != nil || op == "+" {
			return v, err
		}
		if v.IsInt() {
			return Value{i: new(big.Int).Neg(v.i)}, nil
		}
		return Value{f: -v.f}, nil
	}
	return p.power()
}

// power is right associative and binds tighter than a unary minus on its
// left, so -2**2 is -4 and 2**-1 is 0.5.
func (p *parser) power() (Value, error) {
	base, err := p.atom()
	if err != nil {
		return Value{}, err
	}
	if _, ok := p.peekOp("**"); !ok {
		return base, nil
	}
	p.pos++
	exp, err := p.unary()
	if err != nil {
		return Value{}, err
	}
	return apply("**", base, exp)
}

func (p *parser) atom() (Value, error) {
	if p.pos >= len(p.toks) {
		return Value{}, ErrSyntax
	}
	tok := p.toks[p.pos]
	p.pos++

	switch tok.kind {
	case tokNum:
		return parseNumber(tok.text)
	case tokLParen:
		v, err := p.expr()
		if err != nil {
			return Value{}, err
		}
		if p.pos >= len(p.toks) || p.toks[p.pos].kind != tokRParen {
			return Value{}, ErrSyntax
		}
		p.pos++
		return v, nil
	}
	return Value{}, ErrSyntax
}

func parseNumber(s string) (Value, error) {
	if !strings.Contains(s, ".") {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return Value{}, ErrSyntax
		}
		return intValue(i)
	}
	if s == "." || strings.Count(s, ".") > 1 {
		return Value{}, ErrSyntax
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, ErrSyntax
	}
	return floatValue(f)
}

func apply(op string, a, b Value) (Value, error) {
	if a.IsInt() && b.IsInt() {
		return applyInt(op, a.i, b.i)
	}
	x, y := a.float(), b.float()
	switch op {
	case "+":
		return floatValue(x + y)
	case "-":
		return floatValue(x - y)
	case "*":
		return floatValue(x * y)
	case "/":
		if y == 0 {
			return Value{}, ErrDivisionByZero
		}
		return floatValue(x / y)
	case "//":
		if y == 0 {
			return Value{}, ErrDivisionByZero
		}
		return floatValue(math.Floor(x / y))
	case "**":
		if x < 0 && y != math.Trunc(y) {
			return Value{}, ErrSyntax
		}
		if x == 0 && y < 0 {
			return Value{}, ErrDivisionByZero
		}
		return floatValue(math.Pow(x, y))
	}
	return Value{}, ErrSyntax
}

func applyInt(op string, x, y *big.Int) (Value, error) {
	switch op {
	case "+":
		return intValue(new(big.Int).Add(x, y))
	case "-":
		return intValue(new(big.Int).Sub(x, y))
	case "*":
		if x.BitLen()+y.BitLen() > maxBits+1 {
			return Value{}, ErrTooComplex
		}
		return intValue(new(big.Int).Mul(x, y))
	case "/":
		if y.Sign() == 0 {
			return Value{}, ErrDivisionByZero
		}
		f, _ := new(big.Rat).SetFrac(x, y).Float64()
		return floatValue(f)
	case "//":
		if y.Sign() == 0 {
			return Value{}, ErrDivisionByZero
		}
		q, r := new(big.Int).QuoRem(x, y, new(big.Int))
		// floor towards negative infinity
		if r.Sign() != 0 && (r.Sign() < 0) != (y.Sign() < 0) {
			q.Sub(q, big.NewInt(1))
		}
		return intValue(q)
	case "**":
		if y.Sign() < 0 {
			if x.Sign() == 0 {
				return Value{}, ErrDivisionByZero
			}
			return floatValue(math.Pow(Value{i: x}.float(), Value{i: y}.float()))
		}
		if !y.IsInt64() || y.Int64() > maxExponent {
			return Value{}, ErrTooComplex
		}
		if int64(x.BitLen())*y.Int64() > maxBits {
			return Value{}, ErrTooComplex
		}
		return intValue(new(big.Int).Exp(x, y, nil))
	}
	return Value{}, ErrSyntax
}
