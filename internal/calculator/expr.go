package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrEmptyFormula     = errors.New("empty formula")
	ErrSyntax           = errors.New("malformed formula")
	ErrUnsupportedToken = errors.New("unsupported token in formula")
	ErrNotFinite        = errors.New("formula does not evaluate to a finite number")
)

// maxDepth bounds parenthesis nesting.
const maxDepth = 64

// NormalizeFormula trims a user-typed amount, drops inner spaces and turns decimal commas into dots.
func NormalizeFormula(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	return strings.ReplaceAll(s, " ", "")
}

// Evaluate computes an arithmetic formula made of numbers, + - * /, unary signs and parentheses.
// Anything else (identifiers, function calls, other operators) is rejected with ErrUnsupportedToken.
// A result that is NaN or infinite, such as a division by zero, is rejected with ErrNotFinite.
func Evaluate(formula string) (float64, error) {
	p := &parser{input: formula}
	p.skipSpaces()
	if p.done() {
		return 0, ErrEmptyFormula
	}

	value, err := p.expression(0)
	if err != nil {
		return 0, err
	}

	p.skipSpaces()
	if !p.done() {
		return 0, p.unexpected()
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrNotFinite
	}
	return value, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) done() bool {
	return p.pos >= len(p.input)
}

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) skipSpaces() {
	for !p.done() && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

// expression := term (('+' | '-') term)*
func (p *parser) expression(depth int) (float64, error) {
	left, err := p.term(depth)
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.term(depth)
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// term := factor (('*' | '/') factor)*
func (p *parser) term(depth int) (float64, error) {
	left, err := p.factor(depth)
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.factor(depth)
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			left /= right
		}
	}
}

// factor := ('+' | '-') factor | '(' expression ')' | number
func (p *parser) factor(depth int) (float64, error) {
	if depth > maxDepth {
		return 0, fmt.Errorf("%w: nesting deeper than %d", ErrSyntax, maxDepth)
	}

	p.skipSpaces()
	switch c := p.peek(); {
	case c == 0:
		return 0, fmt.Errorf("%w: unexpected end of formula", ErrSyntax)
	case c == '+' || c == '-':
		p.pos++
		v, err := p.factor(depth + 1)
		if err != nil {
			return 0, err
		}
		if c == '-' {
			return -v, nil
		}
		return v, nil
	case c == '(':
		p.pos++
		v, err := p.expression(depth + 1)
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, fmt.Errorf("%w: missing closing parenthesis at position %d", ErrSyntax, p.pos)
		}
		p.pos++
		return v, nil
	case isDigit(c) || c == '.':
		return p.number()
	default:
		return 0, p.unexpected()
	}
}

func (p *parser) number() (float64, error) {
	start := p.pos
	for !p.done() && (isDigit(p.peek()) || p.peek() == '.') {
		p.pos++
	}
	// optional exponent, e.g. 1e3 or 2.5E-2
	if c := p.peek(); c == 'e' || c == 'E' {
		next := p.pos + 1
		if next < len(p.input) && (p.input[next] == '+' || p.input[next] == '-') {
			next++
		}
		if next < len(p.input) && isDigit(p.input[next]) {
			p.pos = next
			for !p.done() && isDigit(p.peek()) {
				p.pos++
			}
		}
	}

	literal := p.input[start:p.pos]
	v, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, ErrNotFinite
		}
		return 0, fmt.Errorf("%w: invalid number %q", ErrSyntax, literal)
	}
	return v, nil
}

// unexpected reports the token at the current position.
func (p *parser) unexpected() error {
	c := p.peek()
	if isLetter(c) {
		start := p.pos
		end := start
		for end < len(p.input) && (isLetter(p.input[end]) || isDigit(p.input[end])) {
			end++
		}
		return fmt.Errorf("%w: %q at position %d", ErrUnsupportedToken, p.input[start:end], start)
	}
	if c == ')' {
		return fmt.Errorf("%w: unbalanced parenthesis at position %d", ErrSyntax, p.pos)
	}
	return fmt.Errorf("%w: %q at position %d", ErrUnsupportedToken, string(rune(c)), p.pos)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}
