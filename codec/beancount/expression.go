package beancount

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// evalExpression evaluates an arithmetic amount expression: +, -, *, /,
// unary minus and parentheses, left-associative with standard precedence.
// All arithmetic is decimal.
func evalExpression(input string) (decimal.Decimal, error) {
	p := &exprParser{input: strings.TrimSpace(input)}
	value, err := p.parseExpr()
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return decimal.Zero, fmt.Errorf("unexpected %q in expression", p.input[p.pos:])
	}
	return value, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Add(right)
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Sub(right)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseFactor()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Mul(right)
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return decimal.Zero, err
			}
			if right.IsZero() {
				return decimal.Zero, fmt.Errorf("division by zero")
			}
			left = left.Div(right)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseFactor() (decimal.Decimal, error) {
	p.skipSpaces()
	switch p.peek() {
	case '-':
		p.pos++
		value, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		return value.Neg(), nil
	case '+':
		p.pos++
		return p.parseFactor()
	case '(':
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return decimal.Zero, fmt.Errorf("expected closing parenthesis")
		}
		p.pos++
		return value, nil
	default:
		return p.parseNumber()
	}
}

func (p *exprParser) parseNumber() (decimal.Decimal, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == ',' {
			p.pos++
		} else {
			break
		}
	}
	if start == p.pos {
		return decimal.Zero, fmt.Errorf("expected number in expression")
	}
	text := strings.ReplaceAll(p.input[start:p.pos], ",", "")
	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", text)
	}
	return value, nil
}

// isExpressionPart reports whether a word token can belong to an amount
// expression.
func isExpressionPart(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' || c == ',' || c == '+' || c == '-' || c == '*' || c == '/' || c == '(' || c == ')':
		default:
			return false
		}
	}
	return true
}

// isCommodityWord reports whether a word is a commodity identifier:
// uppercase letters followed by letters, digits and a few punctuation
// characters.
func isCommodityWord(s string) bool {
	if s == "" {
		return false
	}
	if s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '\'' || c == '.' || c == '-':
		default:
			return false
		}
	}
	return true
}
