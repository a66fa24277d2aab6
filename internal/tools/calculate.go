package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Calculate evaluates basic arithmetic expressions: digits, + - * / and
// parentheses only.
type Calculate struct{}

func (c *Calculate) Name() string { return "calculate" }

func (c *Calculate) Description() string {
	return "Perform simple mathematical calculations"
}

func (c *Calculate) Execute(ctx context.Context, args map[string]any) (any, error) {
	expr, ok := args["expression"].(string)
	if !ok || expr == "" {
		return nil, fmt.Errorf("calculate requires an expression argument")
	}
	if !validExpression(expr) {
		return nil, fmt.Errorf("invalid expression: only basic math operations allowed")
	}
	result, err := evaluate(expr)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validExpression(expr string) bool {
	for _, r := range expr {
		if !strings.ContainsRune("0123456789+-*/(). ", r) {
			return false
		}
	}
	return true
}

// evaluate is a small recursive-descent parser over the usual grammar:
// expr = term {(+|-) term}; term = factor {(*|/) factor};
// factor = number | (expr) | -factor.
func evaluate(expr string) (float64, error) {
	p := &exprParser{input: strings.ReplaceAll(expr, " ", "")}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character at position %d", p.pos)
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.input) {
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			break
		}
		p.pos++
		rhs, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			v += rhs
		} else {
			v -= rhs
		}
	}
	return v, nil
}

func (p *exprParser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.input) {
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			break
		}
		p.pos++
		rhs, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			v *= rhs
		} else {
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= rhs
		}
	}
	return v, nil
}

func (p *exprParser) parseFactor() (float64, error) {
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	switch p.input[p.pos] {
	case '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] == '.' || (p.input[p.pos] >= '0' && p.input[p.pos] <= '9')) {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at position %d", start)
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}
