package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// tokenKind — тип токена.
type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenString
	tokenIdent // dot-путь или ключевое слово
	tokenOp    // оператор или пунктуация
)

// token — один токен выражения.
type token struct {
	kind tokenKind
	text string
	num  float64
}

// Инфиксные ключевые слова-операторы сравнения.
var keywordOps = map[string]bool{
	"contains":   true,
	"startsWith": true,
	"endsWith":   true,
	"in":         true,
}

// parser — рекурсивный спуск по токенам.
type parser struct {
	tokens []token
	pos    int
}

func newParser(input string) (*parser, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	return &parser{tokens: tokens}, nil
}

func (p *parser) peek() token {
	if p.pos >= len(p.tokens) {
		return token{kind: tokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

// match потребляет токен-оператор, если он совпадает с одним из ops.
func (p *parser) match(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokenOp && t.kind != tokenIdent {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

// parseExpr: ||.
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.match("||"); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "||", left: left, right: right}
	}
}

// parseAnd: &&.
func (p *parser) parseAnd() (node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.match("&&"); !ok {
			return left, nil
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "&&", left: left, right: right}
	}
}

// parseComparison: ==, !=, >, >=, <, <=, contains, startsWith, endsWith, in.
func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	op, ok := p.match("==", "!=", ">=", "<=", ">", "<",
		"contains", "startsWith", "endsWith", "in")
	if !ok {
		return left, nil
	}
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: op, left: left, right: right}, nil
}

// parseAdditive: + и -.
func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.match("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

// parseMultiplicative: *, /, %.
func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.match("*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
}

// parseUnary: ! и унарный -.
func (p *parser) parseUnary() (node, error) {
	if op, ok := p.match("!", "-"); ok {
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, child: child}, nil
	}
	return p.parsePrimary()
}

// parsePrimary: литерал, путь, скобки, список.
func (p *parser) parsePrimary() (node, error) {
	t := p.peek()

	switch t.kind {
	case tokenNumber:
		p.next()
		return &literalNode{value: t.num}, nil

	case tokenString:
		p.next()
		return &literalNode{value: t.text}, nil

	case tokenIdent:
		p.next()
		switch t.text {
		case "true":
			return &literalNode{value: true}, nil
		case "false":
			return &literalNode{value: false}, nil
		case "null", "nil":
			return &literalNode{value: nil}, nil
		}
		if keywordOps[t.text] {
			return nil, fmt.Errorf("%w: operator %q without left operand", ErrParseExpr, t.text)
		}
		return &pathNode{path: t.text}, nil

	case tokenOp:
		switch t.text {
		case "(":
			p.next()
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, ok := p.match(")"); !ok {
				return nil, fmt.Errorf("%w: missing closing parenthesis", ErrParseExpr)
			}
			return inner, nil

		case "[":
			p.next()
			return p.parseList()
		}
	}

	return nil, fmt.Errorf("%w: unexpected %q", ErrParseExpr, t.text)
}

// parseList: [a, b, c] (открывающая скобка уже потреблена).
func (p *parser) parseList() (node, error) {
	var items []node
	if _, ok := p.match("]"); ok {
		return &listNode{}, nil
	}
	for {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		if _, ok := p.match(","); ok {
			continue
		}
		if _, ok := p.match("]"); ok {
			return &listNode{items: items}, nil
		}
		return nil, fmt.Errorf("%w: missing closing bracket", ErrParseExpr)
	}
}

// lex разбивает выражение на токены.
func lex(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0

	for i < len(runes) {
		r := runes[i]

		if unicode.IsSpace(r) {
			i++
			continue
		}

		// Число.
		if unicode.IsDigit(r) {
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrParseExpr, text)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, num: num})
			continue
		}

		// Строка в одинарных или двойных кавычках.
		if r == '\'' || r == '"' {
			quote := r
			i++
			var sb strings.Builder
			closed := false
			for i < len(runes) {
				if runes[i] == '\\' && i+1 < len(runes) {
					sb.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if runes[i] == quote {
					closed = true
					i++
					break
				}
				sb.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("%w: unterminated string", ErrParseExpr)
			}
			tokens = append(tokens, token{kind: tokenString, text: sb.String()})
			continue
		}

		// Идентификатор / dot-путь / ключевое слово.
		if unicode.IsLetter(r) || r == '_' {
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) ||
				runes[i] == '_' || runes[i] == '.') {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[start:i])})
			continue
		}

		// Двухсимвольные операторы.
		if i+1 < len(runes) {
			two := string(runes[i : i+2])
			switch two {
			case "==", "!=", ">=", "<=", "&&", "||":
				tokens = append(tokens, token{kind: tokenOp, text: two})
				i += 2
				continue
			}
		}

		// Односимвольные.
		switch r {
		case '>', '<', '!', '+', '-', '*', '/', '%', '(', ')', '[', ']', ',':
			tokens = append(tokens, token{kind: tokenOp, text: string(r)})
			i++
			continue
		}

		return nil, fmt.Errorf("%w: unexpected character %q", ErrParseExpr, string(r))
	}

	tokens = append(tokens, token{kind: tokenEOF})
	return tokens, nil
}
