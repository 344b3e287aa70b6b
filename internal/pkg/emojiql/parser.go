package emojiql

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

const colorFilterName = "color"

// rgbPattern may match anywhere in the value, so padding around it is ignored.
var rgbPattern = regexp.MustCompile(`(?i)rgb\((\d+),\s?(\d+),\s?(\d+)\)`)

// Parser is a recursive-descent parser over the token stream.
//
//	expression := term ( (AND|OR) term )*
//	term       := NOT term | '(' expression ')' | SEARCH_FILTER_STRING | filterList
//	filterList := ( FILTER_NAME COLON FILTER_VALUE )+
//
// AND and OR share one precedence level and associate to the left.
type Parser struct {
	tokenizer Tokenizer
	tokens    []Token
	cursor    int
}

// NewParser creates a Parser. A nil tokenizer selects the default Lexer.
func NewParser(tokenizer Tokenizer) *Parser {
	if tokenizer == nil {
		tokenizer = NewLexer()
	}
	return &Parser{tokenizer: tokenizer}
}

// Parse parses the input string and returns the root of the query tree.
func Parse(query string) (Node, error) {
	return NewParser(nil).Parse(query)
}

// Parse parses query. Every failure is a *QueryParserError.
func (p *Parser) Parse(query string) (Node, error) {
	tokens, err := p.tokenizer.Tokenize(query)
	if err != nil {
		var te *TokenizerError
		if !errors.As(err, &te) {
			return nil, err
		}
		return nil, &QueryParserError{Message: te.Message, cause: err}
	}

	p.tokens = tokens
	p.cursor = 0

	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.unexpected(TokenEOF)
	}
	return root, nil
}

func (p *Parser) parseExpression() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.match(TokenAnd, TokenOr) {
		op := p.previous().Type
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if op == TokenAnd {
			left = And{Left: left, Right: right}
		} else {
			left = Or{Left: left, Right: right}
		}
	}

	return left, nil
}

func (p *Parser) parseTerm() (Node, error) {
	if p.match(TokenNot) {
		expr, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return Not{Expr: expr}, nil
	}

	if p.match(TokenLParen) {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(TokenRParen); err != nil {
			return nil, err
		}
		return Group{Expr: expr}, nil
	}

	if p.match(TokenSearchString) {
		return SearchFilter{Query: p.previous().Value}, nil
	}

	return p.parseFilterList()
}

// parseFilterList folds adjacent filters into a left-deep AND chain:
// a:"1" b:"2" c:"3" is AND(AND(a, b), c).
func (p *Parser) parseFilterList() (Node, error) {
	var filters []Node

	for p.match(TokenFilterName) {
		name := p.previous().Value
		if _, err := p.consume(TokenColon); err != nil {
			return nil, err
		}
		value, err := p.consume(TokenFilterValue)
		if err != nil {
			return nil, err
		}

		if name != colorFilterName {
			filters = append(filters, Filter{Name: name, Value: value.Value})
			continue
		}

		color, err := parseColorValue(value.Value)
		if err != nil {
			return nil, err
		}
		filters = append(filters, ColorFilter{Name: colorFilterName, Value: color})
	}

	if len(filters) == 0 {
		return nil, parserErrorf("Unexpected token or empty filter list")
	}

	expr := filters[0]
	for _, f := range filters[1:] {
		expr = And{Left: expr, Right: f}
	}
	return expr, nil
}

func parseColorValue(value string) (ColorValue, error) {
	if strings.HasPrefix(value, "#") {
		return HexColor{Hex: value}, nil
	}

	m := rgbPattern.FindStringSubmatch(value)
	if m == nil {
		return nil, parserErrorf("Unexpected color value: %s", value)
	}

	var channels [3]int
	for i := range channels {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return nil, parserErrorf("Unexpected color value: %s", value)
		}
		channels[i] = n
	}
	return RGBColor{R: channels[0], G: channels[1], B: channels[2]}, nil
}

func (p *Parser) atEnd() bool {
	return p.cursor >= len(p.tokens)
}

func (p *Parser) check(types ...TokenType) bool {
	if p.atEnd() {
		return false
	}
	for _, t := range types {
		if p.tokens[p.cursor].Type == t {
			return true
		}
	}
	return false
}

func (p *Parser) match(types ...TokenType) bool {
	if p.check(types...) {
		p.cursor++
		return true
	}
	return false
}

func (p *Parser) previous() Token {
	return p.tokens[p.cursor-1]
}

func (p *Parser) consume(t TokenType) (Token, error) {
	if p.check(t) {
		p.cursor++
		return p.previous(), nil
	}
	return Token{}, p.unexpected(t)
}

func (p *Parser) unexpected(want TokenType) *QueryParserError {
	got := TokenEOF.String()
	if !p.atEnd() {
		got = p.tokens[p.cursor].Type.String()
	}
	return parserErrorf("Expected token of type %s, but got %s", want, got)
}
