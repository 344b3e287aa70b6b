package emojiql

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenAnd
	TokenOr
	TokenNot
	TokenLParen
	TokenRParen
	TokenColon
	TokenFilterName
	TokenFilterValue
	TokenSearchString
)

var tokenTypeNames = [...]string{
	TokenEOF:          "EOF",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenNot:          "NOT",
	TokenLParen:       "LEFT_PARENTHESIS",
	TokenRParen:       "RIGHT_PARENTHESIS",
	TokenColon:        "COLON",
	TokenFilterName:   "FILTER_NAME",
	TokenFilterValue:  "FILTER_VALUE",
	TokenSearchString: "SEARCH_FILTER_STRING",
}

func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Type, t.Value)
}

// Tokenizer turns a query string into tokens.
type Tokenizer interface {
	Tokenize(query string) ([]Token, error)
}

// Lexer tokenizes query input. The zero value is ready to use.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a new Lexer.
func NewLexer() *Lexer {
	return &Lexer{}
}

// Tokenize scans the whole query left to right.
func Tokenize(query string) ([]Token, error) {
	return NewLexer().Tokenize(query)
}

// Tokenize implements Tokenizer. State from earlier calls is discarded.
func (l *Lexer) Tokenize(query string) ([]Token, error) {
	l.input = query
	l.pos = 0
	l.tokens = make([]Token, 0, 8)

	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		switch {
		case isSpace(ch):
			l.pos++
		case ch == '(':
			l.emitChar(TokenLParen)
		case ch == ')':
			l.emitChar(TokenRParen)
		case ch == ':':
			l.emitChar(TokenColon)
		case ch == '&':
			l.emitChar(TokenAnd)
		case ch == '|':
			l.emitChar(TokenOr)
		case ch == '!':
			l.emitChar(TokenNot)
		case ch == '"':
			tok, err := l.readQuoted()
			if err != nil {
				return nil, err
			}
			l.tokens = append(l.tokens, tok)
		default:
			l.tokens = append(l.tokens, l.readBare())
		}
	}

	return l.tokens, nil
}

func (l *Lexer) emitChar(t TokenType) {
	l.tokens = append(l.tokens, Token{Type: t, Value: l.input[l.pos : l.pos+1]})
	l.pos++
}

func (l *Lexer) readQuoted() (Token, error) {
	l.pos++ // skip opening quote
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '"' {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return Token{}, &TokenizerError{Message: "Unterminated quoted string", Offset: start - 1}
	}
	value := l.input[start:l.pos]
	l.pos++ // skip closing quote
	return Token{Type: TokenFilterValue, Value: value}, nil
}

// readBare reads a filter name or a free-text run. Free text keeps absorbing
// whitespace-separated words so it reaches the index whole; it stops before a
// reserved character, a standalone '&', or a word that names a filter.
func (l *Lexer) readBare() Token {
	end := l.scanWord(l.pos)
	if end < len(l.input) && l.input[end] == ':' {
		tok := Token{Type: TokenFilterName, Value: l.input[l.pos:end]}
		l.pos = end
		return tok
	}

	start := l.pos
	for {
		next := end
		for next < len(l.input) && isSpace(l.input[next]) {
			next++
		}
		if next == end || next >= len(l.input) || isReserved(l.input[next]) || l.input[next] == '&' {
			break
		}
		wordEnd := l.scanWord(next)
		if wordEnd < len(l.input) && l.input[wordEnd] == ':' {
			break
		}
		end = wordEnd
	}

	l.pos = end
	return Token{Type: TokenSearchString, Value: strings.TrimSpace(l.input[start:end])}
}

// scanWord returns the offset just past the word starting at from.
func (l *Lexer) scanWord(from int) int {
	i := from
	for i < len(l.input) && !isReserved(l.input[i]) && !isSpace(l.input[i]) {
		i++
	}
	return i
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n'
}

// isReserved reports whether ch ends a bare word. '&' is absent because
// it only acts as an operator where a token starts.
func isReserved(ch byte) bool {
	switch ch {
	case ':', '(', ')', '!', '|', '"':
		return true
	}
	return false
}
