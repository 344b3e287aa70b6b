package emojiql

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFilter is matched by every UnsupportedFilterError.
var ErrUnsupportedFilter = errors.New("unsupported filter")

// TokenizerError reports malformed lexical input.
type TokenizerError struct {
	Message string
	Offset  int // byte offset where the problem starts
}

func (e *TokenizerError) Error() string {
	return e.Message
}

// QueryParserError reports a malformed query. Tokenizer failures are wrapped
// so callers only need to check for this type.
type QueryParserError struct {
	Message string
	cause   error
}

func (e *QueryParserError) Error() string {
	return e.Message
}

func (e *QueryParserError) Unwrap() error { return e.cause }

func parserErrorf(format string, args ...any) *QueryParserError {
	return &QueryParserError{Message: fmt.Sprintf(format, args...)}
}

// UnsupportedFilterError is returned by the evaluator for filter names it
// does not know. The parser accepts any name.
type UnsupportedFilterError struct {
	Name string
}

func (e *UnsupportedFilterError) Error() string {
	return fmt.Sprintf("unsupported filter name: %q", e.Name)
}

func (e *UnsupportedFilterError) Unwrap() error { return ErrUnsupportedFilter }
