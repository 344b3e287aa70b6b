package emojiql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimple(t *testing.T) {
	tests := []struct {
		input    string
		expected Node
	}{
		{"Anyone reading this?", SearchFilter{Query: "Anyone reading this?"}},
		{`FILTER_NAME_name:"Hi"`, Filter{Name: "FILTER_NAME_name", Value: "Hi"}},
		{`keyword:"face"`, Filter{Name: "keyword", Value: "face"}},
		{`!keyword:"face"`, Not{Expr: Filter{Name: "keyword", Value: "face"}}},
		{`!!smile`, Not{Expr: Not{Expr: SearchFilter{Query: "smile"}}}},
		{`color:"#FF0000"`, ColorFilter{Name: "color", Value: HexColor{Hex: "#FF0000"}}},
		{`color:"rgb(1,2,3)"`, ColorFilter{Name: "color", Value: RGBColor{R: 1, G: 2, B: 3}}},
		{`color:"RGB(10, 20, 30)"`, ColorFilter{Name: "color", Value: RGBColor{R: 10, G: 20, B: 30}}},
		{`color:" rgb(1, 2, 3) "`, ColorFilter{Name: "color", Value: RGBColor{R: 1, G: 2, B: 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, node)
		})
	}
}

func TestParseCompound(t *testing.T) {
	expected := And{
		Left:  Filter{Name: "category", Value: "Family Fun"},
		Right: Filter{Name: "family", Value: "Fluent UI"},
	}

	explicit, err := Parse(`category:"Family Fun" & family:"Fluent UI"`)
	require.NoError(t, err)
	assert.Equal(t, expected, explicit)

	implicit, err := Parse(`category:"Family Fun" family:"Fluent UI"`)
	require.NoError(t, err)
	assert.Equal(t, expected, implicit)
}

func TestParseImplicitAndIsLeftDeep(t *testing.T) {
	node, err := Parse(`a:"1" b:"2" c:"3"`)
	require.NoError(t, err)
	assert.Equal(t, And{
		Left:  And{Left: Filter{Name: "a", Value: "1"}, Right: Filter{Name: "b", Value: "2"}},
		Right: Filter{Name: "c", Value: "3"},
	}, node)
}

func TestParseParentheses(t *testing.T) {
	node, err := Parse(`(category:"A" | category:"B") & family:"C"`)
	require.NoError(t, err)
	assert.Equal(t, And{
		Left: Group{Expr: Or{
			Left:  Filter{Name: "category", Value: "A"},
			Right: Filter{Name: "category", Value: "B"},
		}},
		Right: Filter{Name: "family", Value: "C"},
	}, node)
}

func TestParseEqualPrecedence(t *testing.T) {
	node, err := Parse(`a:"1" | b:"2" & c:"3"`)
	require.NoError(t, err)
	assert.Equal(t, And{
		Left:  Or{Left: Filter{Name: "a", Value: "1"}, Right: Filter{Name: "b", Value: "2"}},
		Right: Filter{Name: "c", Value: "3"},
	}, node)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{``, "Unexpected token or empty filter list"},
		{`& keyword:"a"`, "Unexpected token or empty filter list"},
		{`keyword:"a" &`, "Unexpected token or empty filter list"},
		{`(keyword:"a"`, "Expected token of type RIGHT_PARENTHESIS, but got EOF"},
		{`keyword:"a")`, "Expected token of type EOF, but got RIGHT_PARENTHESIS"},
		{`keyword:face`, "Expected token of type FILTER_VALUE, but got SEARCH_FILTER_STRING"},
		{`keyword:"a" smile`, "Expected token of type EOF, but got SEARCH_FILTER_STRING"},
		{`color:"red"`, "Unexpected color value: red"},
		{`color:"rgb(1;2;3)"`, "Unexpected color value: rgb(1;2;3)"},
		{`keyword:"oops`, "Unterminated quoted string"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)

			var pe *QueryParserError
			require.True(t, errors.As(err, &pe), "got %T", err)
			assert.Equal(t, tt.message, pe.Message)
		})
	}
}

func TestParseWrapsTokenizerError(t *testing.T) {
	_, err := Parse(`keyword:"oops`)

	var te *TokenizerError
	assert.True(t, errors.As(err, &te))
}

type stubTokenizer struct {
	tokens []Token
	err    error
}

func (s stubTokenizer) Tokenize(string) ([]Token, error) { return s.tokens, s.err }

func TestParserCustomTokenizer(t *testing.T) {
	p := NewParser(stubTokenizer{tokens: []Token{tok(TokenSearchString, "stub")}})
	node, err := p.Parse("ignored")
	require.NoError(t, err)
	assert.Equal(t, SearchFilter{Query: "stub"}, node)

	boom := errors.New("boom")
	_, err = NewParser(stubTokenizer{err: boom}).Parse("x")
	assert.ErrorIs(t, err, boom)
}

func TestNodeString(t *testing.T) {
	node, err := Parse(`!(keyword:"a" | color:"rgb(1, 2, 3)") & cat`)
	require.NoError(t, err)
	assert.Equal(t, `AND(NOT(GROUP(OR(keyword:"a", color:"rgb(1, 2, 3)"))), SEARCH("cat"))`, node.String())
}
