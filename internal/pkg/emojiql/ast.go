package emojiql

import (
	"fmt"
	"strconv"
)

// Node is implemented by every expression in the query tree.
// The set of implementations is closed; dispatch with a type switch.
type Node interface {
	fmt.Stringer
	node()
}

// And intersects both operands.
type And struct {
	Left  Node
	Right Node
}

// Or unions both operands.
type Or struct {
	Left  Node
	Right Node
}

// Not complements its operand against the corpus.
type Not struct {
	Expr Node
}

// Group is an explicit parenthesization. It is semantically transparent.
type Group struct {
	Expr Node
}

// Filter is an exact-match field filter such as keyword:"face".
type Filter struct {
	Name  string
	Value string
}

// ColorFilter matches emojis with a swatch perceptually close to Value.
type ColorFilter struct {
	Name  string // always "color"
	Value ColorValue
}

// SearchFilter is a free-text query answered by the full-text index.
type SearchFilter struct {
	Query string
}

func (And) node()          {}
func (Or) node()           {}
func (Not) node()          {}
func (Group) node()        {}
func (Filter) node()       {}
func (ColorFilter) node()  {}
func (SearchFilter) node() {}

func (n And) String() string   { return fmt.Sprintf("AND(%s, %s)", n.Left, n.Right) }
func (n Or) String() string    { return fmt.Sprintf("OR(%s, %s)", n.Left, n.Right) }
func (n Not) String() string   { return fmt.Sprintf("NOT(%s)", n.Expr) }
func (n Group) String() string { return fmt.Sprintf("GROUP(%s)", n.Expr) }
func (n Filter) String() string {
	return n.Name + ":" + strconv.Quote(n.Value)
}
func (n ColorFilter) String() string {
	return n.Name + ":" + strconv.Quote(n.Value.String())
}
func (n SearchFilter) String() string { return "SEARCH(" + strconv.Quote(n.Query) + ")" }

// ColorValue is the decoded value of a color filter: HexColor or RGBColor.
type ColorValue interface {
	fmt.Stringer
	colorValue()
}

// HexColor holds the literal as written, including the leading '#'.
type HexColor struct {
	Hex string
}

// RGBColor holds an rgb(r, g, b) literal.
type RGBColor struct {
	R, G, B int
}

func (HexColor) colorValue() {}
func (RGBColor) colorValue() {}

func (c HexColor) String() string { return c.Hex }
func (c RGBColor) String() string { return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B) }
