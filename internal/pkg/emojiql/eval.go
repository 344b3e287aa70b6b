package emojiql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/coffersTech/emojisearch/internal/pkg/colorutil"
)

// ColorSimilarityTolerance is the largest Delta E94 distance at which a swatch
// still counts as the queried color. Differences below it are hard to see.
const ColorSimilarityTolerance = 9.0

// Filter names understood by the evaluator.
const (
	FilterKeyword = "keyword"
	FilterFamily  = "family"
	FilterID      = "id"
	FilterGroup   = "group"
	FilterStyle   = "style"
	FilterColor   = colorFilterName
)

// ErrNoTextIndex is returned when a free-text term is evaluated without an index.
var ErrNoTextIndex = errors.New("free-text search requires a text index")

// TextSearcher is the full-text index consulted for free-text terms. Search
// returns, per indexed field, the ids (CLDR names) of matching documents.
type TextSearcher interface {
	Search(query string) (map[string][]string, error)
}

// Evaluator applies a query tree to a corpus snapshot.
// It never modifies the corpus and keeps no state between calls.
type Evaluator struct {
	index TextSearcher
}

// NewEvaluator creates an Evaluator. index may be nil when free-text terms
// are not expected.
func NewEvaluator(index TextSearcher) *Evaluator {
	return &Evaluator{index: index}
}

// corpus maps each record id to the position of its first occurrence, so set
// operations on positions behave as set operations on ids.
type corpus struct {
	records []model.Emoji
	slot    []uint32
	all     *roaring.Bitmap
}

func newCorpus(records []model.Emoji) *corpus {
	c := &corpus{
		records: records,
		slot:    make([]uint32, len(records)),
		all:     roaring.New(),
	}
	first := make(map[string]uint32, len(records))
	for i, r := range records {
		pos, ok := first[r.ID]
		if !ok {
			pos = uint32(i)
			first[r.ID] = pos
		}
		c.slot[i] = pos
		c.all.Add(pos)
	}
	return c
}

func (c *corpus) where(pred func(*model.Emoji) bool) *roaring.Bitmap {
	bm := roaring.New()
	for i := range c.records {
		if pred(&c.records[i]) {
			bm.Add(c.slot[i])
		}
	}
	return bm
}

// Evaluate returns the records of corpus matched by node, in corpus order.
// A nil node matches everything.
func (e *Evaluator) Evaluate(node Node, records []model.Emoji) ([]model.Emoji, error) {
	c := newCorpus(records)
	if node == nil {
		return collect(c, c.all), nil
	}

	bm, err := e.eval(node, c)
	if err != nil {
		return nil, err
	}
	return collect(c, bm), nil
}

func collect(c *corpus, bm *roaring.Bitmap) []model.Emoji {
	out := make([]model.Emoji, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, c.records[it.Next()])
	}
	return out
}

// eval evaluates every operand against the whole corpus, never against the
// result of a sibling.
func (e *Evaluator) eval(node Node, c *corpus) (*roaring.Bitmap, error) {
	switch n := node.(type) {
	case And:
		left, right, err := e.evalPair(n.Left, n.Right, c)
		if err != nil {
			return nil, err
		}
		return roaring.And(left, right), nil
	case Or:
		left, right, err := e.evalPair(n.Left, n.Right, c)
		if err != nil {
			return nil, err
		}
		return roaring.Or(left, right), nil
	case Not:
		inner, err := e.eval(n.Expr, c)
		if err != nil {
			return nil, err
		}
		return roaring.AndNot(c.all, inner), nil
	case Group:
		return e.eval(n.Expr, c)
	case Filter:
		return evalFilter(n, c)
	case ColorFilter:
		return evalColor(n, c), nil
	case SearchFilter:
		return e.evalSearch(n, c)
	default:
		return nil, fmt.Errorf("unhandled expression %T", node)
	}
}

func (e *Evaluator) evalPair(l, r Node, c *corpus) (*roaring.Bitmap, *roaring.Bitmap, error) {
	left, err := e.eval(l, c)
	if err != nil {
		return nil, nil, err
	}
	right, err := e.eval(r, c)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func evalFilter(f Filter, c *corpus) (*roaring.Bitmap, error) {
	switch f.Name {
	case FilterKeyword:
		return c.where(func(r *model.Emoji) bool {
			for _, k := range r.Keywords {
				if strings.EqualFold(k, f.Value) {
					return true
				}
			}
			return false
		}), nil
	case FilterFamily:
		return c.where(func(r *model.Emoji) bool {
			return strings.EqualFold(r.Family, f.Value)
		}), nil
	case FilterID:
		return c.where(func(r *model.Emoji) bool {
			return r.ID == f.Value
		}), nil
	case FilterGroup:
		return c.where(func(r *model.Emoji) bool {
			return strings.EqualFold(r.Group, f.Value)
		}), nil
	case FilterStyle:
		return c.where(func(r *model.Emoji) bool {
			for _, s := range r.Styles {
				if strings.EqualFold(s.Label, f.Value) ||
					strings.EqualFold(s.ID, f.Value) ||
					strings.EqualFold(s.Group, f.Value) {
					return true
				}
			}
			return false
		}), nil
	default:
		return nil, &UnsupportedFilterError{Name: f.Name}
	}
}

// ResolveColor turns a color literal into an RGB triple. Malformed hex yields ok=false.
func ResolveColor(v ColorValue) (colorutil.RGB, bool) {
	switch c := v.(type) {
	case HexColor:
		return colorutil.HexToRGB(c.Hex)
	case RGBColor:
		return colorutil.RGB{c.R, c.G, c.B}, true
	default:
		return colorutil.RGB{}, false
	}
}

func evalColor(f ColorFilter, c *corpus) *roaring.Bitmap {
	rgb, ok := ResolveColor(f.Value)
	if !ok {
		return roaring.New()
	}
	target := rgb.Lab()

	return c.where(func(r *model.Emoji) bool {
		for _, s := range r.Styles {
			for _, sw := range s.ColorPalette {
				if colorutil.DeltaE94(sw.CIELAB, target) <= ColorSimilarityTolerance {
					return true
				}
			}
		}
		return false
	})
}

func (e *Evaluator) evalSearch(f SearchFilter, c *corpus) (*roaring.Bitmap, error) {
	if e.index == nil {
		return nil, ErrNoTextIndex
	}
	hits, err := e.index.Search(f.Query)
	if err != nil {
		return nil, fmt.Errorf("text search %q: %w", f.Query, err)
	}

	matched := make(map[string]struct{})
	for _, ids := range hits {
		for _, id := range ids {
			matched[model.NormalizeCLDR(id)] = struct{}{}
		}
	}

	return c.where(func(r *model.Emoji) bool {
		_, ok := matched[model.NormalizeCLDR(r.CLDR)]
		return ok
	}), nil
}
