package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/coffersTech/emojisearch/internal/pkg/colorutil"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort orders accepted by ParseSort.
const (
	SortDefault  = "default"
	SortDeltaE94 = "deltaE94"
)

// ErrUnknownSort is returned for sort names other than SortDefault and SortDeltaE94.
var ErrUnknownSort = errors.New("unknown sort order")

// deltaE94Reference is the anchor every dominant color is measured from.
var deltaE94Reference = colorutil.Lab{0, 0, 0}

// Comparator orders two emojis like strings.Compare.
type Comparator func(a, b *model.Emoji) int

// ParseSort resolves a sort name. The empty name is SortDefault.
func ParseSort(name string) (string, error) {
	switch name {
	case "", SortDefault:
		return SortDefault, nil
	case SortDeltaE94:
		return SortDeltaE94, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSort, name)
}

// CLDRComparator orders by CLDR name using English collation.
// The returned comparator is not safe for concurrent use.
func CLDRComparator() Comparator {
	c := collate.New(language.English)
	return func(a, b *model.Emoji) int {
		return c.CompareString(a.CLDR, b.CLDR)
	}
}

// DeltaE94Distance measures the dominant color of the emoji's default style
// from black. Emojis without a palette are infinitely far.
func DeltaE94Distance(e *model.Emoji) float64 {
	style, ok := e.Default()
	if !ok {
		return math.Inf(1)
	}
	sw, ok := style.DominantSwatch()
	if !ok {
		return math.Inf(1)
	}
	return colorutil.DeltaE94(deltaE94Reference, sw.CIELAB)
}

// DeltaE94Comparator orders darkest dominant color first.
func DeltaE94Comparator(a, b *model.Emoji) int {
	da, db := DeltaE94Distance(a), DeltaE94Distance(b)
	switch {
	case da < db:
		return -1
	case da > db:
		return 1
	}
	return 0
}

// GroupComparator orders by group name, byte-wise.
func GroupComparator(a, b *model.Emoji) int {
	switch {
	case a.Group > b.Group:
		return 1
	case a.Group < b.Group:
		return -1
	}
	return 0
}

// Sort returns a sorted copy of emojis. With byGroup the result is
// additionally stable-sorted by group so each group keeps the inner order.
func Sort(emojis []model.Emoji, order string, byGroup bool) []model.Emoji {
	out := make([]model.Emoji, len(emojis))
	copy(out, emojis)

	var cmp Comparator
	switch order {
	case SortDeltaE94:
		cmp = DeltaE94Comparator
	default:
		cmp = CLDRComparator()
	}

	sort.SliceStable(out, func(i, j int) bool { return cmp(&out[i], &out[j]) < 0 })
	if byGroup {
		sort.SliceStable(out, func(i, j int) bool { return GroupComparator(&out[i], &out[j]) < 0 })
	}
	return out
}
