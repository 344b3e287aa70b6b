package engine

import (
	"context"
	"sort"

	"github.com/coffersTech/emojisearch/internal/model"
)

// GroupFacet is the number of matches within one group.
type GroupFacet struct {
	Group string `json:"group"`
	Count int    `json:"count"`
}

// Facets counts the matches of query per group, ordered by group name.
func (se *SearchEngine) Facets(ctx context.Context, query string, family model.Family) ([]GroupFacet, error) {
	emojis, err := se.Search(ctx, query, family)
	if err != nil {
		return nil, err
	}
	return CountGroups(emojis), nil
}

// CountGroups aggregates emojis by group.
func CountGroups(emojis []model.Emoji) []GroupFacet {
	buckets := make(map[string]int)
	for i := range emojis {
		buckets[emojis[i].Group]++
	}

	facets := make([]GroupFacet, 0, len(buckets))
	for g, c := range buckets {
		facets = append(facets, GroupFacet{Group: g, Count: c})
	}
	sort.Slice(facets, func(i, j int) bool { return facets[i].Group < facets[j].Group })
	return facets
}
