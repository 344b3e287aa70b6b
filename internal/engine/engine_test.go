package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/coffersTech/emojisearch/internal/catalog"
	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/coffersTech/emojisearch/internal/pkg/colorutil"
	"github.com/coffersTech/emojisearch/internal/pkg/emojiql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func styleWith(hex string, lab colorutil.Lab) map[string]model.Style {
	return map[string]model.Style{
		"default": {
			ID:           "default",
			Group:        "Standard",
			ColorPalette: []model.Swatch{{Hex: hex, CIELAB: lab, Occurrences: 1}},
		},
	}
}

var (
	black = colorutil.Lab{0, 0, 0}
	red   = colorutil.Lab{53.23, 80.1, 67.22}
	blue  = colorutil.Lab{32.3, 79.19, -107.86}

	grinning = model.Emoji{ID: "emoji1", CLDR: "grinning face", Group: "Smileys & Emotion",
		Keywords: []string{"face", "smile", "happy"}, TTS: "grinning face",
		Styles: styleWith("#000000", black), DefaultStyle: "default"}
	sad = model.Emoji{ID: "emoji2", CLDR: "sad face", Group: "Smileys & Emotion",
		Keywords: []string{"face", "sad", "unhappy"}, TTS: "sad face",
		Styles: styleWith("#FF0000", red), DefaultStyle: "default"}
	apple = model.Emoji{ID: "emoji3", CLDR: "apple", Group: "Food & Drink",
		Keywords: []string{"fruit", "apple"}, TTS: "apple",
		Styles: styleWith("#0000FF", blue), DefaultStyle: "default"}
	shuffle = model.Emoji{ID: "emoji4", CLDR: "shuffle_tracks", Group: "Symbols",
		Keywords: []string{"fruit", "apple"}, TTS: "shuffle tracks",
		Styles: styleWith("#0000FF", blue), DefaultStyle: "default"}
)

type fakeCatalog struct {
	mu   sync.Mutex
	snap *catalog.Snapshot
	err  error
}

func (f *fakeCatalog) Snapshot(_ context.Context, family model.Family) (*catalog.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func (f *fakeCatalog) set(version uint64, emojis ...model.Emoji) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = &catalog.Snapshot{Family: model.FamilyNoto, Emojis: emojis, Version: version}
}

func newEngine() (*SearchEngine, *fakeCatalog) {
	fc := &fakeCatalog{}
	fc.set(1, shuffle, apple, sad, grinning)
	return NewSearchEngine(fc, nil, nil), fc
}

func ids(emojis []model.Emoji) []string {
	out := make([]string, len(emojis))
	for i, e := range emojis {
		out[i] = e.ID
	}
	return out
}

func TestSearch(t *testing.T) {
	se, _ := newEngine()
	ctx := context.Background()

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"emoji4", "emoji3", "emoji2", "emoji1"}},
		{"   ", []string{"emoji4", "emoji3", "emoji2", "emoji1"}},
		{`keyword:"face"`, []string{"emoji2", "emoji1"}},
		{`keyword:"fruit" & !id:"emoji4"`, []string{"emoji3"}},
		{`group:"Smileys & Emotion" | group:"Symbols"`, []string{"emoji4", "emoji2", "emoji1"}},
		{`color:"#FF0000"`, []string{"emoji2"}},
		{`color:"rgb(0, 0, 255)"`, []string{"emoji4", "emoji3"}},
		{`grinning`, []string{"emoji1"}},
		{`keyword:"nothing"`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := se.Search(ctx, tt.query, model.FamilyNoto)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	stats := se.Stats().Snapshot()
	assert.Equal(t, int64(len(tests)), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.EmptyResults)
	assert.Equal(t, int64(len(tests)), stats.FamilyCounts["NOTO"])
}

func TestSearchErrors(t *testing.T) {
	se, fc := newEngine()
	ctx := context.Background()

	_, err := se.Search(ctx, "keyword:", model.FamilyNoto)
	require.Error(t, err)
	assert.True(t, IsQueryError(err))

	_, err = se.Search(ctx, `"open`, model.FamilyNoto)
	require.Error(t, err)
	assert.True(t, IsQueryError(err))
	var te *emojiql.TokenizerError
	assert.True(t, errors.As(err, &te))

	_, err = se.Search(ctx, `mood:"happy"`, model.FamilyNoto)
	assert.ErrorIs(t, err, emojiql.ErrUnsupportedFilter)
	assert.False(t, IsQueryError(err))

	assert.Equal(t, int64(3), se.Stats().Snapshot().FailedSearches)

	fc.err = catalog.ErrUnknownFamily
	_, err = se.Search(ctx, "", model.FamilyNoto)
	assert.ErrorIs(t, err, catalog.ErrUnknownFamily)
}

func TestBlankSearchDoesNotShareCatalog(t *testing.T) {
	se, _ := newEngine()
	ctx := context.Background()

	got, err := se.Search(ctx, "", model.FamilyNoto)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	first := got[0].ID
	got[0].ID = "overwritten"

	again, err := se.Search(ctx, "  ", model.FamilyNoto)
	require.NoError(t, err)
	assert.Equal(t, first, again[0].ID)
}

func TestTextIndexFollowsCatalogVersion(t *testing.T) {
	se, fc := newEngine()
	ctx := context.Background()

	got, err := se.Search(ctx, "banana", model.FamilyNoto)
	require.NoError(t, err)
	assert.Empty(t, got)

	banana := model.Emoji{ID: "emoji5", CLDR: "banana", Group: "Food & Drink", Keywords: []string{"banana"}}
	fc.set(2, shuffle, apple, sad, grinning, banana)

	got, err = se.Search(ctx, "banana", model.FamilyNoto)
	require.NoError(t, err)
	assert.Equal(t, []string{"emoji5"}, ids(got))
}

func TestRun(t *testing.T) {
	se, fc := newEngine()
	ctx := context.Background()

	res, err := se.Run(ctx, Request{Family: model.FamilyNoto, Sort: SortDeltaE94, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, []string{"emoji1", "emoji2"}, ids(res.Emojis))

	res, err = se.Run(ctx, Request{Family: model.FamilyNoto, GroupByGroup: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"emoji3", "emoji1", "emoji2", "emoji4"}, ids(res.Emojis))

	res, err = se.Run(ctx, Request{Query: `keyword:"fruit"`, Family: model.FamilyNoto, Sort: SortDefault})
	require.NoError(t, err)
	assert.Equal(t, []string{"emoji3", "emoji4"}, ids(res.Emojis))

	// the catalog itself must not be reordered
	assert.Equal(t, []string{"emoji4", "emoji3", "emoji2", "emoji1"}, ids(fc.snap.Emojis))

	_, err = se.Run(ctx, Request{Family: model.FamilyNoto, Sort: "random"})
	assert.ErrorIs(t, err, ErrUnknownSort)
}

func TestFacets(t *testing.T) {
	se, _ := newEngine()

	facets, err := se.Facets(context.Background(), "", model.FamilyNoto)
	require.NoError(t, err)
	assert.Equal(t, []GroupFacet{
		{Group: "Food & Drink", Count: 1},
		{Group: "Smileys & Emotion", Count: 2},
		{Group: "Symbols", Count: 1},
	}, facets)

	facets, err = se.Facets(context.Background(), `keyword:"sad"`, model.FamilyNoto)
	require.NoError(t, err)
	assert.Equal(t, []GroupFacet{{Group: "Smileys & Emotion", Count: 1}}, facets)

	_, err = se.Facets(context.Background(), "(", model.FamilyNoto)
	assert.True(t, IsQueryError(err))
}

func TestExplain(t *testing.T) {
	tree, err := Explain(`keyword:"face" & !group:"Symbols"`)
	require.NoError(t, err)
	assert.Equal(t, `AND(keyword:"face", NOT(group:"Symbols"))`, tree)

	_, err = Explain("")
	assert.Error(t, err)
}
