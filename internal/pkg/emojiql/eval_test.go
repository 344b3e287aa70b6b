package emojiql

import (
	"errors"
	"testing"

	"github.com/coffersTech/emojisearch/internal/model"
	"github.com/coffersTech/emojisearch/internal/pkg/colorutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func swatch(hex string, lab colorutil.Lab) model.Swatch {
	rgb, _ := colorutil.HexToRGB(hex)
	return model.Swatch{Hex: hex, RGB: rgb, CIELAB: lab, Occurrences: 1}
}

func fixtures() []model.Emoji {
	defaultStyle := func(sw model.Swatch) map[string]model.Style {
		return map[string]model.Style{
			"default": {ID: "default", Label: "Default Emoji Style", Group: "Standard", ColorPalette: []model.Swatch{sw}},
		}
	}
	return []model.Emoji{
		{
			ID: "emoji1", CLDR: "grinning face", Group: "Smileys & Emotion",
			Keywords: []string{"face", "smile", "happy"}, TTS: "grinning face", Family: "FLUENT_UI",
			Styles: defaultStyle(swatch("#000000", colorutil.Lab{0, 0, 0})), DefaultStyle: "default",
		},
		{
			ID: "emoji2", CLDR: "sad face", Group: "Smileys & Emotion",
			Keywords: []string{"face", "sad", "unhappy"}, TTS: "sad face", Family: "FLUENT_UI",
			Styles: defaultStyle(swatch("#FF0000", colorutil.Lab{53.23, 80.1, 67.22})), DefaultStyle: "default",
		},
		{
			ID: "emoji3", CLDR: "apple", Group: "Food & Drink",
			Keywords: []string{"fruit", "apple"}, TTS: "apple", Family: "FLUENT_UI",
			Styles: defaultStyle(swatch("#0000FF", colorutil.Lab{32.3, 79.19, -107.86})), DefaultStyle: "default",
		},
		{
			ID: "emoji4", CLDR: "shuffle_tracks", Group: "Symbols",
			Keywords: []string{"fruit", "apple"}, TTS: "shuffle tracks", Family: "FLUENT_UI",
			Styles: map[string]model.Style{
				"alt": {ID: "alt", Label: "Alt Emoji Style", Group: "Alternative",
					ColorPalette: []model.Swatch{swatch("#333333", colorutil.Lab{21.2, 0, 0})}},
			},
			DefaultStyle: "alt",
		},
	}
}

func ids(records []model.Emoji) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

type mapIndex map[string][]string

func (m mapIndex) Search(query string) (map[string][]string, error) {
	if ids, ok := m[query]; ok {
		return map[string][]string{"tts": ids}, nil
	}
	return map[string][]string{}, nil
}

func evalQuery(t *testing.T, e *Evaluator, query string) []string {
	t.Helper()
	node, err := Parse(query)
	require.NoError(t, err)
	res, err := e.Evaluate(node, fixtures())
	require.NoError(t, err)
	return ids(res)
}

func TestEvaluateFilters(t *testing.T) {
	e := NewEvaluator(nil)

	tests := []struct {
		query    string
		expected []string
	}{
		{`keyword:"face"`, []string{"emoji1", "emoji2"}},
		{`keyword:"FACE"`, []string{"emoji1", "emoji2"}},
		{`keyword:"fac"`, []string{}},
		{`family:"fluent_ui"`, []string{"emoji1", "emoji2", "emoji3", "emoji4"}},
		{`id:"emoji4"`, []string{"emoji4"}},
		{`id:"EMOJI4"`, []string{}},
		{`group:"food & drink"`, []string{"emoji3"}},
		{`style:"alt"`, []string{"emoji4"}},
		{`style:"alt emoji style"`, []string{"emoji4"}},
		{`style:"standard"`, []string{"emoji1", "emoji2", "emoji3"}},
		{`keyword:"face" & keyword:"smile"`, []string{"emoji1"}},
		{`keyword:"face" keyword:"smile"`, []string{"emoji1"}},
		{`keyword:"face" | keyword:"smile"`, []string{"emoji1", "emoji2"}},
		{`!keyword:"face"`, []string{"emoji3", "emoji4"}},
		{`(keyword:"sad" | keyword:"apple") & !id:"emoji4"`, []string{"emoji2", "emoji3"}},
		{`keyword:"face" & !keyword:"face"`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.expected, evalQuery(t, e, tt.query))
		})
	}
}

func TestEvaluateBranchesSeeWholeCorpus(t *testing.T) {
	e := NewEvaluator(nil)
	// The NOT on the right must complement against the corpus, not the left result.
	got := evalQuery(t, e, `keyword:"fruit" | !keyword:"fruit"`)
	assert.Equal(t, []string{"emoji1", "emoji2", "emoji3", "emoji4"}, got)
}

func TestEvaluateColor(t *testing.T) {
	e := NewEvaluator(nil)

	tests := []struct {
		query    string
		expected []string
	}{
		{`color:"#000000"`, []string{"emoji1"}},
		{`color:"000000"`, []string{}}, // no leading #, rejected by the parser
		{`color:"rgb(255, 0, 0)"`, []string{"emoji2"}},
		{`color:"#0000ff"`, []string{"emoji3"}},
		{`color:"#333333"`, []string{"emoji4"}},
		{`color:"#zzzzzz"`, []string{}},
		{`color:"#000000" | color:"#333333"`, []string{"emoji1", "emoji4"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			node, err := Parse(tt.query)
			if err != nil {
				var pe *QueryParserError
				require.ErrorAs(t, err, &pe)
				assert.Empty(t, tt.expected)
				return
			}
			res, err := e.Evaluate(node, fixtures())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(res))
		})
	}
}

func TestEvaluateColorTolerance(t *testing.T) {
	near := model.Emoji{ID: "near", Styles: map[string]model.Style{
		"s": {ColorPalette: []model.Swatch{{CIELAB: colorutil.Lab{8.9, 0, 0}}}},
	}}
	far := model.Emoji{ID: "far", Styles: map[string]model.Style{
		"s": {ColorPalette: []model.Swatch{{CIELAB: colorutil.Lab{9.1, 0, 0}}}},
	}}
	second := model.Emoji{ID: "second", Styles: map[string]model.Style{
		"s": {ColorPalette: []model.Swatch{{CIELAB: colorutil.Lab{60, 40, 40}}, {CIELAB: colorutil.Lab{1, 0, 0}}}},
	}}

	res, err := NewEvaluator(nil).Evaluate(ColorFilter{Name: "color", Value: HexColor{Hex: "#000000"}},
		[]model.Emoji{near, far, second})
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "second"}, ids(res))
}

func TestEvaluateSearch(t *testing.T) {
	e := NewEvaluator(mapIndex{
		"face":  {"grinning face", "Sad-Face"},
		"track": {"shuffle tracks"},
	})

	assert.Equal(t, []string{"emoji1", "emoji2"}, evalQuery(t, e, "face"))
	assert.Equal(t, []string{"emoji4"}, evalQuery(t, e, "track"))
	assert.Equal(t, []string{"emoji1"}, evalQuery(t, e, `face & keyword:"happy"`))
	assert.Equal(t, []string{}, evalQuery(t, e, "nothing"))
}

func TestEvaluateSearchWithoutIndex(t *testing.T) {
	_, err := NewEvaluator(nil).Evaluate(SearchFilter{Query: "x"}, fixtures())
	assert.ErrorIs(t, err, ErrNoTextIndex)
}

type failingIndex struct{}

func (failingIndex) Search(string) (map[string][]string, error) { return nil, errors.New("index down") }

func TestEvaluateSearchIndexError(t *testing.T) {
	_, err := NewEvaluator(failingIndex{}).Evaluate(SearchFilter{Query: "x"}, fixtures())
	assert.ErrorContains(t, err, "index down")
}

func TestEvaluateUnsupportedFilter(t *testing.T) {
	node, err := Parse(`category:"Family Fun"`)
	require.NoError(t, err)

	_, err = NewEvaluator(nil).Evaluate(node, fixtures())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFilter)

	var ue *UnsupportedFilterError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "category", ue.Name)
}

func TestEvaluateNilAndDuplicates(t *testing.T) {
	corpus := fixtures()
	corpus = append(corpus, corpus[0])

	res, err := NewEvaluator(nil).Evaluate(nil, corpus)
	require.NoError(t, err)
	assert.Equal(t, []string{"emoji1", "emoji2", "emoji3", "emoji4"}, ids(res))

	res, err = NewEvaluator(nil).Evaluate(Filter{Name: "keyword", Value: "smile"}, corpus)
	require.NoError(t, err)
	assert.Equal(t, []string{"emoji1"}, ids(res))
}

func TestEvaluateDoesNotMutateCorpus(t *testing.T) {
	corpus := fixtures()
	before := ids(corpus)

	_, err := NewEvaluator(nil).Evaluate(Not{Expr: Filter{Name: "id", Value: "emoji1"}}, corpus)
	require.NoError(t, err)
	assert.Equal(t, before, ids(corpus))
}
