// Package fulltext is a small in-memory document index used to answer the
// free-text part of emoji queries.
package fulltext

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/coffersTech/emojisearch/internal/model"
)

// Indexed field names, as reported by Search.
const (
	FieldKeywords = "keywords"
	FieldTTS      = "tts"
	FieldGroup    = "group"
)

// ErrDuplicateDocument is returned when a CLDR name is added twice.
var ErrDuplicateDocument = errors.New("document already indexed")

// Document is the searchable projection of an emoji.
type Document struct {
	CLDR     string
	Keywords []string
	TTS      string
	Group    string
}

// DocumentOf projects an emoji onto its searchable fields.
func DocumentOf(e model.Emoji) Document {
	return Document{CLDR: e.CLDR, Keywords: e.Keywords, TTS: e.TTS, Group: e.Group}
}

type field struct {
	name     string
	mode     Mode
	extract  func(Document) []string
	postings map[string]*roaring.Bitmap
}

// Index maps partial terms to documents per field. It is safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	ids    []string
	known  map[string]struct{}
	fields []*field
}

// New creates an empty index over keywords (forward), tts (forward) and
// group (reverse).
func New() *Index {
	return &Index{
		known: make(map[string]struct{}),
		fields: []*field{
			{name: FieldKeywords, mode: Forward, extract: func(d Document) []string { return d.Keywords }},
			{name: FieldTTS, mode: Forward, extract: func(d Document) []string { return []string{d.TTS} }},
			{name: FieldGroup, mode: Reverse, extract: func(d Document) []string { return []string{d.Group} }},
		},
	}
}

// Build indexes every emoji of a corpus. Emojis without a CLDR name or
// repeating one already indexed are left out and counted in skipped.
func Build(emojis []model.Emoji) (ix *Index, skipped int) {
	ix = New()
	for _, e := range emojis {
		if err := ix.Add(DocumentOf(e)); err != nil {
			skipped++
		}
	}
	return ix, skipped
}

// Add indexes a document under its CLDR name.
func (ix *Index) Add(doc Document) error {
	if doc.CLDR == "" {
		return errors.New("document has no CLDR name")
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.known[doc.CLDR]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateDocument, doc.CLDR)
	}
	ord := uint32(len(ix.ids))
	ix.ids = append(ix.ids, doc.CLDR)
	ix.known[doc.CLDR] = struct{}{}

	for _, f := range ix.fields {
		if f.postings == nil {
			f.postings = make(map[string]*roaring.Bitmap)
		}
		for _, text := range f.extract(doc) {
			for _, word := range analyze(text) {
				for _, term := range f.mode.expand(word) {
					bm, ok := f.postings[term]
					if !ok {
						bm = roaring.New()
						f.postings[term] = bm
					}
					bm.Add(ord)
				}
			}
		}
	}
	return nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ids)
}

// Search returns, per field, the CLDR names of documents in which every query
// word matches (as prefix, or suffix for reverse fields). Fields without hits
// are omitted. Names within a field are sorted.
func (ix *Index) Search(query string) (map[string][]string, error) {
	words := analyze(query)
	out := make(map[string][]string)
	if len(words) == 0 {
		return out, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	for _, f := range ix.fields {
		var hits *roaring.Bitmap
		for _, w := range words {
			bm, ok := f.postings[w]
			if !ok {
				hits = nil
				break
			}
			if hits == nil {
				hits = bm.Clone()
			} else {
				hits.And(bm)
			}
			if hits.IsEmpty() {
				break
			}
		}
		if hits == nil || hits.IsEmpty() {
			continue
		}

		names := make([]string, 0, hits.GetCardinality())
		it := hits.Iterator()
		for it.HasNext() {
			names = append(names, ix.ids[it.Next()])
		}
		sort.Strings(names)
		out[f.name] = names
	}
	return out, nil
}
