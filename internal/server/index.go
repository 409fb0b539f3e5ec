package server

import (
	"sort"
	"strings"
	"unicode"

	"github.com/RoaringBitmap/roaring/v2"
)

// Index is an inverted token index over a fixed word list.
// Posting lists hold positions into words, which is sorted by id, so
// iterating a bitmap yields hits in id order.
type Index struct {
	words       []Word
	postings    map[string]*roaring.Bitmap
	tokens      []string // sorted keys of postings
	suggestions *roaring.Bitmap
}

// NewIndex builds an index over words.
func NewIndex(words []Word) *Index {
	sorted := make([]Word, len(words))
	copy(sorted, words)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	idx := &Index{
		words:       sorted,
		postings:    make(map[string]*roaring.Bitmap),
		suggestions: roaring.New(),
	}

	for pos, w := range sorted {
		for _, tok := range tokenize(w.English + " " + w.Xhosa) {
			bm, ok := idx.postings[tok]
			if !ok {
				bm = roaring.New()
				idx.postings[tok] = bm
				idx.tokens = append(idx.tokens, tok)
			}
			bm.Add(uint32(pos))
		}
		if w.IsSuggestion {
			idx.suggestions.Add(uint32(pos))
		}
	}
	sort.Strings(idx.tokens)

	return idx
}

// Len returns the number of indexed words.
func (idx *Index) Len() int {
	return len(idx.words)
}

// Search returns at most limit words matching every token of query by
// prefix. Words matching every token exactly come first; ties are broken
// by id.
func (idx *Index) Search(query string, includeSuggestions bool, limit int) []Word {
	terms := tokenize(query)
	if len(terms) == 0 || limit <= 0 {
		return nil
	}

	var matched, exact *roaring.Bitmap
	for _, term := range terms {
		prefix := idx.prefixMatches(term)
		whole, ok := idx.postings[term]
		if !ok {
			whole = roaring.New()
		}
		if matched == nil {
			matched = prefix
			exact = whole.Clone()
		} else {
			matched = roaring.And(matched, prefix)
			exact = roaring.And(exact, whole)
		}
		if matched.IsEmpty() {
			return nil
		}
	}
	if !includeSuggestions {
		matched.AndNot(idx.suggestions)
		exact.AndNot(idx.suggestions)
	}

	hits := make([]Word, 0, min(limit, int(matched.GetCardinality())))
	for _, bm := range []*roaring.Bitmap{exact, roaring.AndNot(matched, exact)} {
		it := bm.Iterator()
		for it.HasNext() && len(hits) < limit {
			hits = append(hits, idx.words[it.Next()])
		}
	}
	return hits
}

func (idx *Index) prefixMatches(term string) *roaring.Bitmap {
	var lists []*roaring.Bitmap
	for i := sort.SearchStrings(idx.tokens, term); i < len(idx.tokens); i++ {
		if !strings.HasPrefix(idx.tokens[i], term) {
			break
		}
		lists = append(lists, idx.postings[idx.tokens[i]])
	}
	return roaring.FastOr(lists...)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
