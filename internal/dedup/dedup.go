// Package dedup removes near-duplicate items by keyword-set similarity.
package dedup

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/deusflow/newscurator/internal/keyword"
)

// Extractor turns a text field into a keyword set.
type Extractor interface {
	Extract(text string) keyword.Set
}

// SimilarityIndex maps every distinct keyword of one call to a dense bit
// position and holds one membership vector per item.
type SimilarityIndex struct {
	positions map[string]uint
	vectors   []*bitset.BitSet
}

// NewSimilarityIndex assigns positions in first-seen order across sets.
func NewSimilarityIndex(sets []keyword.Set) *SimilarityIndex {
	positions := make(map[string]uint)
	for _, s := range sets {
		for _, term := range s.Terms {
			if _, ok := positions[term]; !ok {
				positions[term] = uint(len(positions))
			}
		}
	}

	width := uint(len(positions))
	vectors := make([]*bitset.BitSet, len(sets))
	for i, s := range sets {
		v := bitset.New(width)
		for _, term := range s.Terms {
			v.Set(positions[term])
		}
		vectors[i] = v
	}

	return &SimilarityIndex{positions: positions, vectors: vectors}
}

// Vocabulary returns the number of distinct keywords indexed.
func (ix *SimilarityIndex) Vocabulary() int { return len(ix.positions) }

// Similarity returns the Jaccard similarity of items i and j.
func (ix *SimilarityIndex) Similarity(i, j int) float64 {
	return Jaccard(ix.vectors[i], ix.vectors[j])
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both are empty.
func Jaccard(a, b *bitset.BitSet) float64 {
	union := a.UnionCardinality(b)
	if union == 0 {
		return 0
	}
	return float64(a.IntersectionCardinality(b)) / float64(union)
}

// Result is the outcome of one Dedupe call.
type Result[T any] struct {
	Kept    []T
	Removed int
	// Degraded counts items whose keywords came from the whitespace fallback.
	Degraded int
}

// Dedupe keeps the first item of every cluster whose field similarity strictly
// exceeds threshold and drops the later members. Kept items stay in input order.
func Dedupe[T any](items []T, field func(T) string, threshold float64, ex Extractor) Result[T] {
	if len(items) == 0 {
		return Result[T]{}
	}

	res := Result[T]{}
	sets := make([]keyword.Set, len(items))
	for i, it := range items {
		sets[i] = ex.Extract(field(it))
		if sets[i].Mode == keyword.ModeFallback {
			res.Degraded++
		}
	}

	ix := NewSimilarityIndex(sets)
	removed := make([]bool, len(items))
	for i := range items {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if removed[j] {
				continue
			}
			if ix.Similarity(i, j) > threshold {
				removed[j] = true
				res.Removed++
			}
		}
	}

	res.Kept = make([]T, 0, len(items)-res.Removed)
	for i, it := range items {
		if !removed[i] {
			res.Kept = append(res.Kept, it)
		}
	}
	return res
}
