package dedup

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscurator/internal/keyword"
)

type article struct {
	id    int
	title string
}

func titleOf(a article) string { return a.title }

func ids(items []article) []int {
	out := make([]int, len(items))
	for i, a := range items {
		out[i] = a.id
	}
	return out
}

func TestJaccard(t *testing.T) {
	a := bitset.New(8).Set(0).Set(1).Set(2)
	b := bitset.New(8).Set(1).Set(2).Set(3)

	assert.InDelta(t, 0.5, Jaccard(a, b), 1e-9)
	assert.Equal(t, 1.0, Jaccard(a, a))
	assert.Equal(t, 0.0, Jaccard(bitset.New(4), bitset.New(4)))
	assert.Equal(t, 0.0, Jaccard(a, bitset.New(8).Set(5)))
}

func TestSimilarityIndex_FirstSeenPositions(t *testing.T) {
	ix := NewSimilarityIndex([]keyword.Set{
		{Terms: []string{"경제", "위기"}},
		{Terms: []string{"위기", "대응"}},
	})
	assert.Equal(t, 3, ix.Vocabulary())
	assert.Equal(t, uint(0), ix.positions["경제"])
	assert.Equal(t, uint(2), ix.positions["대응"])
	assert.InDelta(t, 1.0/3.0, ix.Similarity(0, 1), 1e-9)
	assert.Equal(t, 1.0, ix.Similarity(1, 1))
}

func TestDedupe_KeepsFirstOfCluster(t *testing.T) {
	items := []article{
		{1, "정부 부동산 대책 발표했다"},
		{2, "정부 부동산 대책 발표한다"},
		{3, "프로야구 개막전 매진"},
		{4, "정부 부동산 대책 발표"},
	}

	res := Dedupe(items, titleOf, 0.5, keyword.NewExtractor(nil))
	assert.Equal(t, []int{1, 3}, ids(res.Kept))
	assert.Equal(t, 2, res.Removed)
}

func TestDedupe_EqualSimilarityIsNotRemoved(t *testing.T) {
	items := []article{
		{1, "경제 위기"},
		{2, "위기 대응"},
	}
	// similarity is exactly 1/3
	res := Dedupe(items, titleOf, 1.0/3.0, keyword.NewExtractor(nil))
	assert.Equal(t, []int{1, 2}, ids(res.Kept))
}

func TestDedupe_DisjointNeverRemoved(t *testing.T) {
	items := []article{
		{1, "반도체 수출 증가"},
		{2, "태풍 북상 경보"},
	}
	res := Dedupe(items, titleOf, 0.01, keyword.NewExtractor(nil))
	assert.Equal(t, []int{1, 2}, ids(res.Kept))
	assert.Zero(t, res.Removed)
}

// Greedy suppression is not monotone in the threshold in general; this
// fixture is one where removals only shrink as the threshold rises.
func TestDedupe_HousingHeadlinesThinOutAsThresholdRises(t *testing.T) {
	items := []article{
		{1, "서울 아파트 가격 상승"},
		{2, "서울 아파트 가격 하락"},
		{3, "서울 아파트 거래 급증"},
		{4, "부산 아파트 가격 상승"},
		{5, "서울 아파트 가격 상승 지속"},
		{6, "지방 선거 투표율"},
	}
	ex := keyword.NewExtractor(nil)

	prev := len(items)
	for _, th := range []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.99} {
		res := Dedupe(items, titleOf, th, ex)
		require.LessOrEqual(t, res.Removed, prev, "threshold %.2f", th)
		prev = res.Removed
		assert.Equal(t, 1, res.Kept[0].id)
	}
}

func TestDedupe_EmptyFieldsAreNotDuplicates(t *testing.T) {
	items := []article{{1, ""}, {2, ""}}
	res := Dedupe(items, titleOf, 0.1, keyword.NewExtractor(nil))
	assert.Len(t, res.Kept, 2)
}

func TestDedupe_CountsDegradedKeywordSets(t *testing.T) {
	items := []article{{1, "경제 위기\xff 대응"}, {2, "경제 위기 대응"}, {3, "물가\xfe 상승"}}
	res := Dedupe(items, titleOf, 0.5, keyword.NewExtractor(nil))
	assert.Equal(t, 2, res.Degraded)
}

func TestDedupe_Empty(t *testing.T) {
	res := Dedupe[article](nil, titleOf, 0.5, keyword.NewExtractor(nil))
	assert.Empty(t, res.Kept)
}
