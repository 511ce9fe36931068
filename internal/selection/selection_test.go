package selection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscurator/internal/news"
)

func scored(title string, c news.Category, score float64) news.ScoredItem {
	return news.ScoredItem{
		EnrichedItem: news.EnrichedItem{RawItem: news.RawItem{Title: title}},
		Category:     c,
		Score:        score,
	}
}

func titles(items []news.EnrichedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestSelect_TopFourPerCategory(t *testing.T) {
	var in []news.ScoredItem
	for i, s := range []float64{10, 60, 30, 90, 50, 20} {
		in = append(in, scored(fmt.Sprintf("e%d", i), news.Economy, s))
	}
	for i, s := range []float64{15, 85, 45, 75} {
		in = append(in, scored(fmt.Sprintf("p%d", i), news.Politics, s))
	}

	got := Select(in, 4)

	require.Len(t, got, 8)
	assert.Equal(t, []string{"e3", "e1", "e4", "e2", "p1", "p3", "p2", "p0"}, titles(got))
}

func TestSelect_TiesKeepInputOrder(t *testing.T) {
	in := []news.ScoredItem{
		scored("a", news.IT, 50),
		scored("b", news.IT, 70),
		scored("c", news.IT, 50),
		scored("d", news.IT, 50),
	}
	assert.Equal(t, []string{"b", "a", "c"}, titles(Select(in, 3)))
}

func TestSelect_Empty(t *testing.T) {
	assert.Empty(t, Select(nil, 4))
}

func TestSelect_DefaultLimit(t *testing.T) {
	var in []news.ScoredItem
	for i := 0; i < 6; i++ {
		in = append(in, scored(fmt.Sprintf("s%d", i), news.Society, float64(i)))
	}
	assert.Len(t, Select(in, 0), DefaultPerCategory)
}
