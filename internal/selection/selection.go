// Package selection picks the best scored items per category.
package selection

import (
	"sort"

	"github.com/deusflow/newscurator/internal/news"
)

// DefaultPerCategory is how many items each category keeps.
const DefaultPerCategory = 4

// Select groups scored items by category, orders each group by score
// (highest first, ties keep input order) and keeps the top perCategory.
// Groups appear in the order their category was first seen.
func Select(scored []news.ScoredItem, perCategory int) []news.EnrichedItem {
	if perCategory <= 0 {
		perCategory = DefaultPerCategory
	}

	var order []news.Category
	groups := make(map[news.Category][]news.ScoredItem)
	for _, item := range scored {
		if _, ok := groups[item.Category]; !ok {
			order = append(order, item.Category)
		}
		groups[item.Category] = append(groups[item.Category], item)
	}

	var out []news.EnrichedItem
	for _, category := range order {
		group := groups[category]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Score > group[j].Score
		})
		if len(group) > perCategory {
			group = group[:perCategory]
		}
		for _, item := range group {
			out = append(out, item.EnrichedItem)
		}
	}
	return out
}
