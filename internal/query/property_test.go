package query

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/roach88/lexstore/internal/record"
)

func genItems() gopter.Gen {
	categories := []string{"civil", "laboral", "penal"}
	statuses := []string{record.StatusActive, record.StatusInactive}
	return gen.SliceOf(gen.IntRange(0, len(categories)*len(statuses)-1)).Map(func(codes []int) []record.CatalogItem {
		items := make([]record.CatalogItem, len(codes))
		for i, c := range codes {
			items[i] = record.CatalogItem{
				ID:       string(rune('a'+i%26)) + string(rune('0'+i/26%10)),
				Category: categories[c%len(categories)],
				Status:   statuses[c/len(categories)],
			}
		}
		return items
	})
}

func TestFilter_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("result is an order-preserving subsequence of matches", prop.ForAll(
		func(items []record.CatalogItem, category string) bool {
			pred := Catalog(category)
			got := Filter(items, pred)

			j := 0
			for _, item := range items {
				if !Match(item, pred) {
					continue
				}
				if j >= len(got) || got[j].ID != item.ID {
					return false
				}
				j++
			}
			return j == len(got)
		},
		genItems(),
		gen.IntRange(0, 3).Map(func(i int) string {
			return []string{"civil", "laboral", "penal", CategoryAll}[i]
		}),
	))

	properties.Property("filtering twice equals filtering once", prop.ForAll(
		func(items []record.CatalogItem) bool {
			once := Filter(items, Status{Value: record.StatusActive})
			twice := Filter(once, Status{Value: record.StatusActive})
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i].ID != twice[i].ID {
					return false
				}
			}
			return true
		},
		genItems(),
	))

	properties.TestingRun(t)
}
