package aggregate

import (
	"cmp"
	"slices"

	"github.com/roach88/lexstore/internal/record"
)

// SalesSummary aggregates an order collection.
type SalesSummary struct {
	// TotalRevenue sums the totals of orders that are not cancelled.
	TotalRevenue float64 `json:"totalRevenue"`
	// TotalOrders counts every order, cancelled included.
	TotalOrders int `json:"totalOrders"`
	// AverageTicket is TotalRevenue / TotalOrders, or 0 without orders.
	AverageTicket float64 `json:"averageTicket"`
	// ByStatus counts orders per status. Orders without a status count
	// under "".
	ByStatus map[string]int `json:"byStatus"`
}

// Sales computes revenue figures for orders.
func Sales(orders []record.Order) SalesSummary {
	sum := SalesSummary{
		TotalOrders: len(orders),
		ByStatus:    make(map[string]int),
	}
	for _, o := range orders {
		sum.ByStatus[o.Status]++
		if o.Status != record.OrderCancelled {
			sum.TotalRevenue += o.Total
		}
	}
	if sum.TotalOrders > 0 {
		sum.AverageTicket = sum.TotalRevenue / float64(sum.TotalOrders)
	}
	return sum
}

// MonthRevenue is revenue for one calendar month.
type MonthRevenue struct {
	Month   string  `json:"month"` // YYYY-MM
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// RevenueByMonth groups non-cancelled orders by the month of their order
// date, oldest first. Orders without a parseable date are left out.
func RevenueByMonth(orders []record.Order) []MonthRevenue {
	byMonth := make(map[string]*MonthRevenue)
	for _, o := range orders {
		if o.Status == record.OrderCancelled {
			continue
		}
		t, ok := o.OrderDate.Time()
		if !ok {
			continue
		}
		key := t.UTC().Format("2006-01")
		m, exists := byMonth[key]
		if !exists {
			m = &MonthRevenue{Month: key}
			byMonth[key] = m
		}
		m.Revenue += o.Total
		m.Orders++
	}

	out := make([]MonthRevenue, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b MonthRevenue) int {
		return cmp.Compare(a.Month, b.Month)
	})
	return out
}

// TypeTotal is a count and amount for one item type.
type TypeTotal struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// PurchaseSummary aggregates purchase history.
type PurchaseSummary struct {
	Count  int                  `json:"count"`
	Total  float64              `json:"total"`
	ByType map[string]TypeTotal `json:"byType"`
}

// PurchaseTotals sums purchases overall and per item type.
func PurchaseTotals(purchases []record.Purchase) PurchaseSummary {
	sum := PurchaseSummary{ByType: make(map[string]TypeTotal)}
	for _, p := range purchases {
		sum.Count++
		sum.Total += p.Amount
		tt := sum.ByType[p.ItemType]
		tt.Count++
		tt.Total += p.Amount
		sum.ByType[p.ItemType] = tt
	}
	return sum
}

// CatalogCount is the number of catalog items of one type, by status.
type CatalogCount struct {
	Type     string `json:"type"`
	Active   int    `json:"active"`
	Inactive int    `json:"inactive"`
}

// CatalogCounts counts items per type in order of first appearance.
func CatalogCounts(items []record.CatalogItem) []CatalogCount {
	index := make(map[string]int)
	out := []CatalogCount{}
	for _, it := range items {
		i, ok := index[it.Type]
		if !ok {
			i = len(out)
			index[it.Type] = i
			out = append(out, CatalogCount{Type: it.Type})
		}
		if it.Status == record.StatusActive {
			out[i].Active++
		} else {
			out[i].Inactive++
		}
	}
	return out
}
