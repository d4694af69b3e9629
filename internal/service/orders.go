package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/relation"
	"github.com/roach88/lexstore/internal/store"
	"github.com/roach88/lexstore/internal/upsert"
)

var orderStatuses = []string{
	record.OrderPending,
	record.OrderProcessing,
	record.OrderShipped,
	record.OrderDelivered,
	record.OrderCancelled,
}

// OrderInput is a completed checkout reported by the payment side.
type OrderInput struct {
	// ID is the payment side's order id. Reporting the same id twice stores
	// the order once. Empty generates a new id.
	ID           string
	CustomerName string
	Total        float64
	Status       string // default pending
}

// RecordOrder stores an order, most recent first.
func (s *Service) RecordOrder(ctx context.Context, in OrderInput) (record.Order, upsert.Outcome, error) {
	status := in.Status
	if status == "" {
		status = record.OrderPending
	}
	if !slices.Contains(orderStatuses, status) {
		return record.Order{}, 0, fmt.Errorf("record order: %w",
			&ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)})
	}
	if in.Total < 0 {
		return record.Order{}, 0, fmt.Errorf("record order: %w", &ValidationError{Field: "total", Reason: "negative"})
	}

	order := record.Order{
		ID:           strings.TrimSpace(in.ID),
		CustomerName: strings.TrimSpace(in.CustomerName),
		OrderDate:    s.timestamp(),
		Total:        in.Total,
		Status:       status,
	}
	if order.ID == "" {
		order.ID = s.ids.Generate()
	}

	outcome, err := upsert.UpsertByNaturalKey(ctx, s.store, record.CollectionOrders, upsert.ByKey[record.Order], order)
	if err != nil {
		return record.Order{}, 0, fmt.Errorf("record order: %w", err)
	}
	slog.Info("order recorded", "order_id", order.ID, "outcome", outcome.String())
	return order, outcome, nil
}

// PurchaseInput is one bought catalog item.
type PurchaseInput struct {
	ID     string // payment side id; empty generates one
	UserID string
	ItemID string
	// Amount defaults to the item's catalog price when zero.
	Amount float64
}

// RecordPurchase stores a purchase of a catalog item. Buying a course also
// enrolls the user by creating an empty progress record.
func (s *Service) RecordPurchase(ctx context.Context, in PurchaseInput) (record.Purchase, upsert.Outcome, error) {
	items, _, err := store.GetCollection[record.CatalogItem](ctx, s.store, record.CollectionCatalog)
	if err != nil {
		return record.Purchase{}, 0, fmt.Errorf("record purchase: %w", err)
	}
	item, ok := relation.Find(items, in.ItemID)
	if !ok {
		return record.Purchase{}, 0, fmt.Errorf("record purchase %q: %w", in.ItemID, ErrItemNotFound)
	}

	p := record.Purchase{
		ID:           strings.TrimSpace(in.ID),
		ItemID:       item.ID,
		ItemType:     item.Type,
		ItemName:     item.Name,
		PurchaseDate: s.timestamp(),
		Amount:       in.Amount,
		UserID:       in.UserID,
	}
	if p.ID == "" {
		p.ID = s.ids.Generate()
	}
	if p.Amount == 0 {
		p.Amount = item.Price
	}

	outcome, err := upsert.UpsertByNaturalKey(ctx, s.store, record.CollectionPurchases, upsert.ByKey[record.Purchase], p)
	if err != nil {
		return record.Purchase{}, 0, fmt.Errorf("record purchase: %w", err)
	}
	slog.Info("purchase recorded", "purchase_id", p.ID, "item_id", p.ItemID, "outcome", outcome.String())

	if item.Type != record.ItemCourse {
		return p, outcome, nil
	}

	enrollment := record.CourseProgress{CourseID: item.ID, UserID: in.UserID, CompletedLessons: []string{}}
	if _, err := upsert.UpsertByNaturalKey(ctx, s.store, record.CollectionCourseProgress, upsert.ByKey[record.CourseProgress], enrollment); err != nil {
		slog.Error("progress write failed after purchase write",
			"purchase_id", p.ID,
			"course_id", item.ID,
			"error", err,
		)
		return p, outcome, &PartialWriteError{
			Primary:   record.CollectionPurchases,
			Secondary: record.CollectionCourseProgress,
			Key:       p.ID,
			Err:       err,
		}
	}
	return p, outcome, nil
}
