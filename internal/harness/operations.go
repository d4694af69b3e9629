package harness

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/roach88/lexstore/internal/aggregate"
	"github.com/roach88/lexstore/internal/query"
	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/relation"
	"github.com/roach88/lexstore/internal/service"
	"github.com/roach88/lexstore/internal/store"
)

// Completion cases.
const (
	CaseOK           = "ok"
	CaseValidation   = "validation"
	CaseNotFound     = "not_found"
	CasePartialWrite = "partial_write"
	CaseConflict     = "conflict"
	CaseError        = "error"
)

// Args are the arguments of one operation as parsed from YAML.
type Args map[string]any

// String returns the text form of a scalar argument, or "" when absent.
func (a Args) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Float returns a numeric argument, or 0 when absent.
func (a Args) Float(key string) (float64, error) {
	switch v := a[key].(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("arg %q: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("arg %q: want a number, got %T", key, v)
	}
}

// StringMap returns a mapping argument with its values as text.
func (a Args) StringMap(key string) (map[string]string, error) {
	switch v := a[key].(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			out[k] = fmt.Sprint(val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("arg %q: want a mapping, got %T", key, v)
	}
}

type env struct {
	store store.CollectionStore
	svc   *service.Service
}

type operation func(ctx context.Context, e *env, args Args) (any, error)

var operations = map[string]operation{
	"register": func(ctx context.Context, e *env, args Args) (any, error) {
		return e.svc.Register(ctx, service.RegisterInput{Name: args.String("name"), Email: args.String("email")})
	},
	"submit_form": func(ctx context.Context, e *env, args Args) (any, error) {
		data, err := args.StringMap("data")
		if err != nil {
			return nil, err
		}
		return e.svc.SubmitForm(ctx, args.String("form"), data)
	},
	"import_submissions": func(ctx context.Context, e *env, _ Args) (any, error) {
		return e.svc.ImportSubmissions(ctx)
	},
	"reconcile": func(ctx context.Context, e *env, _ Args) (any, error) {
		n, err := e.svc.Reconcile(ctx)
		return map[string]any{"created": n}, err
	},
	"seed_default_forms": func(ctx context.Context, e *env, _ Args) (any, error) {
		seeded, err := e.svc.SeedDefaultForms(ctx)
		return map[string]any{"seeded": seeded}, err
	},
	"complete_lesson": func(ctx context.Context, e *env, args Args) (any, error) {
		return e.svc.CompleteLesson(ctx, args.String("user"), args.String("course"), args.String("lesson"))
	},
	"progress": func(ctx context.Context, e *env, args Args) (any, error) {
		rows, err := e.svc.Progress(ctx, args.String("user"))
		return map[string]any{"courses": rows}, err
	},
	"record_order": func(ctx context.Context, e *env, args Args) (any, error) {
		total, err := args.Float("total")
		if err != nil {
			return nil, err
		}
		order, outcome, err := e.svc.RecordOrder(ctx, service.OrderInput{
			ID:           args.String("id"),
			CustomerName: args.String("customer"),
			Total:        total,
			Status:       args.String("status"),
		})
		return map[string]any{"order": order, "outcome": outcome}, err
	},
	"record_purchase": func(ctx context.Context, e *env, args Args) (any, error) {
		amount, err := args.Float("amount")
		if err != nil {
			return nil, err
		}
		p, outcome, err := e.svc.RecordPurchase(ctx, service.PurchaseInput{
			ID:     args.String("id"),
			UserID: args.String("user"),
			ItemID: args.String("item"),
			Amount: amount,
		})
		return map[string]any{"purchase": p, "outcome": outcome}, err
	},
	"sales": func(ctx context.Context, e *env, _ Args) (any, error) {
		orders, _, err := store.GetCollection[record.Order](ctx, e.store, record.CollectionOrders)
		if err != nil {
			return nil, err
		}
		return aggregate.Sales(orders), nil
	},
	"catalog": func(ctx context.Context, e *env, args Args) (any, error) {
		items, _, err := store.GetCollection[record.CatalogItem](ctx, e.store, record.CollectionCatalog)
		if err != nil {
			return nil, err
		}
		matched := query.Filter(items, query.Catalog(args.String("category")), query.Text{Query: args.String("q")})
		ids := make([]string, len(matched))
		for i, it := range matched {
			ids[i] = it.ID
		}
		return map[string]any{"ids": ids}, nil
	},
	"check": func(ctx context.Context, e *env, _ Args) (any, error) {
		return relation.Check(ctx, e.store)
	},
}

// Operations lists the operation names scenarios may invoke.
func Operations() []string {
	return slices.Sorted(maps.Keys(operations))
}

// errorCase classifies an operation error into a completion case.
func errorCase(err error) string {
	var partial *service.PartialWriteError
	switch {
	case err == nil:
		return CaseOK
	case errors.As(err, &partial):
		return CasePartialWrite
	case errors.Is(err, service.ErrValidation):
		return CaseValidation
	case errors.Is(err, service.ErrFormNotFound), errors.Is(err, service.ErrItemNotFound):
		return CaseNotFound
	case errors.Is(err, store.ErrVersionConflict):
		return CaseConflict
	default:
		return CaseError
	}
}
