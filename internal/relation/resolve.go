package relation

import (
	"context"

	"github.com/roach88/lexstore/internal/query"
	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/store"
)

// Find returns the first record whose primary key is key.
func Find[T record.Record](records []T, key string) (T, bool) {
	var zero T
	if key == "" {
		return zero, false
	}
	for _, r := range records {
		if r.Key() == key {
			return r, true
		}
	}
	return zero, false
}

// Where returns the records whose fkField equals key, in stored order.
// An empty key matches nothing.
func Where[T record.Record](records []T, fkField, key string) []T {
	if key == "" {
		return []T{}
	}
	return query.Filter(records, query.Equals{Field: fkField, Value: key})
}

// Resolve follows from's fkField to the record with that primary key in the
// target collection. Used for many-to-one and one-to-one relations.
func Resolve[T record.Record](ctx context.Context, s store.CollectionStore, from record.Record, fkField, target string) (T, bool, error) {
	var zero T
	key, ok := from.Field(fkField)
	if !ok || key == "" {
		return zero, false, nil
	}
	records, _, err := store.GetCollection[T](ctx, s, target)
	if err != nil {
		return zero, false, err
	}
	found, ok := Find(records, key)
	return found, ok, nil
}

// ResolveMany returns the records in the target collection whose fkField
// holds from's primary key. Used for one-to-many relations.
func ResolveMany[T record.Record](ctx context.Context, s store.CollectionStore, from record.Record, fkField, target string) ([]T, error) {
	key := from.Key()
	if key == "" {
		return []T{}, nil
	}
	records, _, err := store.GetCollection[T](ctx, s, target)
	if err != nil {
		return nil, err
	}
	return Where(records, fkField, key), nil
}

// FormOf returns the form a submission was made against.
func FormOf(ctx context.Context, s store.CollectionStore, sub record.FormSubmission) (record.Form, bool, error) {
	return Resolve[record.Form](ctx, s, sub, "formId", record.CollectionForms)
}

// SubmissionsOf returns a form's submissions.
func SubmissionsOf(ctx context.Context, s store.CollectionStore, form record.Form) ([]record.FormSubmission, error) {
	return ResolveMany[record.FormSubmission](ctx, s, form, "formId", record.CollectionFormSubmissions)
}

// ItemOf returns the catalog item a purchase refers to.
func ItemOf(ctx context.Context, s store.CollectionStore, p record.Purchase) (record.CatalogItem, bool, error) {
	return Resolve[record.CatalogItem](ctx, s, p, "itemId", record.CollectionCatalog)
}

// CourseOf returns the course a progress record tracks.
func CourseOf(ctx context.Context, s store.CollectionStore, p record.CourseProgress) (record.Course, bool, error) {
	return Resolve[record.Course](ctx, s, p, "courseId", record.CollectionCourses)
}

// UserOf returns the user a CRM row belongs to.
func UserOf(ctx context.Context, s store.CollectionStore, c record.CrmData) (record.User, bool, error) {
	return Resolve[record.User](ctx, s, c, "userId", record.CollectionUsers)
}

// CrmOf returns a user's CRM row. CRM rows are keyed by user id.
func CrmOf(ctx context.Context, s store.CollectionStore, u record.User) (record.CrmData, bool, error) {
	return Resolve[record.CrmData](ctx, s, u, "id", record.CollectionCRM)
}

// PurchasesOf returns the purchases attributed to a user.
func PurchasesOf(ctx context.Context, s store.CollectionStore, u record.User) ([]record.Purchase, error) {
	return ResolveMany[record.Purchase](ctx, s, u, "userId", record.CollectionPurchases)
}
