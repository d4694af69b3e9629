package relation

import (
	"context"
	"fmt"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/store"
)

// IssueKind classifies an integrity problem.
type IssueKind string

const (
	DanglingSubmission IssueKind = "dangling_submission" // form missing
	OrphanCRM          IssueKind = "orphan_crm"          // user missing
	MissingCRM         IssueKind = "missing_crm"         // user has no CRM row
	DanglingPurchase   IssueKind = "dangling_purchase"   // catalog item missing
	DanglingProgress   IssueKind = "dangling_progress"   // course missing
	DuplicateKey       IssueKind = "duplicate_key"       // primary key repeated
)

// Issue is one integrity problem.
type Issue struct {
	Kind       IssueKind `json:"kind"`
	Collection string    `json:"collection"`
	Key        string    `json:"key"`
	Ref        string    `json:"ref,omitempty"` // the unresolved foreign key
}

func (i Issue) String() string {
	if i.Ref == "" {
		return fmt.Sprintf("%s: %s/%s", i.Kind, i.Collection, i.Key)
	}
	return fmt.Sprintf("%s: %s/%s -> %s", i.Kind, i.Collection, i.Key, i.Ref)
}

// Report is the result of Check.
type Report struct {
	Issues []Issue `json:"issues"`
}

// OK reports whether no issues were found.
func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// Count returns the number of issues of one kind.
func (r Report) Count(kind IssueKind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Report) add(kind IssueKind, collection, key, ref string) {
	r.Issues = append(r.Issues, Issue{Kind: kind, Collection: collection, Key: key, Ref: ref})
}

// snapshot is the state Check reads, one decode per collection.
type snapshot struct {
	users       []record.User
	crm         []record.CrmData
	forms       []record.Form
	formsSeen   bool
	submissions []record.FormSubmission
	catalog     []record.CatalogItem
	catalogSeen bool
	purchases   []record.Purchase
	courses     []record.Course
	coursesSeen bool
	progress    []record.CourseProgress
}

func load[T record.Record](ctx context.Context, s store.CollectionStore, name string, dst *[]T) (bool, error) {
	records, version, err := store.GetCollection[T](ctx, s, name)
	if err != nil {
		return false, err
	}
	*dst = records
	return version > 0, nil
}

func loadSnapshot(ctx context.Context, s store.CollectionStore) (*snapshot, error) {
	var (
		snap snapshot
		err  error
	)
	if _, err = load(ctx, s, record.CollectionUsers, &snap.users); err != nil {
		return nil, err
	}
	if _, err = load(ctx, s, record.CollectionCRM, &snap.crm); err != nil {
		return nil, err
	}
	if snap.formsSeen, err = load(ctx, s, record.CollectionForms, &snap.forms); err != nil {
		return nil, err
	}
	if _, err = load(ctx, s, record.CollectionFormSubmissions, &snap.submissions); err != nil {
		return nil, err
	}
	if snap.catalogSeen, err = load(ctx, s, record.CollectionCatalog, &snap.catalog); err != nil {
		return nil, err
	}
	if _, err = load(ctx, s, record.CollectionPurchases, &snap.purchases); err != nil {
		return nil, err
	}
	if snap.coursesSeen, err = load(ctx, s, record.CollectionCourses, &snap.courses); err != nil {
		return nil, err
	}
	if _, err = load(ctx, s, record.CollectionCourseProgress, &snap.progress); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Check reports integrity problems across all collections. It never writes.
//
// References into the forms, catalog and courses collections are only
// checked once those collections have been written; before that every
// reference would be reported.
func Check(ctx context.Context, s store.CollectionStore) (Report, error) {
	snap, err := loadSnapshot(ctx, s)
	if err != nil {
		return Report{}, fmt.Errorf("check: %w", err)
	}

	report := Report{Issues: []Issue{}}

	duplicates(&report, record.CollectionUsers, snap.users)
	duplicates(&report, record.CollectionCRM, snap.crm)
	duplicates(&report, record.CollectionForms, snap.forms)
	duplicates(&report, record.CollectionFormSubmissions, snap.submissions)
	duplicates(&report, record.CollectionCatalog, snap.catalog)
	duplicates(&report, record.CollectionPurchases, snap.purchases)
	duplicates(&report, record.CollectionCourses, snap.courses)
	duplicates(&report, record.CollectionCourseProgress, snap.progress)

	users := keySet(snap.users)
	crm := keySet(snap.crm)
	for _, c := range snap.crm {
		if _, ok := users[c.UserID]; !ok {
			report.add(OrphanCRM, record.CollectionCRM, c.UserID, c.UserID)
		}
	}
	for _, u := range snap.users {
		if _, ok := crm[u.ID]; !ok {
			report.add(MissingCRM, record.CollectionUsers, u.ID, "")
		}
	}

	if snap.formsSeen {
		forms := keySet(snap.forms)
		for _, sub := range snap.submissions {
			if _, ok := forms[sub.FormID]; !ok {
				report.add(DanglingSubmission, record.CollectionFormSubmissions, sub.ID, sub.FormID)
			}
		}
	}

	if snap.catalogSeen {
		items := keySet(snap.catalog)
		for _, p := range snap.purchases {
			if _, ok := items[p.ItemID]; !ok {
				report.add(DanglingPurchase, record.CollectionPurchases, p.ID, p.ItemID)
			}
		}
	}

	if snap.coursesSeen {
		courses := keySet(snap.courses)
		for _, p := range snap.progress {
			if _, ok := courses[p.CourseID]; !ok {
				report.add(DanglingProgress, record.CollectionCourseProgress, p.Key(), p.CourseID)
			}
		}
	}

	return report, nil
}

func keySet[T record.Record](records []T) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		set[r.Key()] = struct{}{}
	}
	return set
}

func duplicates[T record.Record](report *Report, collection string, records []T) {
	seen := make(map[string]int, len(records))
	for _, r := range records {
		seen[r.Key()]++
		if seen[r.Key()] == 2 {
			report.add(DuplicateKey, collection, r.Key(), "")
		}
	}
}
