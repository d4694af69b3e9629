package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/lexstore/internal/query"
	"github.com/roach88/lexstore/internal/record"
)

// FilterOptions holds flags for the filter command.
type FilterOptions struct {
	*RootOptions
	Category string
	Status   string
	Query    string
	Fields   []string
	Where    []string
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FilterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "filter <collection>",
		Short: "List records matching filters",
		Long: `List the records of a collection that match every given filter, in
stored order.

--q searches the name, title, description, email, customerName and
itemName fields (or --fields) ignoring case.

Examples:
  lexstore filter catalog --category course --status active
  lexstore filter users --q "garcía"
  lexstore filter orders --where status=pending --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "category to match (all = any)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status to match")
	cmd.Flags().StringVar(&opts.Query, "q", "", "free-text search")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "fields searched by --q")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "field=value condition (repeatable)")

	return cmd
}

// predicate builds the conjunction of the flags that were given.
func (o *FilterOptions) predicate() (query.And, error) {
	var preds []query.Predicate
	if o.Category != "" {
		preds = append(preds, query.Category{Value: o.Category})
	}
	if o.Status != "" {
		preds = append(preds, query.Status{Value: o.Status})
	}
	if o.Query != "" {
		preds = append(preds, query.Text{Query: o.Query, Fields: o.Fields})
	}
	for _, w := range o.Where {
		eq, err := query.ParseEquals(w)
		if err != nil {
			return query.And{}, NewExitError(ExitCommandError, err.Error())
		}
		preds = append(preds, eq)
	}
	return query.And{Predicates: preds}, nil
}

func runFilter(opts *FilterOptions, name string, cmd *cobra.Command) error {
	kind, err := lookupKind(name)
	if err != nil {
		return err
	}
	pred, err := opts.predicate()
	if err != nil {
		return err
	}

	out := opts.formatter(cmd)
	for _, w := range query.Validate(pred).Warnings {
		out.VerboseLog("warning: %s", w)
	}

	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := kind.load(ctx, st)
	if err != nil {
		return out.Fail("read "+name, err)
	}
	matched := query.Filter(recs, pred)
	out.VerboseLog("%d of %d records matched", len(matched), len(recs))
	return out.Render(matched, func(w io.Writer) {
		writeRecordTable(w, matched)
	})
}

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Category string
	Query    string
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List active catalog items",
		Long: `List active catalog items as the public store shows them.

Examples:
  lexstore catalog
  lexstore catalog --category course --q familia`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", query.CategoryAll, "category to list")
	cmd.Flags().StringVar(&opts.Query, "q", "", "free-text search")

	return cmd
}

func runCatalog(opts *CatalogOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	recs, err := collectionKinds[record.CollectionCatalog].load(ctx, st)
	if err != nil {
		return out.Fail("read catalog", err)
	}
	matched := query.Filter(recs, query.Catalog(opts.Category), query.Text{Query: opts.Query})
	return out.Render(matched, func(w io.Writer) {
		writeRecordTable(w, matched)
	})
}

// labelFields are tried in order to describe a record in text output.
var labelFields = []string{"name", "title", "customerName", "itemName", "email", "courseId", "userId", "formId"}

func recordLabel(r record.Record) string {
	for _, f := range labelFields {
		if v, ok := r.Field(f); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func writeRecordTable(w io.Writer, recs []record.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range recs {
		status, _ := r.Field("status")
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Key(), recordLabel(r), status)
	}
	tw.Flush()
}
