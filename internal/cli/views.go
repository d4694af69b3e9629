package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/relation"
	"github.com/roach88/lexstore/internal/service"
	"github.com/roach88/lexstore/internal/store"
)

// PurchaseView is a purchase with the state of the item it refers to.
type PurchaseView struct {
	Purchase   record.Purchase `json:"purchase"`
	InCatalog  bool            `json:"inCatalog"`
	ItemStatus string          `json:"itemStatus,omitempty"`
}

// UserDetail is the JSON payload of the user command.
type UserDetail struct {
	User      record.User     `json:"user"`
	CRM       *record.CrmData `json:"crm"`
	Purchases []PurchaseView  `json:"purchases"`
}

// NewUserCommand creates the user command.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "user <id>",
		Short: "Show a user with their CRM row and purchases",
		Long: `Show one user together with their CRM row and purchase history.

A user without a CRM row shows "crm: none"; run reconcile to create it.

Example:
  lexstore user form_sub_1712345678901`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUser(rootOpts, args[0], cmd)
		},
	}
}

func runUser(opts *RootOptions, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	users, _, err := store.GetCollection[record.User](ctx, st, record.CollectionUsers)
	if err != nil {
		return out.Fail("read users", err)
	}
	user, ok := relation.Find(users, id)
	if !ok {
		msg := fmt.Sprintf("%s/%s not found", record.CollectionUsers, id)
		_ = out.Error(CodeNotFound, msg, nil)
		return NewExitError(ExitFailure, msg)
	}

	detail := UserDetail{User: user, Purchases: []PurchaseView{}}
	crm, ok, err := relation.CrmOf(ctx, st, user)
	if err != nil {
		return out.Fail("read crm", err)
	}
	if ok {
		detail.CRM = &crm
	}

	purchases, err := relation.PurchasesOf(ctx, st, user)
	if err != nil {
		return out.Fail("read purchases", err)
	}
	for _, p := range purchases {
		item, found, err := relation.ItemOf(ctx, st, p)
		if err != nil {
			return out.Fail("read catalog", err)
		}
		detail.Purchases = append(detail.Purchases, PurchaseView{Purchase: p, InCatalog: found, ItemStatus: item.Status})
	}

	return out.Render(detail, func(w io.Writer) {
		fmt.Fprintf(w, "%s  %s <%s>  source: %s\n", user.ID, user.Name, user.Email, user.Source)
		if detail.CRM == nil {
			fmt.Fprintln(w, "crm: none")
		} else {
			fmt.Fprintf(w, "crm: %s, value %.2f, tags %s\n", crm.Status, crm.Value, strings.Join(crm.Tags, ","))
		}
		if len(detail.Purchases) == 0 {
			fmt.Fprintln(w, "No purchases.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PURCHASE\tITEM\tAMOUNT\tCATALOG")
		for _, p := range detail.Purchases {
			state := p.ItemStatus
			if !p.InCatalog {
				state = "(missing)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", p.Purchase.ID, p.Purchase.ItemName, p.Purchase.Amount, state)
		}
		tw.Flush()
	})
}

// SubmissionView is a submission with the name of its form.
type SubmissionView struct {
	Submission  record.FormSubmission `json:"submission"`
	FormName    string                `json:"formName,omitempty"`
	FormMissing bool                  `json:"formMissing,omitempty"`
}

// SubmissionsOptions holds flags for the submissions command.
type SubmissionsOptions struct {
	*RootOptions
	Form string
}

// NewSubmissionsCommand creates the submissions command.
func NewSubmissionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmissionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "List form submissions",
		Long: `List form submissions, newest first, with the form each belongs to.

Submissions whose form was deleted are listed with "(form missing)".

Examples:
  lexstore submissions
  lexstore submissions --form contacto --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmissions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Form, "form", "", "only submissions of this form")

	return cmd
}

func runSubmissions(opts *SubmissionsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	views := []SubmissionView{}

	if opts.Form != "" {
		forms, _, err := store.GetCollection[record.Form](ctx, st, record.CollectionForms)
		if err != nil {
			return out.Fail("read forms", err)
		}
		form, ok := relation.Find(forms, opts.Form)
		if !ok {
			return out.Fail("submissions", fmt.Errorf("%w: %s", service.ErrFormNotFound, opts.Form))
		}
		subs, err := relation.SubmissionsOf(ctx, st, form)
		if err != nil {
			return out.Fail("read submissions", err)
		}
		for _, sub := range subs {
			views = append(views, SubmissionView{Submission: sub, FormName: form.Name})
		}
	} else {
		subs, _, err := store.GetCollection[record.FormSubmission](ctx, st, record.CollectionFormSubmissions)
		if err != nil {
			return out.Fail("read submissions", err)
		}
		type formRef struct {
			name  string
			found bool
		}
		resolved := map[string]formRef{}
		for _, sub := range subs {
			ref, seen := resolved[sub.FormID]
			if !seen {
				form, found, err := relation.FormOf(ctx, st, sub)
				if err != nil {
					return out.Fail("read forms", err)
				}
				ref = formRef{name: form.Name, found: found}
				resolved[sub.FormID] = ref
			}
			views = append(views, SubmissionView{Submission: sub, FormName: ref.name, FormMissing: !ref.found})
		}
	}

	return out.Render(views, func(w io.Writer) {
		if len(views) == 0 {
			fmt.Fprintln(w, "No submissions.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFORM\tSUBMITTED\tFIELDS")
		for _, v := range views {
			form := v.FormName
			if v.FormMissing {
				form = "(form missing)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", v.Submission.ID, form, v.Submission.SubmittedAt, len(v.Submission.Data))
		}
		tw.Flush()
	})
}
