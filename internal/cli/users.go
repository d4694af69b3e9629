package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lexstore/internal/relation"
	"github.com/roach88/lexstore/internal/service"
	"github.com/roach88/lexstore/internal/upsert"
)

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	*RootOptions
	Name  string
	Email string
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a user",
		Long: `Register a user by email and give them a CRM row.

Registering an email that is already registered changes nothing and
reports the existing user.

Example:
  lexstore register --name "Ana García" --email ana@example.com`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")

	return cmd
}

func runRegister(opts *RegisterOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	return opts.withService(cmd.Context(), func(svc *service.Service) error {
		res, err := svc.Register(cmd.Context(), service.RegisterInput{Name: opts.Name, Email: opts.Email})
		if err != nil {
			return out.Fail("register", err)
		}
		return out.Render(res, func(w io.Writer) {
			if res.Outcome == upsert.Skipped {
				fmt.Fprintf(w, "- %s already registered as %s\n", res.User.Email, res.User.ID)
				return
			}
			fmt.Fprintf(w, "✓ registered %s as %s\n", res.User.Email, res.User.ID)
		})
	})
}

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Data []string
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <form-id>",
		Short: "Submit a form",
		Long: `Store a submission for a form after checking its required fields.

Example:
  lexstore submit contacto --data nombre="Ana García" --data email=ana@example.com --data mensaje=Hola`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Data, "data", nil, "field=value answer (repeatable)")

	return cmd
}

func parseData(pairs []string) (map[string]string, error) {
	data := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --data %q (want field=value)", p))
		}
		data[k] = v
	}
	return data, nil
}

func runSubmit(opts *SubmitOptions, formID string, cmd *cobra.Command) error {
	data, err := parseData(opts.Data)
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)
	return opts.withService(cmd.Context(), func(svc *service.Service) error {
		sub, err := svc.SubmitForm(cmd.Context(), formID, data)
		if err != nil {
			return out.Fail("submit "+formID, err)
		}
		return out.Render(sub, func(w io.Writer) {
			fmt.Fprintf(w, "✓ submission %s stored for form %s\n", sub.ID, sub.FormID)
		})
	})
}

// NewImportSubmissionsCommand creates the import-submissions command.
func NewImportSubmissionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-submissions",
		Short: "Turn form submissions into leads",
		Long: `Create a lead user and CRM row for every form submission not imported
yet. Running it again only picks up new submissions and repairs missing
CRM rows.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withService(cmd.Context(), func(svc *service.Service) error {
				res, err := svc.ImportSubmissions(cmd.Context())
				if err != nil {
					return out.Fail("import submissions", err)
				}
				return out.Render(res, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %d, skipped %d, missing form %d, missing id %d, CRM rows created %d\n",
						res.Inserted, res.Skipped, res.MissingForm, res.MissingID, res.CRMCreated)
				})
			})
		},
	}
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "reconcile",
		Short:         "Create missing CRM rows",
		Long:          `Create a CRM row for every user that has none.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withService(cmd.Context(), func(svc *service.Service) error {
				n, err := svc.Reconcile(cmd.Context())
				if err != nil {
					return out.Fail("reconcile", err)
				}
				return out.Render(map[string]int{"created": n}, func(w io.Writer) {
					fmt.Fprintf(w, "Created %d CRM rows\n", n)
				})
			})
		},
	}
}

// NewSeedFormsCommand creates the seed-forms command.
func NewSeedFormsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-forms",
		Short: "Install the default forms",
		Long: `Install the default contact form when the forms collection has never
been written. An emptied collection stays empty.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			return rootOpts.withService(cmd.Context(), func(svc *service.Service) error {
				seeded, err := svc.SeedDefaultForms(cmd.Context())
				if err != nil {
					return out.Fail("seed forms", err)
				}
				return out.Render(map[string]bool{"seeded": seeded}, func(w io.Writer) {
					if seeded {
						fmt.Fprintln(w, "✓ default forms installed")
						return
					}
					fmt.Fprintln(w, "- forms already present")
				})
			})
		},
	}
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check references between collections",
		Long: `Report dangling references, users without CRM rows and repeated
primary keys.

Exit codes:
  0 - No issues
  1 - Issues found
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd)
		},
	}
}

func runCheck(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	report, err := relation.Check(ctx, st)
	if err != nil {
		return out.Fail("check", err)
	}
	if report.OK() {
		return out.Render(report, func(w io.Writer) {
			fmt.Fprintln(w, "✓ No issues")
		})
	}

	msg := fmt.Sprintf("%d issue(s) found", len(report.Issues))
	if out.Format == "json" {
		if err := out.Error(CodeIntegrity, msg, report.Issues); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, issue := range report.Issues {
			fmt.Fprintf(w, "✗ %s\n", issue)
		}
		fmt.Fprintln(w, msg)
	}
	return NewExitError(ExitFailure, msg)
}
