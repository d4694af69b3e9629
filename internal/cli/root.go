package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/lexstore/internal/config"
	"github.com/roach88/lexstore/internal/service"
	"github.com/roach88/lexstore/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	EnvFile    string
	Backend    string
	DSN        string

	// Config is resolved by the root command before any subcommand runs.
	Config config.Config
	loaded bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the lexstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lexstore",
		Short: "lexstore - local collection store",
		Long: `Inspect and operate the collections behind the legal-services client app.

Collections are stored whole, one JSON array per name, in SQLite, a
directory of files, Postgres, Redis or memory. Settings come from
lexstore.yaml, .env and LEXSTORE_* variables; flags win over all of them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.resolve()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "settings file (default lexstore.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file (default .env if present)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", fmt.Sprintf("storage backend %v", store.Backends))
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "backend location (file path, directory or URL)")

	cmd.AddCommand(NewCollectionsCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewFilterCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewSubmissionsCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewImportSubmissionsCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewSeedFormsCommand(opts))
	cmd.AddCommand(NewCompleteLessonCommand(opts))
	cmd.AddCommand(NewProgressCommand(opts))
	cmd.AddCommand(NewRecordOrderCommand(opts))
	cmd.AddCommand(NewRecordPurchaseCommand(opts))
	cmd.AddCommand(NewSalesCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// resolve loads settings, applies flag overrides and installs the default
// logger. It runs once per process.
func (o *RootOptions) resolve() error {
	if o.loaded {
		return nil
	}
	cfg, err := config.Load(config.Sources{File: o.ConfigFile, EnvFile: o.EnvFile})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
		if cfg.Backend == store.BackendMemory {
			cfg.DSN = ""
		}
	}
	if o.DSN != "" {
		cfg.DSN = o.DSN
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	o.Config = cfg
	o.loaded = true
	slog.SetDefault(cfg.NewLogger(os.Stderr, o.Verbose))
	slog.Debug("settings resolved", "backend", cfg.Backend, "dsn", cfg.DSN)
	return nil
}

// openStore resolves settings if needed and opens the configured backend.
func (o *RootOptions) openStore(ctx context.Context) (store.CollectionStore, error) {
	if err := o.resolve(); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, o.Config.StoreOptions())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return st, nil
}

// withService opens the store, runs fn with a Service over it and closes
// the store afterwards.
func (o *RootOptions) withService(ctx context.Context, fn func(*service.Service) error) error {
	st, err := o.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Warn("close store", "error", cerr)
		}
	}()
	return fn(service.New(st))
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
