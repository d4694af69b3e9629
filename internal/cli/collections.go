package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tailscale/hujson"

	"github.com/roach88/lexstore/internal/codec"
	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/refresh"
	"github.com/roach88/lexstore/internal/relation"
	"github.com/roach88/lexstore/internal/store"
)

// collectionKind binds a collection name to its record type.
type collectionKind struct {
	// normalize validates stored text and returns its canonical encoding
	// and record count.
	normalize func(data []byte) ([]byte, int, error)
	// load reads the collection as records.
	load func(ctx context.Context, st store.CollectionStore) ([]record.Record, error)
}

func kindOf[T record.Record](name string) collectionKind {
	return collectionKind{
		normalize: func(data []byte) ([]byte, int, error) {
			recs, err := codec.Decode[T](data)
			if err != nil {
				return nil, 0, err
			}
			out, err := codec.Encode(recs)
			return out, len(recs), err
		},
		load: func(ctx context.Context, st store.CollectionStore) ([]record.Record, error) {
			recs, err := refresh.Collection[T](st, name)(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]record.Record, len(recs))
			for i, r := range recs {
				out[i] = r
			}
			return out, nil
		},
	}
}

var collectionKinds = map[string]collectionKind{
	record.CollectionCatalog:         kindOf[record.CatalogItem](record.CollectionCatalog),
	record.CollectionUsers:           kindOf[record.User](record.CollectionUsers),
	record.CollectionCRM:             kindOf[record.CrmData](record.CollectionCRM),
	record.CollectionForms:           kindOf[record.Form](record.CollectionForms),
	record.CollectionFormSubmissions: kindOf[record.FormSubmission](record.CollectionFormSubmissions),
	record.CollectionOrders:          kindOf[record.Order](record.CollectionOrders),
	record.CollectionPurchases:       kindOf[record.Purchase](record.CollectionPurchases),
	record.CollectionCourseProgress:  kindOf[record.CourseProgress](record.CollectionCourseProgress),
	record.CollectionCourses:         kindOf[record.Course](record.CollectionCourses),
}

func lookupKind(name string) (collectionKind, error) {
	k, ok := collectionKinds[name]
	if !ok {
		return collectionKind{}, NewExitError(ExitCommandError,
			fmt.Sprintf("unknown collection %q (want one of %v)", name, record.Collections))
	}
	return k, nil
}

// readJSONC reads a JSON or JSONC document from path ("-" is stdin) and
// returns standard JSON.
func readJSONC(cmd *cobra.Command, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read input", err)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid JSON in %s", path), err)
	}
	return std, nil
}

// CollectionInfo describes one stored collection.
type CollectionInfo struct {
	Name      string    `json:"name"`
	Exists    bool      `json:"exists"`
	Version   int64     `json:"version"`
	Records   int       `json:"records"`
	Digest    string    `json:"digest,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	// Readable is false when the stored text does not decode.
	Readable bool `json:"readable"`
}

// NewCollectionsCommand creates the collections command.
func NewCollectionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List collections with their versions",
		Long: `List every known collection with its version, record count and digest.

A collection that was never written shows version 0.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollections(rootOpts, cmd)
		},
	}
}

func runCollections(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	infos := make([]CollectionInfo, 0, len(record.Collections))
	for _, name := range record.Collections {
		snap, err := st.Get(ctx, name)
		if err != nil {
			return out.Fail("read "+name, err)
		}
		info := CollectionInfo{
			Name:      name,
			Exists:    snap.Exists(),
			Version:   snap.Version,
			Digest:    snap.Digest,
			UpdatedAt: snap.UpdatedAt,
			Readable:  true,
		}
		if snap.Exists() {
			_, n, err := collectionKinds[name].normalize(snap.Data)
			if err != nil {
				info.Readable = false
				out.VerboseLog("%s: %v", name, err)
			}
			info.Records = n
		}
		infos = append(infos, info)
	}

	return out.Render(infos, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tVERSION\tRECORDS\tDIGEST")
		for _, info := range infos {
			records := fmt.Sprint(info.Records)
			if !info.Readable {
				records = "unreadable"
			}
			digest := info.Digest
			if len(digest) > 12 {
				digest = digest[:12]
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", info.Name, info.Version, records, digest)
		}
		tw.Flush()
	})
}

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Key string
}

// GetResult is the JSON payload of the get command.
type GetResult struct {
	Collection string          `json:"collection"`
	Version    int64           `json:"version"`
	Records    json.RawMessage `json:"records,omitempty"`
	Record     record.Record   `json:"record,omitempty"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <collection>",
		Short: "Print a collection or one record",
		Long: `Print the stored JSON of a collection, or with --key the record whose
primary key matches.

Examples:
  lexstore get catalog
  lexstore get users --key 42 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "print only the record with this primary key")

	return cmd
}

func runGet(opts *GetOptions, name string, cmd *cobra.Command) error {
	kind, err := lookupKind(name)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	if opts.Key != "" {
		recs, err := kind.load(ctx, st)
		if err != nil {
			return out.Fail("read "+name, err)
		}
		rec, ok := relation.Find(recs, opts.Key)
		if !ok {
			_ = out.Error(CodeNotFound, fmt.Sprintf("%s/%s not found", name, opts.Key), nil)
			return NewExitError(ExitFailure, fmt.Sprintf("%s/%s not found", name, opts.Key))
		}
		return out.Render(GetResult{Collection: name, Record: rec}, func(w io.Writer) {
			data, _ := json.MarshalIndent(rec, "", "  ")
			fmt.Fprintln(w, string(data))
		})
	}

	snap, err := st.Get(ctx, name)
	if err != nil {
		return out.Fail("read "+name, err)
	}
	data := snap.Data
	if !snap.Exists() {
		data = []byte("[]")
	}
	if !json.Valid(data) {
		return out.Fail("read "+name, &codec.DecodeError{Kind: codec.KindSyntax, Record: name, Index: -1,
			Err: errors.New("stored text is not JSON")})
	}
	return out.Render(GetResult{Collection: name, Version: snap.Version, Records: data}, func(w io.Writer) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			buf.Reset()
			buf.Write(data)
		}
		fmt.Fprintln(w, buf.String())
	})
}

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	File   string
	Expect int64
}

// PutResult is the JSON payload of the put command.
type PutResult struct {
	Collection string `json:"collection"`
	Version    int64  `json:"version"`
	Records    int    `json:"records"`
	Unchanged  bool   `json:"unchanged,omitempty"`
}

// putEncoded writes already-encoded content. A write whose content matches
// what is stored keeps the version, and is reported as unchanged.
func putEncoded(ctx context.Context, st store.CollectionStore, name string, data []byte, n int, expected int64) (PutResult, error) {
	prev, err := st.Get(ctx, name)
	if err != nil {
		return PutResult{}, err
	}
	version, err := st.Put(ctx, name, data, expected)
	if err != nil {
		return PutResult{}, err
	}
	return PutResult{
		Collection: name,
		Version:    version,
		Records:    n,
		Unchanged:  prev.Exists() && version == prev.Version,
	}, nil
}

func writePutResult(w io.Writer, p PutResult) {
	if p.Unchanged {
		fmt.Fprintf(w, "- %s: %d records, unchanged (version %d)\n", p.Collection, p.Records, p.Version)
		return
	}
	fmt.Fprintf(w, "✓ %s: %d records (version %d)\n", p.Collection, p.Records, p.Version)
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <collection>",
		Short: "Replace a collection from a JSON file",
		Long: `Replace a collection with the records in a JSON (or JSONC) array.

The records are validated and written in canonical form. With --expect the
write only succeeds if the collection is still at that version (0 = must
not exist yet).

Examples:
  lexstore put catalog --file catalog.json
  lexstore put orders --file - --expect 3 < orders.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "JSON array to store (- for stdin)")
	cmd.Flags().Int64Var(&opts.Expect, "expect", store.AnyVersion, "expected current version (-1 = any)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runPut(opts *PutOptions, name string, cmd *cobra.Command) error {
	kind, err := lookupKind(name)
	if err != nil {
		return err
	}
	raw, err := readJSONC(cmd, opts.File)
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)
	data, n, err := kind.normalize(raw)
	if err != nil {
		return out.Fail("invalid "+name, err)
	}

	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := putEncoded(ctx, st, name, data, n, opts.Expect)
	if err != nil {
		return out.Fail("write "+name, err)
	}
	return out.Render(res, func(w io.Writer) {
		writePutResult(w, res)
	})
}

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	File  string
	Force bool
}

// SeedResult is the JSON payload of the seed command.
type SeedResult struct {
	Written []PutResult `json:"written"`
	Skipped []string    `json:"skipped"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load initial collections from a JSONC document",
		Long: `Load several collections at once from a JSON object mapping collection
names to record arrays. Comments and trailing commas are allowed.

Collections that already exist are left alone unless --force is given, so
seeding twice does not overwrite data entered since.

Example:
  lexstore seed --file seed.jsonc`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "JSONC document to load (- for stdin)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite existing collections")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	raw, err := readJSONC(cmd, opts.File)
	if err != nil {
		return err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return WrapExitError(ExitCommandError, "seed document must be an object of collections", err)
	}

	out := opts.formatter(cmd)
	names := make([]string, 0, len(doc))
	normalized := make(map[string][]byte, len(doc))
	counts := make(map[string]int, len(doc))
	for name, arr := range doc {
		kind, err := lookupKind(name)
		if err != nil {
			return err
		}
		data, n, err := kind.normalize(arr)
		if err != nil {
			return out.Fail("invalid "+name, err)
		}
		names = append(names, name)
		normalized[name] = data
		counts[name] = n
	}
	slices.Sort(names)

	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	expected := int64(0)
	if opts.Force {
		expected = store.AnyVersion
	}
	res := SeedResult{Written: []PutResult{}, Skipped: []string{}}
	for _, name := range names {
		p, err := putEncoded(ctx, st, name, normalized[name], counts[name], expected)
		if errors.Is(err, store.ErrVersionConflict) {
			out.VerboseLog("%s exists, skipped", name)
			res.Skipped = append(res.Skipped, name)
			continue
		}
		if err != nil {
			return out.Fail("write "+name, err)
		}
		res.Written = append(res.Written, p)
	}

	return out.Render(res, func(w io.Writer) {
		for _, p := range res.Written {
			writePutResult(w, p)
		}
		for _, name := range res.Skipped {
			fmt.Fprintf(w, "- %s: exists, skipped\n", name)
		}
	})
}
