package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lexstore/internal/refresh"
)

// WatchEvent reports the state of a watched collection.
type WatchEvent struct {
	Collection string `json:"collection"`
	Version    int64  `json:"version"`
	Records    int    `json:"records"`
	Seq        int64  `json:"seq"`
}

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Interval time.Duration
	Count    int
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <collection>",
		Short: "Poll a collection and report changes",
		Long: `Poll a collection and print a line whenever its version changes.

Polls run concurrently; a slow read that finishes after a newer one is
dropped, so the output never goes back to an older state. Runs until
interrupted, or for --count polls.

Examples:
  lexstore watch orders --interval 5s
  lexstore watch users --count 1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 2*time.Second, "time between polls")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "stop after this many polls (0 = until interrupted)")

	return cmd
}

func runWatch(opts *WatchOptions, name string, cmd *cobra.Command) error {
	kind, err := lookupKind(name)
	if err != nil {
		return err
	}
	if opts.Interval <= 0 {
		return NewExitError(ExitCommandError, "--interval must be positive")
	}
	if opts.Count < 0 {
		return NewExitError(ExitCommandError, "--count must not be negative")
	}

	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	out := opts.formatter(cmd)
	latest := refresh.New[WatchEvent]()
	fetch := func(ctx context.Context) (WatchEvent, error) {
		snap, err := st.Get(ctx, name)
		if err != nil {
			return WatchEvent{}, err
		}
		recs, err := kind.load(ctx, st)
		if err != nil {
			return WatchEvent{}, err
		}
		return WatchEvent{Collection: name, Version: snap.Version, Records: len(recs)}, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		shown    int64 = -1
		firstErr error
	)
	poll := func() {
		defer wg.Done()
		applied, err := latest.Refresh(ctx, fetch)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if ctx.Err() == nil && firstErr == nil {
				firstErr = err
			}
			return
		}
		if !applied {
			return
		}
		ev, seq, _ := latest.Value()
		if ev.Version == shown {
			return
		}
		shown = ev.Version
		ev.Seq = seq
		_ = out.Render(ev, func(w io.Writer) {
			fmt.Fprintf(w, "%s: %d records (version %d)\n", ev.Collection, ev.Records, ev.Version)
		})
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for n := 1; ; n++ {
		wg.Add(1)
		go poll()
		if opts.Count > 0 && n >= opts.Count {
			break
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-ticker.C:
		}
	}
	wg.Wait()

	if firstErr != nil {
		return out.Fail("watch "+name, firstErr)
	}
	return nil
}
