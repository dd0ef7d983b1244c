package cli

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pickup/internal/engine"
	"github.com/roach88/pickup/internal/state"
	"github.com/roach88/pickup/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	configOverrides

	// Until stops the fold after this seq; zero replays everything.
	Until int64
}

// ReplayResult is the outcome of folding a journal.
type ReplayResult struct {
	Entries       int             `json:"entries"`
	LastSeq       int64           `json:"last_seq"`
	Deterministic bool            `json:"deterministic"`
	Snapshot      SnapshotSummary `json:"snapshot"`
}

// String implements fmt.Stringer for text output.
func (r ReplayResult) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Replayed %d action(s) through seq %d.\n", r.Entries, r.LastSeq)
	if r.Deterministic {
		buf.WriteString("✓ Replay is deterministic\n\n")
	} else {
		buf.WriteString("✗ Replay diverged\n\n")
	}
	buf.WriteString(r.Snapshot.String())
	return buf.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the snapshot from the action journal",
		Long: `Rebuild the snapshot by folding the journaled actions through the
reducer, starting from the initial state for the configured seller and
pickup slot. No effects run during replay.

The journal is folded twice and the two results compared; a difference
means the reducer is not deterministic and the command exits 1.

Example:
  pickup replay --config pickup.yaml
  pickup replay --db ./pickup.db --seller seller-1 --slot 2026-10-16
  pickup replay --config pickup.yaml --until 42 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.SellerID, "seller", "", "seller id (overrides config)")
	cmd.Flags().StringVar(&opts.PickupSlot, "slot", "", "pickup slot as YYYY-MM-DD (overrides config)")
	cmd.Flags().Int64Var(&opts.Until, "until", 0, "stop after this seq (0 replays everything)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions.Config, opts.configOverrides)
	if err != nil {
		return formatter.Fail(ExitCommandError, CodeConfig, "invalid configuration", err)
	}
	installLogger(cmd.ErrOrStderr(), cfg.SlogLevel(), opts.Verbose)

	st, err := store.Open(cfg.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, CodeStore, "failed to open database", err)
	}
	defer st.Close()

	entries, err := st.QueryJournal(cmd.Context(), store.JournalQuery{Until: opts.Until})
	if err != nil {
		return formatter.Fail(ExitCommandError, CodeStore, "failed to read journal", err)
	}
	formatter.VerboseLog("replaying %d journal entries", len(entries))

	initial := state.Initial(cfg.SellerID, cfg.PickupSlot)
	first, err := engine.Replay(initial, entries, state.Reduce)
	if err != nil {
		return formatter.Fail(ExitFailure, CodeReplay, "replay failed", err)
	}
	second, err := engine.Replay(initial, entries, state.Reduce)
	if err != nil {
		return formatter.Fail(ExitFailure, CodeReplay, "replay failed", err)
	}

	result := ReplayResult{
		Entries:       len(entries),
		Deterministic: reflect.DeepEqual(first, second),
		Snapshot:      summarize(first),
	}
	if len(entries) > 0 {
		result.LastSeq = entries[len(entries)-1].Seq
	}

	if !result.Deterministic {
		if err := formatter.Error(CodeReplay, "replay is not deterministic", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "replay is not deterministic")
	}
	if len(entries) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "Journal is empty.")
		return nil
	}
	return formatter.Success(result)
}
