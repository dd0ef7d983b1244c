package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pickup/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	After    int64
	Kind     string
	Limit    int
}

// TraceLine is one journal entry as printed by trace.
type TraceLine struct {
	Seq     int64           `json:"seq"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TraceResult is the output of the trace command.
type TraceResult struct {
	Lines []TraceLine    `json:"lines"`
	Kinds map[string]int `json:"kinds"`
	Total int            `json:"total"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the action journal",
		Long: `Print journaled actions in seq order.

--kind filters by kind prefix, so "basket." shows every basket action
and "merge.apply" shows only that kind.

Example:
  pickup trace --db ./pickup.db
  pickup trace --config pickup.yaml --kind basket.
  pickup trace --db ./pickup.db --after 100 --limit 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only entries with seq greater than this")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only kinds with this prefix")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries to print (0 prints all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	dbPath := opts.Database
	if dbPath == "" {
		cfg, err := loadConfig(opts.RootOptions.Config, configOverrides{})
		if err != nil {
			return formatter.Fail(ExitCommandError, CodeConfig, "invalid configuration", err)
		}
		dbPath = cfg.Database
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, CodeStore, "failed to open database", err)
	}
	defer st.Close()

	entries, err := st.QueryJournal(cmd.Context(), store.JournalQuery{
		After:      opts.After,
		KindPrefix: opts.Kind,
		Limit:      opts.Limit,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, CodeStore, "failed to read journal", err)
	}

	result := TraceResult{Lines: make([]TraceLine, 0, len(entries)), Kinds: map[string]int{}}
	for _, e := range entries {
		result.Lines = append(result.Lines, TraceLine{Seq: e.Seq, Kind: e.Envelope.Kind, Payload: e.Envelope.Payload})
		result.Kinds[e.Envelope.Kind]++
	}
	result.Total = len(result.Lines)

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	if result.Total == 0 {
		fmt.Fprintln(w, "No journal entries.")
		return nil
	}
	for _, l := range result.Lines {
		if len(l.Payload) == 0 || string(l.Payload) == "{}" || string(l.Payload) == "null" {
			fmt.Fprintf(w, "%6d  %s\n", l.Seq, l.Kind)
			continue
		}
		fmt.Fprintf(w, "%6d  %-28s %s\n", l.Seq, l.Kind, l.Payload)
	}
	fmt.Fprintf(w, "\n%d entries\n", result.Total)
	return nil
}
