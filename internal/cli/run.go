package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/bootstrap"
	"github.com/roach88/pickup/internal/catalog"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/effect"
	"github.com/roach88/pickup/internal/engine"
	"github.com/roach88/pickup/internal/source"
	"github.com/roach88/pickup/internal/state"
	"github.com/roach88/pickup/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	configOverrides

	// Catalog is a YAML file with the seed listing and deltas to publish.
	Catalog string

	// For stops the client after the duration; zero runs until interrupted.
	For time.Duration
}

// catalogFile is the layout of the --catalog file.
type catalogFile struct {
	Items  []domain.Item    `yaml:"items"`
	Deltas []catalog.Delta `yaml:"deltas"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the client core against the local store",
		Long: `Start the client core: the single-writer dispatch loop, the bootstrap
pipeline, the effect handlers and the collaborator stream pumps.

Every applied action is journaled to the SQLite database, continuing the
sequence of an earlier run. The catalog feed is an in-process watermill
channel seeded from --catalog; its deltas are published once bootstrap
has finished.

Example:
  pickup run --config pickup.yaml
  pickup run --seller seller-1 --slot 2026-10-16 --user u1 --catalog market.yaml
  pickup run --config pickup.yaml --for 5s --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.SellerID, "seller", "", "seller id (overrides config)")
	cmd.Flags().StringVar(&opts.PickupSlot, "slot", "", "pickup slot as YYYY-MM-DD (overrides config)")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "persisted session user id (overrides config)")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "catalog seed file (YAML)")
	cmd.Flags().DurationVar(&opts.For, "for", 0, "stop after this long (0 runs until interrupted)")

	return cmd
}

func runClient(opts *RunOptions, cmd *cobra.Command) error {
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

	var seed catalogFile
	if opts.Catalog != "" {
		seed, err = loadCatalogFile(opts.Catalog)
		if err != nil {
			return formatter.Fail(ExitCommandError, CodeConfig, "invalid catalog file", err)
		}
	}

	slog.Info("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, CodeStore, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	if opts.For > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, opts.For)
		defer stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	lastSeq, err := st.LastSeq(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, CodeStore, "failed to read journal", err)
	}

	listing := source.NewMemoryCatalog()
	listing.Seed(cfg.SellerID, seed.Items...)
	bus := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NewSlogLogger(slog.Default()))
	defer bus.Close()
	feed := source.NewWatermillCatalog(bus, listing, cfg.Feed.TopicPrefix)

	auth := source.NewMemoryAuth(cfg.UserID)
	profiles := source.NewMemoryProfiles()
	if cfg.UserID != "" {
		profiles = source.NewMemoryProfiles(domain.Profile{UserID: cfg.UserID, DisplayName: cfg.UserID})
	}

	var handler *effect.Handler
	eng := engine.New(
		state.Initial(cfg.SellerID, cfg.PickupSlot),
		engine.WithClock(engine.NewClockAt(lastSeq)),
		engine.WithJournal(st),
		engine.WithEffects(engine.EffectFunc(func(ctx context.Context, a action.Action, prev, next state.Snapshot) {
			handler.Handle(ctx, a, prev, next)
		})),
	)
	handler = effect.New(eng, effect.Deps{
		Auth:          auth,
		Authenticator: auth,
		Profiles:      profiles,
		Orders:        st.Orders(),
		Catalog:       feed,
		Basket:        st.Basket(),
	}, effect.WithBackoff(effect.Backoff{
		Initial: cfg.Feed.RetryInitial,
		Max:     cfg.Feed.RetryMax,
		Tries:   effect.DefaultBackoff().Tries,
	}))
	pipeline := bootstrap.New(eng, bootstrap.Sources{
		Auth:     auth,
		Profiles: profiles,
		Orders:   st.Orders(),
		Catalog:  feed,
		Basket:   st.Basket(),
	}, cfg.SellerID, cfg.PickupSlot)

	// The subscription closes when the loop stops.
	updates, _ := eng.Subscribe()
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		for s := range updates {
			formatter.VerboseLog("seq %d: step=%s screen=%s lines=%d", s.Seq, s.Meta.Step, s.Screen(), len(s.Basket.Draft.Lines))
		}
	}()

	slog.Info("client starting", "seller", cfg.SellerID, "slot", cfg.PickupSlot, "resume_seq", lastSeq)
	if opts.Format != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "Client started for seller %s, pickup %s.\n", cfg.SellerID, cfg.PickupSlot)
		fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return handler.Run(gctx, cfg.SellerID) })
	g.Go(func() error {
		step, err := pipeline.Run(gctx)
		if err != nil {
			return err
		}
		slog.Info("bootstrap finished", "step", step.String())
		for _, d := range seed.Deltas {
			if err := source.PublishDelta(bus, cfg.Feed.TopicPrefix, cfg.SellerID, d); err != nil {
				return err
			}
		}
		return nil
	})

	runErr := g.Wait()
	handler.Wait()
	<-watched

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return formatter.Fail(ExitFailure, CodeStore, "client stopped with an error", runErr)
	}

	slog.Info("client stopped gracefully")
	return formatter.Success(summarize(eng.State()))
}

func loadCatalogFile(path string) (catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return catalogFile{}, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return catalogFile{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for i, d := range f.Deltas {
		if !d.Mode.Valid() {
			return catalogFile{}, fmt.Errorf("parse catalog %s: deltas[%d]: unknown mode %q", path, i, d.Mode)
		}
		if d.Item.ID == "" {
			return catalogFile{}, fmt.Errorf("parse catalog %s: deltas[%d]: item id is required", path, i)
		}
	}
	return f, nil
}
