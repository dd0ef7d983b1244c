package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/pickup/internal/config"
	"github.com/roach88/pickup/internal/state"
)

// configOverrides are flag values that replace configuration file values
// when set.
type configOverrides struct {
	Database   string
	SellerID   string
	PickupSlot string
	UserID     string
}

// loadConfig reads the optional configuration file, applies flag overrides
// and validates the result against the schema.
func loadConfig(path string, o configOverrides) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.SellerID != "" {
		cfg.SellerID = o.SellerID
	}
	if o.PickupSlot != "" {
		cfg.PickupSlot = o.PickupSlot
	}
	if o.UserID != "" {
		cfg.UserID = o.UserID
	}
	return cfg.Resolve()
}

// installLogger routes slog to w. --verbose always wins over the configured
// level.
func installLogger(w io.Writer, level slog.Level, verbose bool) {
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// SnapshotSummary is the printable outline of a snapshot.
type SnapshotSummary struct {
	Seq              int64    `json:"seq"`
	Step             string   `json:"step"`
	User             string   `json:"user"`
	Screen           string   `json:"screen"`
	Items            int      `json:"items"`
	Lines            []string `json:"lines"`
	Total            string   `json:"total"`
	Order            string   `json:"order,omitempty"`
	PendingConflicts int      `json:"pending_conflicts"`
}

func summarize(s state.Snapshot) SnapshotSummary {
	sum := SnapshotSummary{
		Seq:              s.Seq,
		Step:             s.Meta.Step.String(),
		User:             string(s.User.Status),
		Screen:           string(s.Screen()),
		Items:            len(s.Products.Items),
		Lines:            make([]string, 0, len(s.Basket.Draft.Lines)),
		Total:            s.Basket.Draft.Total().String(),
		PendingConflicts: s.Basket.Merge.Pending(),
	}
	if s.User.ID != "" {
		sum.User += " " + s.User.ID
	}
	for _, l := range s.Basket.Draft.Lines {
		sum.Lines = append(sum.Lines, fmt.Sprintf("%s=%s@%s", l.ProductID, l.Quantity, l.Price))
	}
	if o := s.Basket.CurrentOrder; o != nil {
		sum.Order = fmt.Sprintf("%s %s", o.ID, o.Status)
	}
	return sum
}

// String implements fmt.Stringer for text output.
func (s SnapshotSummary) String() string {
	var buf strings.Builder
	line := func(label string, value any) {
		fmt.Fprintf(&buf, "%-9s %v\n", label+":", value)
	}

	line("seq", s.Seq)
	line("step", s.Step)
	line("user", s.User)
	line("screen", s.Screen)
	line("items", s.Items)
	if len(s.Lines) == 0 {
		line("basket", "empty")
	} else {
		line("basket", strings.Join(s.Lines, ", "))
	}
	line("total", s.Total)
	if s.Order == "" {
		line("order", "none")
	} else {
		line("order", s.Order)
	}
	line("merge", fmt.Sprintf("%d pending", s.PendingConflicts))

	return strings.TrimSuffix(buf.String(), "\n")
}
