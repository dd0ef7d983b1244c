package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pickup/internal/state"
)

// Digest renders a run as plain text for golden comparison: the applied
// kinds in seq order followed by a summary of the final snapshot.
func Digest(name string, result *Result) []byte {
	var buf strings.Builder

	fmt.Fprintf(&buf, "scenario: %s\n", name)
	buf.WriteString("trace:\n")
	for _, ev := range result.Trace {
		fmt.Fprintf(&buf, "  %d %s\n", ev.Seq, ev.Kind)
	}

	s := result.Final
	buf.WriteString("final:\n")
	fmt.Fprintf(&buf, "  seq: %d\n", s.Seq)
	fmt.Fprintf(&buf, "  step: %s\n", s.Meta.Step)
	fmt.Fprintf(&buf, "  user: %s\n", userLine(s.User))
	fmt.Fprintf(&buf, "  screen: %s\n", s.Screen())
	fmt.Fprintf(&buf, "  items: %s\n", itemsLine(s))
	fmt.Fprintf(&buf, "  basket: %s\n", basketLine(s))
	fmt.Fprintf(&buf, "  total: %s\n", s.Basket.Draft.Total())
	fmt.Fprintf(&buf, "  order: %s\n", orderLine(s))
	fmt.Fprintf(&buf, "  merge: %s\n", mergeLine(s))
	fmt.Fprintf(&buf, "  dialog: %s\n", orNone(string(s.UI.Dialog.Kind)))
	if in := s.UI.Inline; in != nil {
		fmt.Fprintf(&buf, "  inline: %s: %s\n", in.Field, in.Message)
	} else {
		buf.WriteString("  inline: none\n")
	}
	fmt.Fprintf(&buf, "  snackbar: %s\n", orNone(s.UI.Snackbar.Message))

	return []byte(buf.String())
}

func userLine(u state.User) string {
	if u.ID == "" {
		return string(u.Status)
	}
	return string(u.Status) + " " + u.ID
}

func itemsLine(s state.Snapshot) string {
	if len(s.Products.Items) == 0 {
		return "none"
	}
	ids := make([]string, len(s.Products.Items))
	for i, it := range s.Products.Items {
		ids[i] = it.ID
	}
	return strings.Join(ids, " ")
}

func basketLine(s state.Snapshot) string {
	if s.Basket.Draft.IsEmpty() {
		return "empty"
	}
	lines := make([]string, len(s.Basket.Draft.Lines))
	for i, l := range s.Basket.Draft.Lines {
		lines[i] = fmt.Sprintf("%s=%s@%s", l.ProductID, l.Quantity, l.Price)
	}
	return strings.Join(lines, " ")
}

func orderLine(s state.Snapshot) string {
	o := s.Basket.CurrentOrder
	if o == nil {
		return "none"
	}
	if s.Basket.ReadOnly {
		return fmt.Sprintf("%s %s read-only", o.ID, o.Status)
	}
	return fmt.Sprintf("%s %s", o.ID, o.Status)
}

func mergeLine(s state.Snapshot) string {
	m := s.Basket.Merge
	if m == nil {
		return "none"
	}
	return fmt.Sprintf("%d pending of %d", m.Pending(), len(m.Conflicts))
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}

// RunWithGolden executes a scenario and compares its digest against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Digest(name, result))
}
