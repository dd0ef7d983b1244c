package store

import (
	"context"
	"testing"
	"time"

	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/testutil"
)

func TestOrders_SaveAndLoad(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	in := testutil.Order("o1", domain.OrderStatusPlaced,
		testutil.Line("p2", "1", "1.00"),
		testutil.Line("p1", "2", "2.50"),
	)
	if err := s.Orders().SaveOrder(ctx, in); err != nil {
		t.Fatalf("SaveOrder() failed: %v", err)
	}

	out, err := s.Orders().LoadOrder(ctx, "u1", "2026-10-16")
	if err != nil {
		t.Fatalf("LoadOrder() failed: %v", err)
	}
	if out == nil {
		t.Fatal("LoadOrder() returned nil")
	}
	if out.ID != "o1" || out.SellerID != "seller-1" || out.Status != domain.OrderStatusPlaced {
		t.Errorf("got order %+v", out)
	}
	if !out.CreatedDate.Equal(in.CreatedDate) || !out.PickupDate.Equal(in.PickupDate) {
		t.Errorf("dates = %v / %v, want %v / %v", out.CreatedDate, out.PickupDate, in.CreatedDate, in.PickupDate)
	}
	if got := lineIDs(out.Lines); len(got) != 2 || got[0] != "p2" || got[1] != "p1" {
		t.Errorf("lines = %v, want [p2 p1]", got)
	}
	if !out.Lines[1].Price.Equal(testutil.Dec("2.50")) {
		t.Errorf("p1 price = %s, want 2.50", out.Lines[1].Price)
	}
}

func TestOrders_LoadMissingIsNil(t *testing.T) {
	s := createTestStore(t)

	out, err := s.Orders().LoadOrder(context.Background(), "u1", "2026-10-16")
	if err != nil {
		t.Fatalf("LoadOrder() failed: %v", err)
	}
	if out != nil {
		t.Errorf("LoadOrder() = %+v, want nil", out)
	}
}

func TestOrders_SaveReplacesByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := testutil.Order("o1", domain.OrderStatusPlaced, testutil.Line("p1", "1", "1.00"), testutil.Line("p2", "1", "1.00"))
	if err := s.Orders().SaveOrder(ctx, first); err != nil {
		t.Fatalf("SaveOrder() failed: %v", err)
	}
	second := testutil.Order("o1", domain.OrderStatusLocked, testutil.Line("p3", "4", "1.00"))
	if err := s.Orders().SaveOrder(ctx, second); err != nil {
		t.Fatalf("SaveOrder() failed: %v", err)
	}

	out, err := s.Orders().LoadOrder(ctx, "u1", "2026-10-16")
	if err != nil || out == nil {
		t.Fatalf("LoadOrder() = %v, %v", out, err)
	}
	if out.Status != domain.OrderStatusLocked {
		t.Errorf("status = %s, want LOCKED", out.Status)
	}
	if got := lineIDs(out.Lines); len(got) != 1 || got[0] != "p3" {
		t.Errorf("lines = %v, want [p3]", got)
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM order_lines").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("order_lines rows = %d, want 1", n)
	}
}

func TestOrders_LoadPicksNewest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	older := testutil.Order("o1", domain.OrderStatusCancelled)
	newer := testutil.Order("o2", domain.OrderStatusPlaced)
	newer.CreatedDate = older.CreatedDate.Add(time.Minute)
	other := testutil.Order("o3", domain.OrderStatusPlaced)
	other.PickupSlot = "2026-10-17"
	other.CreatedDate = older.CreatedDate.Add(time.Hour)

	for _, o := range []domain.StoredOrder{newer, older, other} {
		if err := s.Orders().SaveOrder(ctx, o); err != nil {
			t.Fatalf("SaveOrder(%s) failed: %v", o.ID, err)
		}
	}

	out, err := s.Orders().LoadOrder(ctx, "u1", "2026-10-16")
	if err != nil || out == nil {
		t.Fatalf("LoadOrder() = %v, %v", out, err)
	}
	if out.ID != "o2" {
		t.Errorf("LoadOrder() = %s, want o2", out.ID)
	}
}

func TestOrders_ListAndObserve(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := testutil.Order("a", domain.OrderStatusPlaced, testutil.Line("p1", "1", "1.00"))
	if err := s.Orders().SaveOrder(ctx, a); err != nil {
		t.Fatalf("SaveOrder() failed: %v", err)
	}
	elsewhere := testutil.Order("x", domain.OrderStatusPlaced)
	elsewhere.SellerID = "seller-2"
	if err := s.Orders().SaveOrder(ctx, elsewhere); err != nil {
		t.Fatalf("SaveOrder() failed: %v", err)
	}

	ch, err := s.Orders().ObserveOrders(ctx, "seller-1")
	if err != nil {
		t.Fatalf("ObserveOrders() failed: %v", err)
	}
	first := receive(t, ch)
	if len(first) != 1 || first[0].ID != "a" || len(first[0].Lines) != 1 {
		t.Fatalf("first delivery = %+v, want [a] with its line", first)
	}

	b := testutil.Order("b", domain.OrderStatusPlaced)
	b.CreatedDate = a.CreatedDate.Add(time.Second)
	if err := s.Orders().SaveOrder(ctx, b); err != nil {
		t.Fatalf("SaveOrder() failed: %v", err)
	}
	second := receive(t, ch)
	if len(second) != 2 || second[0].ID != "a" || second[1].ID != "b" {
		t.Errorf("second delivery = %v, want [a b]", second)
	}

	list, err := s.Orders().List(ctx, "seller-2")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "x" {
		t.Errorf("List(seller-2) = %v, want [x]", list)
	}
}
