package effect

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/pickup/internal/action"
	"github.com/roach88/pickup/internal/domain"
	"github.com/roach88/pickup/internal/source"
)

// persist writes the difference between two draft line lists to basket
// persistence. Writes are applied in dispatch order.
func (h *Handler) persist(ctx context.Context, prev, next []domain.OrderedLine) {
	if h.deps.Basket == nil {
		return
	}
	for _, w := range diffLines(prev, next) {
		w := w
		h.writes.do(func() {
			if err := w.apply(ctx, h.deps.Basket); err != nil {
				slog.Warn("basket write failed", "op", w.op, "product_id", w.line.ProductID, "error", err)
				h.dispatch.Dispatch(action.PersistFailed{Error: domain.Classify(err)})
			}
		})
	}
}

func (h *Handler) clearBasket(ctx context.Context) {
	if h.deps.Basket == nil {
		return
	}
	h.writes.do(func() {
		if err := h.deps.Basket.Clear(ctx); err != nil {
			slog.Warn("basket clear failed", "error", err)
			h.dispatch.Dispatch(action.PersistFailed{Error: domain.Classify(err)})
		}
	})
}

type writeOp string

const (
	opAdd    writeOp = "add"
	opUpdate writeOp = "update"
	opRemove writeOp = "remove"
)

type lineWrite struct {
	op   writeOp
	line domain.OrderedLine
}

func (w lineWrite) apply(ctx context.Context, p source.BasketPersistence) error {
	switch w.op {
	case opAdd:
		return p.Add(ctx, w.line)
	case opUpdate:
		return p.Update(ctx, w.line)
	default:
		return p.Remove(ctx, w.line.ProductID)
	}
}

// diffLines lists the writes that turn prev into next: removals first in
// prev order, then additions and updates in next order.
func diffLines(prev, next []domain.OrderedLine) []lineWrite {
	before := make(map[string]domain.OrderedLine, len(prev))
	for _, l := range prev {
		before[l.ProductID] = l
	}
	after := make(map[string]struct{}, len(next))
	for _, l := range next {
		after[l.ProductID] = struct{}{}
	}

	var writes []lineWrite
	for _, l := range prev {
		if _, ok := after[l.ProductID]; !ok {
			writes = append(writes, lineWrite{op: opRemove, line: l})
		}
	}
	for _, l := range next {
		old, ok := before[l.ProductID]
		switch {
		case !ok:
			writes = append(writes, lineWrite{op: opAdd, line: l})
		case !old.SameTerms(l):
			writes = append(writes, lineWrite{op: opUpdate, line: l})
		}
	}
	return writes
}

// serial runs jobs one at a time in submission order on a background
// goroutine that exits once the queue is empty.
type serial struct {
	mu      sync.Mutex
	jobs    []func()
	running bool
	wg      *sync.WaitGroup
}

func (s *serial) do(job func()) {
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		for {
			s.mu.Lock()
			if len(s.jobs) == 0 {
				s.running = false
				s.mu.Unlock()
				return
			}
			next := s.jobs[0]
			s.jobs = s.jobs[1:]
			s.mu.Unlock()
			s.run(next)
		}
	}()
}

func (s *serial) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("basket write panicked", "panic", r)
		}
	}()
	job()
}
