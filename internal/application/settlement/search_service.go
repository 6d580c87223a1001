package settlement

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arbo/backend/internal/domain/settlement"
	"github.com/arbo/backend/internal/infrastructure/config"
	applog "github.com/arbo/backend/internal/infrastructure/logger"
)

// SearchService debounces reference-data lookups while the operator types.
// Each field (customer box, credit-note box) gets its own dispatcher: a
// keystroke restarts the quiet period, and only the latest issued lookup
// may deliver results. A slow older response is dropped as soon as a newer
// query exists, even one still in flight, so it can never overwrite
// fresher hits or a cleared field.
type SearchService struct {
	customers settlement.CustomerSearcher
	notes     settlement.CreditNoteSearcher
	cfg       config.SearchConfig
	logger    *zap.Logger

	customerDispatch *dispatcher
	noteDispatch     *dispatcher
}

// NewSearchService creates a new SearchService
func NewSearchService(
	customers settlement.CustomerSearcher,
	notes settlement.CreditNoteSearcher,
	cfg config.SearchConfig,
	logger *zap.Logger,
) *SearchService {
	return &SearchService{
		customers:        customers,
		notes:            notes,
		cfg:              cfg,
		logger:           logger.Named("search"),
		customerDispatch: newDispatcher(cfg.DebounceInterval),
		noteDispatch:     newDispatcher(cfg.DebounceInterval),
	}
}

// QueueCustomerSearch schedules a debounced customer lookup. Terms shorter
// than the minimum clear the results immediately without a round trip.
// deliver runs on the dispatcher goroutine once the quiet period elapses,
// and only while the lookup is still the latest issued.
func (s *SearchService) QueueCustomerSearch(ctx context.Context, term string, deliver func([]settlement.CustomerHit)) {
	term = strings.TrimSpace(term)
	if len(term) < s.cfg.MinTermLength {
		s.customerDispatch.cancel()
		deliver(nil)
		return
	}

	s.customerDispatch.schedule(func(seq uint64) {
		hits, err := s.customers.Search(ctx, term, s.cfg.PageSize)
		if err != nil {
			applog.Resolve(ctx, s.logger).Warn("Customer search failed", zap.String("term", term), zap.Error(err))
			hits = nil
		}
		if s.customerDispatch.deliverable(seq) {
			deliver(hits)
		}
	})
}

// QueueCreditNoteSearch schedules a debounced credit-note lookup scoped to
// the session's customer.
func (s *SearchService) QueueCreditNoteSearch(ctx context.Context, customerID uuid.UUID, term string, deliver func([]settlement.CreditNote)) {
	term = strings.TrimSpace(term)
	if len(term) < s.cfg.MinTermLength {
		s.noteDispatch.cancel()
		deliver(nil)
		return
	}

	filter := settlement.CreditNoteFilter{
		Term:     term,
		PageSize: s.cfg.PageSize,
	}
	if customerID != uuid.Nil {
		id := customerID
		filter.CustomerID = &id
	}

	s.noteDispatch.schedule(func(seq uint64) {
		notes, err := s.notes.SearchEligible(ctx, filter)
		if err != nil {
			applog.Resolve(ctx, s.logger).Warn("Credit note search failed", zap.String("term", term), zap.Error(err))
			notes = nil
		}
		if s.noteDispatch.deliverable(seq) {
			deliver(notes)
		}
	})
}

// dispatcher serializes one field's lookups: a pending timer is replaced on
// every schedule call, and each call issues a new sequence number. Only the
// latest issued sequence may deliver, so a response goes stale the moment a
// newer query is issued, even while that newer lookup is still in flight.
type dispatcher struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	nextSeq uint64
}

func newDispatcher(interval time.Duration) *dispatcher {
	return &dispatcher{interval: interval}
}

// schedule restarts the quiet period and invalidates any outstanding lookup.
// When the period elapses, run fires on the timer goroutine carrying the
// sequence issued here.
func (d *dispatcher) schedule(run func(seq uint64)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.nextSeq++
	seq := d.nextSeq
	d.timer = time.AfterFunc(d.interval, func() {
		run(seq)
	})
}

// cancel stops any pending timer and invalidates lookups already in flight,
// so a response for an abandoned term cannot overwrite a cleared field.
func (d *dispatcher) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.nextSeq++
}

// deliverable reports whether seq is still the latest issued lookup
func (d *dispatcher) deliverable(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return seq == d.nextSeq
}
