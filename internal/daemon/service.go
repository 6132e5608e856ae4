// Package daemon runs fintrack as a long-lived service: the HTTP API plus
// a periodic ledger snapshot with an event feed of what changed.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/fintrack/internal/market"
	"github.com/theirongolddev/fintrack/internal/model"
	"github.com/theirongolddev/fintrack/internal/pipeline"
	"github.com/theirongolddev/fintrack/internal/realtime"
	"github.com/theirongolddev/fintrack/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	Interval     time.Duration
	EventsBuffer int
	Driver       string
}

// Ledger is the data the snapshot is computed from.
type Ledger interface {
	ListTransactions(ctx context.Context, f store.TxFilter) ([]model.Transaction, error)
	UserIDs(ctx context.Context) ([]string, error)
}

// Snapshot is the month-to-date state across all users.
type Snapshot struct {
	At           time.Time       `json:"at"`
	Month        string          `json:"month"`
	Users        int             `json:"users"`
	Transactions int             `json:"transactions"`
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	Net          decimal.Decimal `json:"net"`
	SavingsRate  float64         `json:"savings_rate"`
	SpendPerDay  decimal.Decimal `json:"spend_per_day"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	Users        int             `json:"users"`
	Transactions int             `json:"transactions"`
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
}

func (d Delta) isZero() bool {
	return d.Users == 0 &&
		d.Transactions == 0 &&
		d.Income.IsZero() &&
		d.Expense.IsZero()
}

// Event is emitted whenever the snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Event types.
const (
	EventSnapshot    = "snapshot"
	EventLedgerDelta = "ledger_delta"
	EventMonthRolled = "month_rolled"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time         `json:"started_at"`
	LastPollAt      time.Time         `json:"last_poll_at"`
	PollIntervalSec int               `json:"poll_interval_sec"`
	PollCount       int64             `json:"poll_count"`
	Driver          string            `json:"driver"`
	Summary         Snapshot          `json:"summary"`
	LastError       string            `json:"last_error,omitempty"`
	EventCount      int               `json:"event_count"`
	SubscriberCount int               `json:"subscriber_count"`
	HubSubscribers  int               `json:"hub_subscribers"`
	MarketSymbols   []string          `json:"market_symbols"`
	RecentChanges   []realtime.Change `json:"recent_changes"`
}

// Service provides the daemon runtime.
type Service struct {
	cfg    Config
	ledger Ledger
	hub    *realtime.Hub
	market *market.Registry
	now    func() time.Time

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service. hub and reg may be nil.
func New(cfg Config, ledger Ledger, hub *realtime.Hub, reg *market.Registry) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}

	return &Service{
		cfg:       cfg,
		ledger:    ledger,
		hub:       hub,
		market:    reg,
		now:       time.Now,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler wraps api with the daemon's own event endpoints.
func (s *Service) Handler(api http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/events/stream", s.handleStream)
	mux.Handle("/", api)
	return mux
}

// Run serves api and refreshes the snapshot until ctx is canceled. A
// committed transaction write triggers an early refresh.
func (s *Service) Run(ctx context.Context, api http.Handler) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(api),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var changes <-chan realtime.Change
	if s.hub != nil {
		ch, cancel := s.hub.Subscribe(store.TableTransactions)
		defer cancel()
		changes = ch
	}

	// Seed the snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case <-changes:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	now := s.now()
	snap, err := s.computeSnapshot(ctx, now)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		log.Printf("fintrack daemon poll error: %v", err)
		return
	}

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	switch {
	case !prevExists:
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: EventSnapshot, Timestamp: now, Snapshot: snap}
		publish = true
	case prev.Month != snap.Month:
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: EventMonthRolled, Timestamp: now, Snapshot: snap}
		publish = true
	default:
		if delta := diffSnapshots(prev, snap); !delta.isZero() {
			s.nextEventID++
			ev = Event{ID: s.nextEventID, Type: EventLedgerDelta, Timestamp: now, Snapshot: snap, Delta: delta}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func (s *Service) computeSnapshot(ctx context.Context, now time.Time) (Snapshot, error) {
	since := pipeline.StartOfMonth(now)
	txs, err := s.ledger.ListTransactions(ctx, store.TxFilter{Since: since})
	if err != nil {
		return Snapshot{}, err
	}
	users, err := s.ledger.UserIDs(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	sum := pipeline.Aggregate(txs, since, now)
	return Snapshot{
		At:           now,
		Month:        since.Format("2006-01"),
		Users:        len(users),
		Transactions: sum.Transactions,
		Income:       sum.Income,
		Expense:      sum.Expense,
		Net:          sum.Net,
		SavingsRate:  sum.SavingsRate,
		SpendPerDay:  sum.SpendPerDay,
	}, nil
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Users:        curr.Users - prev.Users,
		Transactions: curr.Transactions - prev.Transactions,
		Income:       curr.Income.Sub(prev.Income),
		Expense:      curr.Expense.Sub(prev.Expense),
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

// Status reports the runtime state.
func (s *Service) Status() Status {
	s.mu.RLock()
	st := Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Driver:          s.cfg.Driver,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
		MarketSymbols:   []string{},
		RecentChanges:   []realtime.Change{},
	}
	s.mu.RUnlock()

	if s.hub != nil {
		st.HubSubscribers = s.hub.SubscriberCount()
		st.RecentChanges = s.hub.Recent(10)
	}
	if s.market != nil {
		st.MarketSymbols = s.market.ActiveSymbols()
	}
	return st
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	if !realtime.PrepareSSE(w) {
		return
	}

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	current := Event{
		Type:      EventSnapshot,
		Timestamp: s.now(),
		Snapshot:  s.Status().Summary,
	}
	if err := realtime.WriteSSE(w, current.Type, current); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if err := realtime.WriteSSE(w, ev.Type, ev); err != nil {
				return
			}
		}
	}
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
