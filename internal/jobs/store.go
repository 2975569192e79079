package jobs

import (
	"context"
	"io"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/realtime"
	"github.com/desertthunder/genie/internal/shared"
)

const persistTimeout = 5 * time.Second

// Source names the producer of a write.
type Source string

const (
	SourceOptimistic Source = "optimistic"
	SourceFetch      Source = "fetch"
	SourceEvent      Source = "event"
)

// Notification is a user-facing message produced when a job first reaches a terminal status.
type Notification struct {
	PlanID  string
	Title   string
	Message string
	Failed  bool
}

// Change describes one resolved write that altered the store.
type Change struct {
	Plan         models.MealPlan
	Previous     *models.MealPlan
	Source       Source
	Notification *Notification
}

// Persister receives every resolved record, e.g. the sqlite cache.
type Persister interface {
	Save(ctx context.Context, plan models.MealPlan) error
}

// Store is the authoritative keyed collection of meal plans. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	plans map[string]models.MealPlan

	persister Persister
	logger    *log.Logger

	subMu   sync.RWMutex
	subs    map[int]chan Change
	nextSub int
}

// StoreOption configures a [Store].
type StoreOption func(*Store)

func WithPersister(p Persister) StoreOption {
	return func(s *Store) { s.persister = p }
}

func WithLogger(l *log.Logger) StoreOption {
	return func(s *Store) { s.logger = shared.WithLogger(l, "component", "jobs") }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		plans:  make(map[string]models.MealPlan),
		logger: log.New(io.Discard),
		subs:   make(map[int]chan Change),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertFromFetch merges a full or partial REST snapshot. It returns the number of records changed.
func (s *Store) UpsertFromFetch(plans []models.MealPlan) int {
	changed := 0
	for _, p := range plans {
		if s.write(p, SourceFetch) {
			changed++
		}
	}
	return changed
}

// InsertOptimistic records a plan the backend just accepted, before any push event arrives.
func (s *Store) InsertOptimistic(plan models.MealPlan) {
	if plan.Status == "" {
		plan.Status = models.StatusPending
	}
	s.write(plan, SourceOptimistic)
}

// ApplyEvent moves the job named by a completion or failure event to its terminal status.
// Events for ids the store has never seen insert a new terminal record.
func (s *Store) ApplyEvent(ev realtime.Event) {
	status, ok := ev.TerminalStatus()
	id := ev.PlanID()
	if !ok || id == "" {
		return
	}

	s.mu.RLock()
	base, known := s.plans[id]
	s.mu.RUnlock()

	if !known && ev.Record != nil {
		base = *ev.Record
	}
	base.ID = id
	base.Status = status

	switch status {
	case models.StatusCompleted:
		if ev.MealPlan != nil {
			base.Plan = ev.MealPlan
		} else if ev.Record != nil && ev.Record.Plan != nil {
			base.Plan = ev.Record.Plan
		}
		base.Error = ""
	case models.StatusError:
		base.Error = ev.Error
		if base.Error == "" && ev.Record != nil {
			base.Error = ev.Record.Error
		}
	}
	if base.CompletedAt == "" {
		at := ev.ReceivedAt
		if at.IsZero() {
			at = time.Now()
		}
		base.CompletedAt = at.Format(time.RFC3339)
	}
	if !known {
		s.logger.Info("event for unknown meal plan; inserting", "id", id, "status", status)
	}

	s.write(base, SourceEvent)
}

// write merges incoming under the lock and reports whether the record changed.
func (s *Store) write(incoming models.MealPlan, source Source) bool {
	if incoming.ID == "" {
		s.logger.Warn("ignored meal plan without id", "source", source)
		return false
	}

	s.mu.Lock()
	var prev *models.MealPlan
	if existing, ok := s.plans[incoming.ID]; ok {
		prev = &existing
	}
	resolved := Merge(prev, incoming)
	if prev != nil && reflect.DeepEqual(*prev, resolved) {
		s.mu.Unlock()
		if incoming.Status != prev.Status {
			s.logger.Debug("kept terminal record", "id", prev.ID, "status", prev.Status, "incoming", incoming.Status, "source", source)
		}
		return false
	}
	s.plans[resolved.ID] = resolved
	s.mu.Unlock()

	change := Change{Plan: resolved, Previous: prev, Source: source}
	if resolved.IsTerminal() && (prev == nil || !prev.IsTerminal()) {
		change.Notification = notify(resolved)
	}

	s.persist(resolved)
	s.publish(change)
	return true
}

func notify(p models.MealPlan) *Notification {
	n := &Notification{PlanID: p.ID, Title: p.Title()}
	if p.Status == models.StatusError {
		n.Failed = true
		n.Message = p.Error
		if n.Message == "" {
			n.Message = "meal plan generation failed"
		}
		return n
	}
	n.Message = "meal plan is ready"
	return n
}

func (s *Store) persist(p models.MealPlan) {
	if s.persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.persister.Save(ctx, p); err != nil {
		s.logger.Error("failed to persist meal plan", "id", p.ID, "err", err)
	}
}

// Get returns the record for id.
func (s *Store) Get(id string) (models.MealPlan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	return p, ok
}

// List returns all records, newest first. Ties are ordered by id.
func (s *Store) List() []models.MealPlan {
	s.mu.RLock()
	out := make([]models.MealPlan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := out[i].Created(), out[j].Created()
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plans)
}

// Clear drops every record, e.g. on sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = make(map[string]models.MealPlan)
}

// Subscribe returns a channel of changes. Slow subscribers miss changes rather than block writers.
func (s *Store) Subscribe(buf int) (<-chan Change, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Change, buf)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Store) publish(c Change) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
