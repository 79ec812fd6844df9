// Package engine is the single writer of the active game save. Every
// mutation runs against a cloned draft, passes the invariant rules, replaces
// the active save, is persisted, and finally publishes change events.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tycooncore/internal/config"
	"tycooncore/internal/economy"
	"tycooncore/internal/notify"
	"tycooncore/internal/progression"
	"tycooncore/internal/savestore"
	"tycooncore/pkg/domain"
)

// Service owns the active save and the confirmation state machines.
type Service struct {
	mu sync.Mutex

	store   *savestore.Store
	balance config.Balance
	ranks   progression.RankTable
	rules   *domain.RulesEngine

	notifier *notify.Notifier
	logger   Logger
	clock    Clock
	metrics  MetricsRecorder
	tracer   Tracer
	audit    AuditRecorder

	save           *domain.GameSave
	pendingMove    *PendingReassignment
	pendingUpgrade *PendingUpgrade
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMetricsRecorder attaches an operation metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer attaches a tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAuditRecorder attaches an audit trail.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithNotifier publishes change events to n instead of a private notifier.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithRules replaces the default invariant rules.
func WithRules(r *domain.RulesEngine) Option {
	return func(s *Service) {
		if r != nil {
			s.rules = r
		}
	}
}

// New builds a service over store. The store's balance supplies the rank
// table, upgrade curve and catalog.
func New(store *savestore.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("engine: save store is required")
	}
	balance := store.Balance()
	if err := balance.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	ranks, err := balance.RankTable()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	s := &Service{
		store:    store,
		balance:  balance,
		ranks:    ranks,
		rules:    DefaultRules(),
		notifier: notify.New(),
		logger:   noopLogger{},
		clock:    ClockFunc(time.Now),
		metrics:  noopMetrics{},
		tracer:   noopTracer{},
		audit:    noopAudit{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Notifier returns the channel change events are published on.
func (s *Service) Notifier() *notify.Notifier { return s.notifier }

// Balance returns the gameplay tuning in use.
func (s *Service) Balance() config.Balance { return s.balance }

// Rules returns the registered rule names.
func (s *Service) Rules() []string { return s.rules.Rules() }

// Save returns a copy of the active save.
func (s *Service) Save() (domain.GameSave, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.save == nil {
		return domain.GameSave{}, false
	}
	return s.save.Clone(), true
}

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// run serializes fn with every other operation and records its outcome.
// Events returned by fn are published after the lock is released so that
// subscribers may call back into the service.
func (s *Service) run(ctx context.Context, op, entityID string, fn func(ctx context.Context) ([]notify.Event, error)) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)

	s.mu.Lock()
	events, err := fn(ctx)
	s.mu.Unlock()

	for _, e := range events {
		s.notifier.Publish(e)
	}

	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	entry := AuditEntry{Operation: op, EntityID: entityID, Status: AuditStatusSuccess, Duration: duration, At: start.UTC()}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
	s.logOutcome(op, entityID, err)
	return err
}

func (s *Service) logOutcome(op, entityID string, err error) {
	var (
		integrity   *domain.IntegrityError
		persistence *domain.PersistenceError
		validation  *domain.ValidationError
	)
	switch {
	case err == nil:
		s.logger.Debug("operation committed", "op", op, "entity", entityID)
	case errors.As(err, &validation):
		s.logger.Debug("operation rejected", "op", op, "entity", entityID, "reason", validation.Reason)
	case errors.As(err, &integrity):
		s.logger.Warn("operation references unknown record", "op", op, "entity_type", integrity.Entity, "id", integrity.ID)
	case errors.As(err, &persistence):
		s.logger.Error("save not persisted", "op", op, "quota", persistence.Quota, "error", persistence.Err)
	default:
		s.logger.Error("operation failed", "op", op, "entity", entityID, "error", err)
	}
}

// txn is the draft a mutation works on.
type txn struct {
	save    *domain.GameSave
	balance config.Balance
	now     time.Time
	changes []domain.Change
	events  []notify.Event
}

func (t *txn) record(entity domain.EntityType, id, action string) {
	t.changes = append(t.changes, domain.Change{Entity: entity, EntityID: id, Action: action})
}

func (t *txn) emit(e notify.Event) { t.events = append(t.events, e) }

func (t *txn) adjustFunds(delta int, reason string) {
	if delta == 0 {
		return
	}
	t.save.Finance.Funds += delta
	t.emit(notify.FundsChanged{Funds: t.save.Finance.Funds, Delta: delta, Reason: reason})
}

func (t *txn) bar(id string) (*domain.RestaurantBar, error) {
	bar, ok := t.save.FindBar(id)
	if !ok {
		return nil, &domain.IntegrityError{Entity: domain.EntityRestaurant, ID: id}
	}
	return bar, nil
}

func (t *txn) employee(id string) (*domain.Employee, error) {
	emp, ok := t.save.FindEmployee(id)
	if !ok {
		return nil, &domain.IntegrityError{Entity: domain.EntityEmployee, ID: id}
	}
	return emp, nil
}

// attach puts emp on bar's staff list.
func (t *txn) attach(emp *domain.Employee, bar *domain.RestaurantBar) {
	bar.StaffIDs = append(bar.StaffIDs, emp.ID)
	emp.AssignedTo = bar.ID
	bar.StaffCost = economy.StaffCost(t.save.StaffOf(bar.ID))
	t.record(domain.EntityEmployee, emp.ID, actionAssign)
}

// detach removes emp from its current bar. A bar whose staff list shrinks is
// recorded so the minimum staff rule can check it.
func (t *txn) detach(emp *domain.Employee) (string, error) {
	from := emp.AssignedTo
	if from == "" {
		return "", nil
	}
	bar, err := t.bar(from)
	if err != nil {
		return "", err
	}
	kept := bar.StaffIDs[:0]
	for _, id := range bar.StaffIDs {
		if id != emp.ID {
			kept = append(kept, id)
		}
	}
	bar.StaffIDs = kept
	emp.AssignedTo = ""
	bar.StaffCost = economy.StaffCost(t.save.StaffOf(bar.ID))
	t.record(domain.EntityEmployee, emp.ID, actionUnassign)
	t.record(domain.EntityRestaurant, bar.ID, actionStaffLeft)
	return from, nil
}

type ruleView struct{ save *domain.GameSave }

func (v ruleView) Save() domain.GameSave { return *v.save }

// commit applies fn to a draft of the active save. Validation and integrity
// errors from fn, and blocking rule results, leave the active save untouched.
// A persistence failure is returned after the draft has replaced the active
// save. Callers hold s.mu.
func (s *Service) commit(ctx context.Context, fn func(tx *txn) error) ([]notify.Event, error) {
	if s.save == nil {
		return nil, domain.ErrNoActiveSave
	}
	draft := s.save.Clone()
	tx := &txn{save: &draft, balance: s.balance, now: s.now()}
	if err := fn(tx); err != nil {
		return nil, err
	}
	res, err := s.rules.Evaluate(ctx, ruleView{save: &draft}, tx.changes)
	if err != nil {
		return nil, fmt.Errorf("evaluate rules: %w", err)
	}
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.logger.Warn("rule warning", "rule", v.Rule, "entity", v.EntityID, "message", v.Message)
		}
	}
	if res.HasBlocking() {
		return nil, domain.RuleViolationError{Result: res}
	}
	draft.LastSavedAt = tx.now
	s.save = &draft
	if err := s.store.Persist(ctx, draft); err != nil {
		return tx.events, err
	}
	return tx.events, nil
}

// committed reports whether a commit replaced the active save, which is also
// the case when only persisting it failed.
func committed(err error) bool {
	var pe *domain.PersistenceError
	return err == nil || errors.As(err, &pe)
}

// active returns the live save for read-only inspection. Callers hold s.mu.
func (s *Service) active() (*domain.GameSave, error) {
	if s.save == nil {
		return nil, domain.ErrNoActiveSave
	}
	return s.save, nil
}
