// Package service runs registration flows: it owns each flow's state, calls
// the verification service and persists snapshots.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticketflow/internal/flow/metrics"
	"ticketflow/internal/flow/models"
	"ticketflow/internal/flow/store/session"
	"ticketflow/internal/flow/timer"
	dErrors "ticketflow/pkg/domain-errors"
	"ticketflow/pkg/platform/sentinel"
)

const (
	DefaultSessionTTL   = 2 * time.Hour
	DefaultIdleTimeout  = 15 * time.Minute
	DefaultTickInterval = time.Second
)

// Service is the registry of live flows.
type Service struct {
	mu    sync.RWMutex
	flows map[uuid.UUID]*Flow

	deps         *flowDeps
	snapshots    session.Store
	sessionTTL   time.Duration
	idleTimeout  time.Duration
	tickInterval time.Duration
}

type Option func(*Service)

// WithResendCooldown sets the OTP resend cooldown in seconds.
func WithResendCooldown(seconds int) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.deps.cooldown = seconds
		}
	}
}

func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithIdleTimeout sets how long an untouched flow stays in memory. Its
// snapshot outlives it until the session TTL.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

func WithReconciler(r Reconciler) Option {
	return func(s *Service) {
		s.deps.reconciler = r
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.deps.metrics = m
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.deps.clock = clock
		}
	}
}

// WithIDGenerator replaces uuid.New for flow and pass ids.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(s *Service) {
		if gen != nil {
			s.deps.newID = gen
		}
	}
}

// New creates a Service. snapshots may be nil, in which case flows live only
// in memory.
func New(client VerificationClient, snapshots session.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		flows: make(map[uuid.UUID]*Flow),
		deps: &flowDeps{
			client:   client,
			logger:   logger,
			cooldown: timer.DefaultSeconds,
			clock:    time.Now,
			newID:    uuid.New,
		},
		snapshots:    snapshots,
		sessionTTL:   DefaultSessionTTL,
		idleTimeout:  DefaultIdleTimeout,
		tickInterval: DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new flow on the home screen.
func (s *Service) Create(ctx context.Context) (models.View, error) {
	f := newFlow(s.deps.newID(), s.deps)

	s.mu.Lock()
	s.flows[f.id] = f
	s.mu.Unlock()

	s.deps.metrics.IncFlowsCreated()
	s.save(ctx, f)
	s.deps.logger.InfoContext(ctx, "flow created", "flow_id", f.id.String())
	return f.View(), nil
}

// View returns the current view of a flow.
func (s *Service) View(ctx context.Context, id uuid.UUID) (models.View, error) {
	f, err := s.get(ctx, id)
	if err != nil {
		return models.View{}, err
	}
	return f.View(), nil
}

// Dispatch applies a button press to a flow.
func (s *Service) Dispatch(ctx context.Context, id uuid.UUID, action models.Action) (models.View, error) {
	f, err := s.get(ctx, id)
	if err != nil {
		return models.View{}, err
	}
	view, err := f.Dispatch(ctx, action)
	if err == nil {
		s.save(ctx, f)
	}
	return view, err
}

// EditFields applies field edits to one journey's sub-record.
func (s *Service) EditFields(ctx context.Context, id uuid.UUID, kind models.FlowKind, fields map[string]any) (models.View, error) {
	f, err := s.get(ctx, id)
	if err != nil {
		return models.View{}, err
	}
	view, err := f.EditFields(kind, fields)
	if err == nil {
		s.save(ctx, f)
	}
	return view, err
}

func (s *Service) OpenOverlay(ctx context.Context, id uuid.UUID, o models.Overlay) (models.View, error) {
	f, err := s.get(ctx, id)
	if err != nil {
		return models.View{}, err
	}
	view, err := f.OpenOverlay(o)
	if err == nil {
		s.save(ctx, f)
	}
	return view, err
}

func (s *Service) CloseOverlay(ctx context.Context, id uuid.UUID) (models.View, error) {
	f, err := s.get(ctx, id)
	if err != nil {
		return models.View{}, err
	}
	view := f.CloseOverlay()
	s.save(ctx, f)
	return view, nil
}

// End discards a flow and its snapshot. Later requests for it get
// ErrFlowNotFound.
func (s *Service) End(ctx context.Context, id uuid.UUID) error {
	f, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := f.end(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.flows[id] == f {
		delete(s.flows, id)
	}
	s.mu.Unlock()

	if s.snapshots != nil {
		f.saveMu.Lock()
		err := s.snapshots.Delete(ctx, id)
		f.saveMu.Unlock()
		if err != nil {
			s.deps.metrics.IncSnapshotFailure()
			s.deps.logger.ErrorContext(ctx, "failed to delete flow snapshot",
				"flow_id", id.String(),
				"error", err,
			)
			return dErrors.Wrap(err, dErrors.CodeInternal, "flow storage unavailable")
		}
	}
	s.deps.logger.InfoContext(ctx, "flow ended", "flow_id", id.String())
	return nil
}

// TickAll advances every live flow's cooldowns by one second. Snapshots are
// not rewritten per tick; elapsed time is applied when a flow is restored.
func (s *Service) TickAll() {
	s.mu.RLock()
	flows := make([]*Flow, 0, len(s.flows))
	for _, f := range s.flows {
		flows = append(flows, f)
	}
	s.mu.RUnlock()

	for _, f := range flows {
		f.Tick()
	}
}

// EvictIdle drops flows untouched since now-idleTimeout from memory after a
// final snapshot. Flows with a call in flight are kept, and so is any flow a
// request reached after the snapshot was taken.
func (s *Service) EvictIdle(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-s.idleTimeout)

	s.mu.RLock()
	var idle []*Flow
	for _, f := range s.flows {
		last, loading := f.idleSince()
		if !loading && last.Before(cutoff) {
			idle = append(idle, f)
		}
	}
	s.mu.RUnlock()

	evicted := 0
	for _, f := range idle {
		s.save(ctx, f)

		// get touches flows under s.mu, so a flow still idle here has had no
		// request since the snapshot.
		s.mu.Lock()
		last, loading := f.idleSince()
		stillIdle := !loading && last.Before(cutoff) && s.flows[f.id] == f
		if stillIdle {
			delete(s.flows, f.id)
		}
		s.mu.Unlock()

		if stillIdle {
			evicted++
			s.deps.metrics.IncFlowsEvicted()
		}
	}
	if evicted > 0 {
		s.deps.logger.InfoContext(ctx, "idle flows evicted", "count", evicted)
	}
	return evicted
}

// Run is the external clock: it ticks every flow each interval and evicts
// idle ones once a minute, until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	evictEvery := int(time.Minute / s.tickInterval)
	if evictEvery < 1 {
		evictEvery = 1
	}

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.TickAll()
			if n%evictEvery == 0 {
				s.EvictIdle(ctx, s.deps.clock())
			}
		}
	}
}

// Len reports how many flows are held in memory.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flows)
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*Flow, error) {
	s.mu.RLock()
	f, ok := s.flows[id]
	if ok {
		f.touch()
	}
	s.mu.RUnlock()
	if ok {
		return f, nil
	}
	if s.snapshots == nil {
		return nil, ErrFlowNotFound
	}

	snap, err := s.snapshots.Load(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrFlowNotFound
	}
	if err != nil {
		s.deps.metrics.IncSnapshotFailure()
		s.deps.logger.ErrorContext(ctx, "failed to load flow snapshot",
			"flow_id", id.String(),
			"error", err,
		)
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "flow storage unavailable")
		}
		return nil, err
	}

	elapsed := s.deps.clock().Sub(snap.SavedAt)
	restored := restoreFlow(snap, s.deps, elapsed)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.flows[id]; ok {
		return existing, nil
	}
	s.flows[id] = restored
	s.deps.metrics.IncFlowsRestored()
	s.deps.logger.InfoContext(ctx, "flow restored from snapshot",
		"flow_id", id.String(),
		"screen", string(restored.screen),
	)
	return restored, nil
}

// save writes the flow's snapshot. Failures are logged; the flow keeps
// working from memory.
func (s *Service) save(ctx context.Context, f *Flow) {
	if s.snapshots == nil {
		return
	}
	f.saveMu.Lock()
	defer f.saveMu.Unlock()
	if f.isEnded() {
		return
	}
	if err := s.snapshots.Save(ctx, f.Snapshot(), s.sessionTTL); err != nil {
		s.deps.metrics.IncSnapshotFailure()
		s.deps.logger.WarnContext(ctx, "failed to save flow snapshot",
			"flow_id", f.id.String(),
			"error", err,
		)
	}
}
