package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/internal/common/metrics"
	"github.com/kandev/executorconfig/internal/common/tracing"
	"github.com/kandev/executorconfig/internal/events"
	"github.com/kandev/executorconfig/internal/events/bus"
	"github.com/kandev/executorconfig/internal/executorconfig/models"
	"github.com/kandev/executorconfig/internal/executorconfig/resolver"
	"github.com/kandev/executorconfig/internal/executorconfig/selector"
	"github.com/kandev/executorconfig/internal/executorconfig/store"
	"github.com/kandev/executorconfig/internal/profiles"
	"github.com/kandev/executorconfig/pkg/executor"
	"github.com/kandev/executorconfig/pkg/optional"
)

var (
	ErrSessionNotFound = errors.New("executor config session not found")
	ErrNoExecutor      = errors.New("no executor resolved")
	ErrInvalidRequest  = errors.New("invalid executor config request")
)

const (
	eventSource    = "executor-config-service"
	persistTimeout = 5 * time.Second
)

// ProfileSource supplies the current catalog and preset lookups.
type ProfileSource interface {
	Catalog() *profiles.Catalog
	Preset(id executor.ExecutorID, variant optional.Field[string]) *executor.Config
	OnChange(fn profiles.ChangeListener)
}

// Options holds service defaults.
type Options struct {
	DefaultMode      models.SelectionMode
	DefaultProfile   *executor.ProfileRef
	SessionCacheSize int
}

// Session is one open editing session bound to a compose context.
type Session struct {
	ID        string
	ContextID string
	Scope     string
	CreatedAt time.Time
	selector  *selector.Selector
}

// SessionState is a snapshot of a session for callers.
type SessionState struct {
	SessionID  string
	ContextID  string
	Scope      string
	Mode       models.SelectionMode
	Selections models.Selections
	Resolved   resolver.State
}

// OpenSessionRequest opens a session for a compose context.
type OpenSessionRequest struct {
	ContextID string
	Mode      models.SelectionMode
	Scope     string
}

// Service manages editing sessions and their persistence.
type Service struct {
	repo     store.Repository
	profiles ProfileSource
	eventBus bus.EventBus
	metrics  *metrics.Metrics
	logger   *logger.Logger
	tracer   trace.Tracer
	opts     Options

	// openMu serializes cache membership changes with catalog refreshes.
	openMu   sync.Mutex
	sessions *lru.Cache[string, *Session]
}

// NewService creates the service and subscribes it to catalog reloads.
func NewService(repo store.Repository, src ProfileSource, eventBus bus.EventBus, m *metrics.Metrics, log *logger.Logger, opts Options) (*Service, error) {
	if !opts.DefaultMode.Valid() {
		opts.DefaultMode = models.ModeResume
	}
	if opts.SessionCacheSize <= 0 {
		opts.SessionCacheSize = 512
	}
	s := &Service{
		repo:     repo,
		profiles: src,
		eventBus: eventBus,
		metrics:  m,
		logger:   log.WithFields(zap.String("component", "executor-config-service")),
		tracer:   tracing.Tracer("executorconfig/service"),
		opts:     opts,
	}
	cache, err := lru.NewWithEvict(opts.SessionCacheSize, func(id string, sess *Session) {
		s.logger.Debug("evicted executor config session",
			zap.String("session_id", id),
			zap.String("context_id", sess.ContextID))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	s.sessions = cache
	src.OnChange(s.RefreshCatalog)
	return s, nil
}

// OpenSession creates a selector for a compose context. Scratch starts in the
// loading state and is fed in once read, so a draft pointing at another
// executor triggers the automatic reset like any late-arriving source.
func (s *Service) OpenSession(ctx context.Context, req OpenSessionRequest) (*SessionState, error) {
	ctx, span := s.tracer.Start(ctx, "executorconfig.OpenSession")
	defer span.End()
	defer s.metrics.ObserveOperation("open_session", time.Now())

	req.ContextID = strings.TrimSpace(req.ContextID)
	if req.ContextID == "" {
		return nil, fmt.Errorf("%w: context_id is required", ErrInvalidRequest)
	}
	if req.Mode == "" {
		req.Mode = s.opts.DefaultMode
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown selection mode %q", ErrInvalidRequest, req.Mode)
	}
	if req.Scope == "" {
		req.Scope = models.GlobalScope
	}

	sess := &Session{
		ID:        uuid.New().String(),
		ContextID: req.ContextID,
		Scope:     req.Scope,
		CreatedAt: time.Now().UTC(),
	}
	span.SetAttributes(attribute.String("session_id", sess.ID), attribute.String("context_id", sess.ContextID))
	log := s.logger.WithSessionID(sess.ID).WithContextID(sess.ContextID)

	sess.selector = selector.New(req.Mode, resolver.Sources{
		Catalog:       s.profiles.Catalog(),
		ConfigDefault: s.opts.DefaultProfile,
	},
		selector.WithLogger(log),
		selector.WithPresetLookup(s.profiles.Preset),
		selector.WithPersist(func(cfg executor.Config) { s.persistScratch(sess, cfg) }),
		selector.WithResetHook(func(from, to string) { s.onAutoReset(sess, from, to) }),
	)

	scratch, err := s.loadScratch(ctx, sess.ContextID)
	if err != nil {
		return nil, err
	}
	lastUsed, err := s.loadLastUsed(ctx, sess.Scope)
	if err != nil {
		return nil, err
	}
	sess.selector.UpdateSources(func(src *resolver.Sources) {
		src.Scratch = scratch
		src.LastUsed = lastUsed
	})

	s.openMu.Lock()
	s.sessions.Add(sess.ID, sess)
	s.metrics.SetOpenSessions(s.sessions.Len())
	s.openMu.Unlock()

	state := snapshot(sess)
	log.Info("executor config session opened",
		zap.String("mode", string(req.Mode)),
		zap.String("profile", state.Resolved.ProfileKey()))
	s.publish(ctx, events.ExecutorConfigSessionOpened, sess, map[string]interface{}{
		"mode": string(req.Mode),
	})
	return state, nil
}

func (s *Service) loadScratch(ctx context.Context, contextID string) (optional.Field[executor.Config], error) {
	scratch, err := s.repo.GetScratch(ctx, contextID)
	if errors.Is(err, store.ErrNotFound) {
		return optional.Null[executor.Config](), nil
	}
	if err != nil {
		return optional.Unset[executor.Config](), fmt.Errorf("failed to load scratch config: %w", err)
	}
	return optional.Of(scratch.Config), nil
}

func (s *Service) loadLastUsed(ctx context.Context, scope string) (*executor.Config, error) {
	lastUsed, err := s.repo.GetLastUsed(ctx, scope)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last used config: %w", err)
	}
	cfg := lastUsed.Config
	return &cfg, nil
}

// GetSession returns the current state of a session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*SessionState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

// SetExecutor switches the session to an executor, discarding prior variant
// and override selections.
func (s *Service) SetExecutor(ctx context.Context, sessionID string, id executor.ExecutorID) (*SessionState, error) {
	ctx, span := s.startSpan(ctx, "executorconfig.SetExecutor", sessionID)
	defer span.End()
	defer s.metrics.ObserveOperation("set_executor", time.Now())

	id = executor.Normalize(string(id))
	if id == "" {
		return nil, fmt.Errorf("%w: executor is required", ErrInvalidRequest)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("executor", string(id)))

	sess.selector.SetExecutor(id)
	s.metrics.Mutation("set_executor")
	return s.publishUpdated(ctx, sess), nil
}

// SetVariant switches the variant of the current executor. An unset variant
// is treated as null.
func (s *Service) SetVariant(ctx context.Context, sessionID string, variant optional.Field[string]) (*SessionState, error) {
	ctx, span := s.startSpan(ctx, "executorconfig.SetVariant", sessionID)
	defer span.End()
	defer s.metrics.ObserveOperation("set_variant", time.Now())

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.selector.SetVariant(variant)
	s.metrics.Mutation("set_variant")
	return s.publishUpdated(ctx, sess), nil
}

// SetOverrides merges override fields into the session selections.
func (s *Service) SetOverrides(ctx context.Context, sessionID string, overrides models.Overrides) (*SessionState, error) {
	ctx, span := s.startSpan(ctx, "executorconfig.SetOverrides", sessionID)
	defer span.End()
	defer s.metrics.ObserveOperation("set_overrides", time.Now())

	if p, ok := overrides.PermissionPolicy.Get(); ok && !p.Valid() {
		return nil, fmt.Errorf("%w: unknown permission policy %q", ErrInvalidRequest, p)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.selector.SetOverrides(overrides)
	s.metrics.Mutation("set_overrides")
	return s.publishUpdated(ctx, sess), nil
}

// Submit records the resolved config as last used for the session scope and
// clears the scratch draft. Open sessions on the same scope see the new
// last-used config.
func (s *Service) Submit(ctx context.Context, sessionID string) (*executor.Config, error) {
	ctx, span := s.startSpan(ctx, "executorconfig.Submit", sessionID)
	defer span.End()
	defer s.metrics.ObserveOperation("submit", time.Now())

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	cfg := sess.selector.State().Config
	if cfg == nil {
		return nil, ErrNoExecutor
	}
	submitted := *cfg

	if err := s.repo.SetLastUsed(ctx, &models.LastUsedConfig{Scope: sess.Scope, Config: submitted}); err != nil {
		return nil, fmt.Errorf("failed to store last used config: %w", err)
	}
	if err := s.repo.DeleteScratch(ctx, sess.ContextID); err != nil {
		s.logger.WithSessionID(sess.ID).Warn("failed to clear scratch config", zap.Error(err))
	}

	sess.selector.UpdateSources(func(src *resolver.Sources) {
		src.Scratch = optional.Null[executor.Config]()
	})
	for _, other := range s.openSessions() {
		if other.Scope != sess.Scope {
			continue
		}
		lastUsed := submitted
		other.selector.UpdateSources(func(src *resolver.Sources) { src.LastUsed = &lastUsed })
	}

	s.logger.WithContext(ctx).Info("executor config submitted",
		zap.String("profile", submitted.ProfileKey()),
		zap.String("scope", sess.Scope))
	s.publish(ctx, events.ExecutorConfigSubmitted, sess, map[string]interface{}{
		"config": submitted,
	})
	return &submitted, nil
}

// CloseSession drops a session from memory.
func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	s.openMu.Lock()
	sess, ok := s.sessions.Peek(sessionID)
	if ok {
		s.sessions.Remove(sessionID)
	}
	s.metrics.SetOpenSessions(s.sessions.Len())
	s.openMu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.publish(ctx, events.ExecutorConfigSessionClosed, sess, nil)
	return nil
}

// RefreshCatalog pushes a new catalog into every open session.
func (s *Service) RefreshCatalog(catalog *profiles.Catalog) {
	ctx := context.Background()
	sessions := s.openSessions()
	for _, sess := range sessions {
		sess.selector.UpdateSources(func(src *resolver.Sources) { src.Catalog = catalog })
		s.publishUpdated(ctx, sess)
	}
	s.metrics.CatalogReload(nil)
	s.logger.Info("profile catalog pushed to sessions",
		zap.Int("executors", catalog.Len()),
		zap.Int("sessions", len(sessions)))
	if s.eventBus != nil {
		ev := bus.NewEvent(events.ExecutorProfilesReloaded, eventSource, map[string]interface{}{
			"executors": catalog.Executors(),
		})
		if err := s.eventBus.Publish(ctx, events.ExecutorProfilesReloaded, ev); err != nil {
			s.logger.Warn("failed to publish catalog reload", zap.Error(err))
		}
	}
}

// Catalog returns the current profile catalog.
func (s *Service) Catalog() *profiles.Catalog {
	return s.profiles.Catalog()
}

// GetLastUsed returns the last submitted config for a scope.
func (s *Service) GetLastUsed(ctx context.Context, scope string) (*models.LastUsedConfig, error) {
	if scope == "" {
		scope = models.GlobalScope
	}
	return s.repo.GetLastUsed(ctx, scope)
}

func (s *Service) session(sessionID string) (*Session, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) openSessions() []*Session {
	s.openMu.Lock()
	defer s.openMu.Unlock()
	return s.sessions.Values()
}

func (s *Service) startSpan(ctx context.Context, name, sessionID string) (context.Context, trace.Span) {
	ctx = logger.ContextWithSessionID(ctx, sessionID)
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("session_id", sessionID)))
}

// persistScratch is the selector's persist callback. Failures are logged and
// counted; the selections are kept as they are.
func (s *Service) persistScratch(sess *Session, cfg executor.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	err := s.repo.UpsertScratch(ctx, &models.ScratchConfig{ContextID: sess.ContextID, Config: cfg})
	if err != nil {
		s.metrics.PersistFailure()
		s.logger.WithSessionID(sess.ID).Warn("failed to persist scratch config",
			zap.String("context_id", sess.ContextID),
			zap.Error(err))
		return
	}
	s.publish(ctx, events.ExecutorConfigPersisted, sess, map[string]interface{}{
		"config": cfg,
	})
}

func (s *Service) onAutoReset(sess *Session, from, to string) {
	s.metrics.AutoReset()
	s.publish(context.Background(), events.ExecutorConfigReset, sess, map[string]interface{}{
		"from": from,
		"to":   to,
	})
}

func (s *Service) publishUpdated(ctx context.Context, sess *Session) *SessionState {
	state := snapshot(sess)
	s.publish(ctx, events.ExecutorConfigUpdated, sess, map[string]interface{}{
		"state": state.Resolved,
	})
	return state
}

func (s *Service) publish(ctx context.Context, subject string, sess *Session, data map[string]interface{}) {
	if s.eventBus == nil {
		return
	}
	ref := bus.SessionRef{SessionID: sess.ID, ContextID: sess.ContextID, Scope: sess.Scope}
	if err := s.eventBus.Publish(ctx, subject, bus.NewSessionEvent(subject, eventSource, ref, data)); err != nil {
		s.logger.WithSessionID(sess.ID).Warn("failed to publish executor config event",
			zap.String("subject", subject),
			zap.Error(err))
	}
}

func snapshot(sess *Session) *SessionState {
	selections, state := sess.selector.Snapshot()
	return &SessionState{
		SessionID:  sess.ID,
		ContextID:  sess.ContextID,
		Scope:      sess.Scope,
		Mode:       sess.selector.Mode(),
		Selections: selections,
		Resolved:   state,
	}
}
