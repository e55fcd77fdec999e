package dashboard

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options configures the dashboard Service. Every collaborator is provided via
// interface so hosts can swap implementations.
type Options struct {
	Store        LayoutStore
	Datasets     DatasetProvider
	Renderer     *Renderer
	Validator    ReportValidator
	Notifier     Notifier
	Telemetry    Telemetry
	Logger       *zap.Logger
	WriteTimeout time.Duration
	Configure    ConfigureFunc
	// IdleTimeout is how long a session may go unused before EvictIdle
	// releases it. Zero keeps sessions until Release or Close.
	IdleTimeout time.Duration
	Clock       func() time.Time
}

// Service keeps one loaded Controller per user.
type Service struct {
	opts    Options
	catalog Catalog

	mu        sync.Mutex
	closed    bool
	sessions  map[string]*session
	releasing map[string]chan struct{}
	loads     singleflight.Group
}

type session struct {
	ctrl     *Controller
	lastUsed time.Time
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	opts.Notifier = normalizeNotifier(opts.Notifier)
	catalog := DefaultCatalog()
	if opts.Validator == nil {
		opts.Validator = NewJSONSchemaValidator(catalog)
	}
	if opts.Renderer == nil {
		opts.Renderer = NewRenderer(opts.Datasets,
			WithRendererLogger(opts.Logger),
			WithRendererTelemetry(opts.Telemetry),
		)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		opts:      opts,
		catalog:   catalog,
		sessions:  make(map[string]*session),
		releasing: make(map[string]chan struct{}),
	}
}

// Catalog returns the report catalog.
func (s *Service) Catalog() Catalog { return s.catalog }

// Session returns the loaded controller of viewer, loading it on first use.
// Concurrent first requests share a single load. A user whose session is
// being released waits for its writes to drain before loading again.
func (s *Service) Session(ctx context.Context, viewer ViewerContext) (*Controller, error) {
	if s.opts.Store == nil {
		return nil, ErrMissingStore
	}
	if viewer.UserID == "" {
		return nil, ErrMissingUser
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if sess, ok := s.sessions[viewer.UserID]; ok {
		sess.lastUsed = s.opts.Clock()
		s.mu.Unlock()
		return sess.ctrl, nil
	}
	s.mu.Unlock()

	v, err, _ := s.loads.Do(viewer.UserID, func() (any, error) {
		return s.load(ctx, viewer.UserID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Controller), nil
}

func (s *Service) load(ctx context.Context, userID string) (*Controller, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrClosed
		}
		if sess, ok := s.sessions[userID]; ok {
			sess.lastUsed = s.opts.Clock()
			s.mu.Unlock()
			return sess.ctrl, nil
		}
		done, releasing := s.releasing[userID]
		s.mu.Unlock()
		if !releasing {
			break
		}
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctrl, err := NewController(ControllerOptions{
		UserID:       userID,
		Store:        s.opts.Store,
		Renderer:     s.opts.Renderer,
		Validator:    s.opts.Validator,
		Notifier:     s.opts.Notifier,
		Telemetry:    s.opts.Telemetry,
		Logger:       s.opts.Logger,
		WriteTimeout: s.opts.WriteTimeout,
		Configure:    s.opts.Configure,
	})
	if err != nil {
		return nil, err
	}
	if err := ctrl.Load(ctx); err != nil {
		ctrl.Close()
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ctrl.Close()
		return nil, ErrClosed
	}
	s.sessions[userID] = &session{ctrl: ctrl, lastUsed: s.opts.Clock()}
	s.mu.Unlock()
	return ctrl, nil
}

// withSession runs fn against the viewer's controller. A controller closed
// between lookup and use was released concurrently; fn is retried once on a
// freshly loaded session.
func (s *Service) withSession(ctx context.Context, viewer ViewerContext, fn func(*Controller) error) error {
	ctrl, err := s.Session(ctx, viewer)
	if err != nil {
		return err
	}
	if err := fn(ctrl); !errors.Is(err, ErrClosed) {
		return err
	}
	ctrl, err = s.Session(ctx, viewer)
	if err != nil {
		return err
	}
	return fn(ctrl)
}

// Dashboard returns a copy of the viewer's dashboard.
func (s *Service) Dashboard(ctx context.Context, viewer ViewerContext) (Dashboard, error) {
	ctrl, err := s.Session(ctx, viewer)
	if err != nil {
		return Dashboard{}, err
	}
	return ctrl.Snapshot(), nil
}

// Render renders every widget of the viewer's dashboard.
func (s *Service) Render(ctx context.Context, viewer ViewerContext) ([]Widget, error) {
	ctrl, err := s.Session(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return ctrl.Render(ctx)
}

// AddReport adds report to the viewer's dashboard.
func (s *Service) AddReport(ctx context.Context, viewer ViewerContext, report Report) (LayoutItem, error) {
	var item LayoutItem
	err := s.withSession(ctx, viewer, func(ctrl *Controller) error {
		var err error
		item, err = ctrl.AddReport(ctx, report)
		return err
	})
	return item, err
}

// RemoveReport removes report id from the viewer's dashboard.
func (s *Service) RemoveReport(ctx context.Context, viewer ViewerContext, id string) error {
	return s.withSession(ctx, viewer, func(ctrl *Controller) error {
		return ctrl.RemoveReport(ctx, id)
	})
}

// UpdateLayout forwards a grid layout event.
func (s *Service) UpdateLayout(ctx context.Context, viewer ViewerContext, event LayoutEvent) error {
	return s.withSession(ctx, viewer, func(ctrl *Controller) error {
		return ctrl.OnLayoutChanged(ctx, event)
	})
}

// Export writes report id as CSV and returns the suggested file name.
func (s *Service) Export(ctx context.Context, viewer ViewerContext, id string, w io.Writer) (string, error) {
	ctrl, err := s.Session(ctx, viewer)
	if err != nil {
		return "", err
	}
	report, err := ctrl.Export(ctx, id, w)
	if err != nil {
		return "", err
	}
	return ExportFilename(report), nil
}

// Configure runs the configure action of report id.
func (s *Service) Configure(ctx context.Context, viewer ViewerContext, id string) error {
	ctrl, err := s.Session(ctx, viewer)
	if err != nil {
		return err
	}
	return ctrl.Configure(ctx, id)
}

// Release flushes and stops the session of userID. The next request for
// that user loads the dashboard from the store again.
func (s *Service) Release(ctx context.Context, userID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	done := s.detachLocked(userID)
	s.mu.Unlock()
	return s.retire(ctx, userID, sess.ctrl, done)
}

// EvictIdle releases every session unused for at least IdleTimeout and
// returns how many were released.
func (s *Service) EvictIdle(ctx context.Context) (int, error) {
	if s.opts.IdleTimeout <= 0 {
		return 0, nil
	}
	now := s.opts.Clock()
	type idle struct {
		userID string
		ctrl   *Controller
		done   chan struct{}
	}
	var evicted []idle
	s.mu.Lock()
	for userID, sess := range s.sessions {
		if now.Sub(sess.lastUsed) >= s.opts.IdleTimeout {
			evicted = append(evicted, idle{userID: userID, ctrl: sess.ctrl, done: s.detachLocked(userID)})
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, e := range evicted {
		if err := s.retire(ctx, e.userID, e.ctrl, e.done); err != nil {
			errs = append(errs, err)
		}
		s.opts.Logger.Debug("idle session released", zap.String("user_id", e.userID))
	}
	return len(evicted), errors.Join(errs...)
}

// RunJanitor calls EvictIdle every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.opts.IdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.EvictIdle(ctx); err != nil {
				s.opts.Logger.Warn("idle session release failed", zap.Int("released", n), zap.Error(err))
			}
		}
	}
}

// Sessions returns the number of loaded sessions.
func (s *Service) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// detachLocked removes userID from the session table and marks it as being
// released. Callers hold s.mu.
func (s *Service) detachLocked(userID string) chan struct{} {
	delete(s.sessions, userID)
	done := make(chan struct{})
	s.releasing[userID] = done
	return done
}

func (s *Service) retire(ctx context.Context, userID string, ctrl *Controller, done chan struct{}) error {
	err := ctrl.Flush(ctx)
	ctrl.Close()
	s.mu.Lock()
	delete(s.releasing, userID)
	s.mu.Unlock()
	close(done)
	return err
}

// Close drains and stops every session. Later requests fail with ErrClosed.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	retired := make(map[string]*Controller, len(s.sessions))
	dones := make(map[string]chan struct{}, len(s.sessions))
	for userID, sess := range s.sessions {
		retired[userID] = sess.ctrl
		dones[userID] = s.detachLocked(userID)
	}
	s.mu.Unlock()

	var firstErr error
	for userID, ctrl := range retired {
		if err := s.retire(ctx, userID, ctrl, dones[userID]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
