package school

import (
	"context"
	"time"

	"go.uber.org/zap"

	"acadence/internal/metrics"
	"acadence/internal/queue"
)

// Publisher is where services announce completed changes.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Service implements the admin, teacher and student operations on top of a Store.
type Service struct {
	store   Store
	events  Publisher
	metrics *metrics.Metrics
	log     *zap.Logger
	loc     *time.Location
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sends domain events to p after successful writes.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

// WithMetrics records operation counters on m.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithLogger sets the logger used for best-effort side effects.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// WithLocation sets the zone whose midnight starts an attendance day.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a service backed by a store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   zap.NewNop(),
		loc:   time.UTC,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate resolves the caller from the store and checks its current
// role. Tokens only identify the caller; roles are never taken from them.
func (s *Service) Authenticate(ctx context.Context, userID string, allowed ...Role) (*User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, permissionf("account no longer exists")
		}
		return nil, persistence(err, "load caller")
	}
	if len(allowed) == 0 {
		return u, nil
	}
	for _, r := range allowed {
		if u.Role == r {
			return u, nil
		}
	}
	return nil, permissionf("%s role required", joinRoles(allowed))
}

// ownedClass loads classID and checks that callerID is a teacher owning it.
func (s *Service) ownedClass(ctx context.Context, callerID, classID string) (*ClassSection, error) {
	if classID == "" {
		return nil, validationf("class id is required")
	}
	if _, err := s.Authenticate(ctx, callerID, RoleTeacher); err != nil {
		return nil, err
	}
	class, err := s.store.GetClass(ctx, classID)
	if err != nil {
		return nil, persistence(err, "load class")
	}
	if class.TeacherID != callerID {
		return nil, permissionf("class %s is not assigned to you", classID)
	}
	return class, nil
}

func (s *Service) publish(ctx context.Context, evt queue.Event) {
	if s.events == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = s.now().UTC()
	}
	msg, err := evt.Message()
	if err == nil {
		err = s.events.Publish(ctx, msg)
	}
	if err != nil {
		s.log.Warn("event publish failed", zap.String("kind", evt.Kind), zap.Error(err))
	}
}

// dayRange returns the half-open interval covering the calendar day of t.
func (s *Service) dayRange(t time.Time) (time.Time, time.Time) {
	local := t.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// ParseDay parses a YYYY-MM-DD date in the service's attendance zone. An
// RFC 3339 timestamp is accepted too; its calendar date is read in its own
// offset and the time of day is dropped.
func (s *Service) ParseDay(raw string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", raw, s.loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc), nil
	}
	return time.Time{}, validationf("invalid date %q, expected YYYY-MM-DD", raw)
}

func joinRoles(roles []Role) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += " or "
		}
		out += string(r)
	}
	return out
}
