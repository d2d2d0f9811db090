package school_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"acadence/internal/queue"
	"acadence/internal/school"
	"acadence/internal/store"
)

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, msg queue.Message) error {
	if r.err != nil {
		return r.err
	}
	evt, err := queue.DecodeEvent(msg)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type env struct {
	t      *testing.T
	ctx    context.Context
	mem    *store.Memory
	svc    *school.Service
	events *recorder
	now    time.Time
}

func newEnv(t *testing.T, opts ...school.Option) *env {
	t.Helper()
	e := &env{
		t:      t,
		ctx:    context.Background(),
		mem:    store.NewMemory(),
		events: &recorder{},
		now:    monday.Add(9*time.Hour + 15*time.Minute),
	}
	base := []school.Option{
		school.WithPublisher(e.events),
		school.WithClock(func() time.Time { return e.now }),
	}
	e.svc = school.NewService(e.mem, append(base, opts...)...)
	return e
}

func (e *env) account(role school.Role, name string) *school.User {
	e.t.Helper()
	u, err := e.svc.CreateAccount(e.ctx, school.NewAccount{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "secret1",
		Role:     role,
		Verified: true,
	})
	require.NoError(e.t, err)
	return u
}

func (e *env) class(teacher *school.User, name, day, group string, code *string) *school.ClassSection {
	e.t.Helper()
	c, err := e.svc.CreateClass(e.ctx, "admin-1", school.NewClass{
		Name:            name,
		DayOfWeek:       day,
		StartTime:       "09:00",
		DurationMinutes: 50,
		TeacherID:       teacher.ID,
		GroupName:       group,
		SubjectCode:     code,
	})
	require.NoError(e.t, err)
	return c
}

func (e *env) enroll(class *school.ClassSection, students ...*school.User) {
	e.t.Helper()
	for _, s := range students {
		_, err := e.svc.CreateEnrollment(e.ctx, "admin-1", s.ID, class.ID)
		require.NoError(e.t, err)
	}
}

func (e *env) attendance(class *school.ClassSection, day time.Time) map[string]school.AttendanceRecord {
	e.t.Helper()
	recs, err := e.mem.ListAttendance(e.ctx, class.ID, day, day.AddDate(0, 0, 1))
	require.NoError(e.t, err)
	out := make(map[string]school.AttendanceRecord, len(recs))
	for _, r := range recs {
		out[r.StudentID] = r
	}
	return out
}

func ptr[T any](v T) *T { return &v }
