package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acadence/internal/school"
)

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil, "user"))
	assert.ErrorIs(t, classify(sql.ErrNoRows, "user"), school.ErrNotFound)
	assert.ErrorIs(t, classify(&pgconn.PgError{Code: "23505"}, "enrollment"), school.ErrConflict)
	assert.ErrorIs(t, classify(&pgconn.PgError{Code: "23503"}, "enrollment"), school.ErrNotFound)

	err := classify(errors.New("broken pipe"), "insert attendance")
	assert.Equal(t, school.Kind(0), school.KindOf(err))
	assert.Contains(t, err.Error(), "insert attendance: broken pipe")
}

func TestMigrationsAreAnnotated(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		body, err := migrations.ReadFile("migrations/" + e.Name())
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(body), "-- +goose Up\n"), e.Name())
		assert.Contains(t, string(body), "-- +goose Down", e.Name())
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `CS\_101\%\\`, escapeLike(`CS_101%\`))
	assert.Equal(t, "MATH", escapeLike("MATH"))
}

func seedMemory(t *testing.T, m *Memory) (teacher, student school.User, class school.ClassSection) {
	t.Helper()
	ctx := context.Background()
	teacher = school.User{ID: uuid.NewString(), Name: "Tara", Email: "tara@example.com", Role: school.RoleTeacher}
	student = school.User{ID: uuid.NewString(), Name: "Ann", Email: "ann@example.com", Role: school.RoleStudent}
	require.NoError(t, m.CreateUser(ctx, &teacher))
	require.NoError(t, m.CreateUser(ctx, &student))
	class = school.ClassSection{ID: uuid.NewString(), Name: "Algebra", DayOfWeek: "Monday", StartTime: "09:00", DurationMinutes: 60, TeacherID: teacher.ID, GroupName: "G1"}
	require.NoError(t, m.CreateClass(ctx, &class))
	return teacher, student, class
}

func TestMemoryEnrollmentUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, student, class := seedMemory(t, m)

	require.NoError(t, m.InsertEnrollment(ctx, &school.Enrollment{ID: uuid.NewString(), StudentID: student.ID, ClassID: class.ID}))
	err := m.InsertEnrollment(ctx, &school.Enrollment{ID: uuid.NewString(), StudentID: student.ID, ClassID: class.ID})
	assert.ErrorIs(t, err, school.ErrConflict)

	err = m.InsertEnrollment(ctx, &school.Enrollment{ID: uuid.NewString(), StudentID: "ghost", ClassID: class.ID})
	assert.ErrorIs(t, err, school.ErrNotFound)

	dup := school.User{ID: uuid.NewString(), Name: "Other", Email: "ann@example.com", Role: school.RoleStudent}
	assert.ErrorIs(t, m.CreateUser(ctx, &dup), school.ErrConflict)
}

func TestMemoryAttendanceDayIsHalfOpen(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, student, class := seedMemory(t, m)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)
	require.NoError(t, m.InsertAttendance(ctx, []school.AttendanceRecord{
		{ID: "a", StudentID: student.ID, ClassID: class.ID, Timestamp: day, Status: school.StatusPresent},
		{ID: "b", StudentID: student.ID, ClassID: class.ID, Timestamp: next, Status: school.StatusLate},
	}))

	recs, err := m.ListAttendance(ctx, class.ID, day, next)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].ID)

	require.NoError(t, m.UpdateAttendanceStatus(ctx, class.ID, student.ID, day, next, school.StatusAbsent))
	recs, err = m.ListStudentAttendance(ctx, student.ID, class.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, school.StatusLate, recs[0].Status, "newest first, untouched")
	assert.Equal(t, school.StatusAbsent, recs[1].Status)

	err = m.UpdateAttendanceStatus(ctx, class.ID, student.ID, day.AddDate(0, 0, -7), day, school.StatusPresent)
	assert.ErrorIs(t, err, school.ErrNotFound)
}

func TestMemoryDeleteTeacherCascades(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	teacher, student, class := seedMemory(t, m)
	require.NoError(t, m.InsertEnrollment(ctx, &school.Enrollment{ID: "e1", StudentID: student.ID, ClassID: class.ID}))

	require.NoError(t, m.DeleteUser(ctx, teacher.ID))
	_, err := m.GetClass(ctx, class.ID)
	assert.ErrorIs(t, err, school.ErrNotFound)
	_, err = m.GetEnrollment(ctx, "e1")
	assert.ErrorIs(t, err, school.ErrNotFound)
	assert.ErrorIs(t, m.DeleteUser(ctx, teacher.ID), school.ErrNotFound)
}

func TestMemoryActivityNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"x", "y", "z"} {
		require.NoError(t, m.InsertActivity(ctx, &school.Activity{ID: id, Kind: "class.created", OccurredAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	require.NoError(t, m.InsertActivity(ctx, &school.Activity{ID: "x", Kind: "class.created", OccurredAt: base}))

	items, err := m.ListActivity(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "z", items[0].ID)
	assert.Equal(t, "y", items[1].ID)
}

// TestPostgresStore runs against a real database when TEST_DATABASE_URL is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	version, err := Migrate(ctx, db.Client)
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)
	again, err := Migrate(ctx, db.Client)
	require.NoError(t, err)
	assert.Equal(t, version, again, "rerun is a no-op")

	p := NewPostgres(db.Client)
	suffix := uuid.NewString()[:8]
	teacher := school.User{ID: uuid.NewString(), Name: "Tara", Email: "tara-" + suffix + "@example.com", Role: school.RoleTeacher, CreatedAt: time.Now().UTC()}
	student := school.User{ID: uuid.NewString(), Name: "Ann", Email: "ann-" + suffix + "@example.com", Role: school.RoleStudent, CreatedAt: time.Now().UTC()}
	require.NoError(t, p.CreateUser(ctx, &teacher))
	require.NoError(t, p.CreateUser(ctx, &student))
	defer func() {
		_ = p.DeleteUser(ctx, teacher.ID)
		_ = p.DeleteUser(ctx, student.ID)
	}()

	code := "T" + suffix
	class := school.ClassSection{ID: uuid.NewString(), Name: "Algebra", DayOfWeek: "Monday", StartTime: "09:00", DurationMinutes: 60, TeacherID: teacher.ID, GroupName: "G1", SubjectCode: &code, CreatedAt: time.Now().UTC()}
	require.NoError(t, p.CreateClass(ctx, &class))

	found, err := p.FindClassesBySubject(ctx, code, "G1")
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, p.InsertEnrollment(ctx, &school.Enrollment{ID: uuid.NewString(), StudentID: student.ID, ClassID: class.ID}))
	err = p.InsertEnrollment(ctx, &school.Enrollment{ID: uuid.NewString(), StudentID: student.ID, ClassID: class.ID})
	assert.ErrorIs(t, err, school.ErrConflict)

	require.NoError(t, p.SetMarks(ctx, class.ID, student.ID, school.FieldST1, 77.5))
	roster, err := p.ListRoster(ctx, class.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.NotNil(t, roster[0].ST1)
	assert.Equal(t, 77.5, *roster[0].ST1)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.InsertAttendance(ctx, []school.AttendanceRecord{
		{ID: uuid.NewString(), StudentID: student.ID, ClassID: class.ID, Timestamp: day.Add(9 * time.Hour), Status: school.StatusPresent},
	}))
	recs, err := p.ListAttendance(ctx, class.ID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NoError(t, p.UpdateAttendanceStatus(ctx, class.ID, student.ID, day, day.AddDate(0, 0, 1), school.StatusLate))
}
