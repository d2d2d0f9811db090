package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"acadence/internal/school"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Postgres persists school data with plain SQL over database/sql.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a store on an open pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var _ school.Store = (*Postgres)(nil)

// classify turns driver errors into school error kinds where one applies.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return school.NotFoundf("%s not found", what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return school.Conflictf("%s already exists", what)
		case pgForeignKeyViolation:
			return school.NotFoundf("%s references a missing row", what)
		}
	}
	return errors.Wrap(err, what)
}

func expectOne(res sql.Result, err error, what string) error {
	if err != nil {
		return classify(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, what)
	}
	if n == 0 {
		return school.NotFoundf("%s not found", what)
	}
	return nil
}

// -------- Users --------

const userColumns = `id, name, email, password_hash, role, group_name, email_verified, created_at`

func scanUser(row interface{ Scan(...any) error }) (school.User, error) {
	var u school.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.GroupName, &u.EmailVerified, &u.CreatedAt)
	return u, err
}

func (p *Postgres) CreateUser(ctx context.Context, u *school.User) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.GroupName, u.EmailVerified, u.CreatedAt)
	return classify(err, "user "+u.Email)
}

func (p *Postgres) GetUser(ctx context.Context, id string) (*school.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "user "+id)
	}
	return &u, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*school.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, classify(err, "user")
	}
	return &u, nil
}

func (p *Postgres) ListUsers(ctx context.Context, role school.Role) ([]school.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY name, email`
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	defer rows.Close()
	var users []school.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (p *Postgres) SetUserGroup(ctx context.Context, id string, group *string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE users SET group_name = $2 WHERE id = $1`, id, group)
	return expectOne(res, err, "user "+id)
}

func (p *Postgres) SetEmailVerified(ctx context.Context, id string, verified bool) error {
	res, err := p.db.ExecContext(ctx, `UPDATE users SET email_verified = $2 WHERE id = $1`, id, verified)
	return expectOne(res, err, "user "+id)
}

func (p *Postgres) DeleteUser(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return expectOne(res, err, "user "+id)
}

// -------- Classes --------

const classColumns = `id, name, day_of_week, start_time, duration_minutes, teacher_id, group_name, subject_code, created_at`

func scanClass(row interface{ Scan(...any) error }) (school.ClassSection, error) {
	var c school.ClassSection
	err := row.Scan(&c.ID, &c.Name, &c.DayOfWeek, &c.StartTime, &c.DurationMinutes, &c.TeacherID, &c.GroupName, &c.SubjectCode, &c.CreatedAt)
	return c, err
}

func (p *Postgres) queryClasses(ctx context.Context, query string, args ...any) ([]school.ClassSection, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query classes")
	}
	defer rows.Close()
	var classes []school.ClassSection
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan class")
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

func (p *Postgres) CreateClass(ctx context.Context, c *school.ClassSection) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO classes (`+classColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.Name, c.DayOfWeek, c.StartTime, c.DurationMinutes, c.TeacherID, c.GroupName, c.SubjectCode, c.CreatedAt)
	return classify(err, "class "+c.Name)
}

func (p *Postgres) GetClass(ctx context.Context, id string) (*school.ClassSection, error) {
	c, err := scanClass(p.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "class "+id)
	}
	return &c, nil
}

func (p *Postgres) ListClasses(ctx context.Context, f school.ClassFilter) ([]school.ClassSection, error) {
	query := `SELECT ` + classColumns + ` FROM classes`
	args := []any{}
	clauses := []string{}
	if f.TeacherID != "" {
		args = append(args, f.TeacherID)
		clauses = append(clauses, "teacher_id = $"+itoa(len(args)))
	}
	if f.GroupName != "" {
		args = append(args, f.GroupName)
		clauses = append(clauses, "group_name = $"+itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY group_name, name, day_of_week`
	return p.queryClasses(ctx, query, args...)
}

func (p *Postgres) FindClassesBySubject(ctx context.Context, subjectCode, groupName string) ([]school.ClassSection, error) {
	return p.queryClasses(ctx, `
		SELECT `+classColumns+` FROM classes
		WHERE group_name = $1
		  AND (UPPER(subject_code) = UPPER($2) OR name ILIKE $3)
		ORDER BY name, day_of_week
	`, groupName, subjectCode, escapeLike(subjectCode)+"%")
}

func (p *Postgres) DeleteClass(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	return expectOne(res, err, "class "+id)
}

// -------- Enrollments --------

const enrollmentColumns = `id, student_id, class_id, marks, st1, st2, evaluation, end_term, created_at`

func scanEnrollment(row interface{ Scan(...any) error }) (school.Enrollment, error) {
	var e school.Enrollment
	err := row.Scan(&e.ID, &e.StudentID, &e.ClassID, &e.Marks, &e.ST1, &e.ST2, &e.Evaluation, &e.EndTerm, &e.CreatedAt)
	return e, err
}

// InsertEnrollment relies on UNIQUE (student_id, class_id): a duplicate pair
// returns no row and is reported as a conflict.
func (p *Postgres) InsertEnrollment(ctx context.Context, e *school.Enrollment) error {
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO enrollments (id, student_id, class_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id, class_id) DO NOTHING
		RETURNING created_at
	`, e.ID, e.StudentID, e.ClassID).Scan(&e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return school.Conflictf("student %s is already enrolled in class %s", e.StudentID, e.ClassID)
	}
	return classify(err, "enrollment")
}

func (p *Postgres) GetEnrollment(ctx context.Context, id string) (*school.Enrollment, error) {
	e, err := scanEnrollment(p.db.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "enrollment "+id)
	}
	return &e, nil
}

func (p *Postgres) ListRoster(ctx context.Context, classID string) ([]school.RosterEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT e.id, u.id, u.name, u.email, u.group_name, e.st1, e.st2, e.evaluation, e.end_term
		FROM enrollments e
		JOIN users u ON u.id = e.student_id
		WHERE e.class_id = $1
		ORDER BY u.name, u.email
	`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "list roster")
	}
	defer rows.Close()
	var roster []school.RosterEntry
	for rows.Next() {
		var r school.RosterEntry
		if err := rows.Scan(&r.EnrollmentID, &r.StudentID, &r.Name, &r.Email, &r.GroupName, &r.ST1, &r.ST2, &r.Evaluation, &r.EndTerm); err != nil {
			return nil, errors.Wrap(err, "scan roster")
		}
		roster = append(roster, r)
	}
	return roster, rows.Err()
}

func (p *Postgres) ListStudentEnrollments(ctx context.Context, studentID string) ([]school.Enrollment, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = $1 ORDER BY created_at`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "list enrollments")
	}
	defer rows.Close()
	var out []school.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan enrollment")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteEnrollment(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	return expectOne(res, err, "enrollment "+id)
}

var marksColumns = map[school.MarksField]string{
	school.FieldMarks:      "marks",
	school.FieldST1:        "st1",
	school.FieldST2:        "st2",
	school.FieldEvaluation: "evaluation",
	school.FieldEndTerm:    "end_term",
}

func (p *Postgres) SetMarks(ctx context.Context, classID, studentID string, field school.MarksField, value float64) error {
	col, ok := marksColumns[field]
	if !ok {
		return fmt.Errorf("unknown marks field %q", field)
	}
	res, err := p.db.ExecContext(ctx, `UPDATE enrollments SET `+col+` = $3 WHERE class_id = $1 AND student_id = $2`, classID, studentID, value)
	return expectOne(res, err, "enrollment")
}

func (p *Postgres) SetEnrollmentMarks(ctx context.Context, id string, values map[school.MarksField]*float64) error {
	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	args := []any{id}
	sets := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := marksColumns[school.MarksField(f)]
		if !ok {
			return fmt.Errorf("unknown marks field %q", f)
		}
		args = append(args, values[school.MarksField(f)])
		sets = append(sets, col+" = $"+itoa(len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	res, err := p.db.ExecContext(ctx, `UPDATE enrollments SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	return expectOne(res, err, "enrollment "+id)
}

// -------- Attendance --------

func (p *Postgres) queryAttendance(ctx context.Context, query string, args ...any) ([]school.AttendanceRecord, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query attendance")
	}
	defer rows.Close()
	var out []school.AttendanceRecord
	for rows.Next() {
		var rec school.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.Timestamp, &rec.Status); err != nil {
			return nil, errors.Wrap(err, "scan attendance")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) ListAttendance(ctx context.Context, classID string, from, to time.Time) ([]school.AttendanceRecord, error) {
	return p.queryAttendance(ctx, `
		SELECT id, student_id, class_id, date, status
		FROM attendance
		WHERE class_id = $1 AND date >= $2 AND date < $3
		ORDER BY date
	`, classID, from, to)
}

// InsertAttendance writes all rows in a single multi-row INSERT.
func (p *Postgres) InsertAttendance(ctx context.Context, recs []school.AttendanceRecord) error {
	if len(recs) == 0 {
		return nil
	}
	values := make([]string, 0, len(recs))
	args := make([]any, 0, len(recs)*5)
	for _, rec := range recs {
		n := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5))
		args = append(args, rec.ID, rec.StudentID, rec.ClassID, rec.Timestamp, rec.Status)
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO attendance (id, student_id, class_id, date, status) VALUES `+strings.Join(values, ", "), args...)
	return classify(err, "attendance")
}

func (p *Postgres) UpdateAttendanceStatus(ctx context.Context, classID, studentID string, from, to time.Time, status school.AttendanceStatus) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE attendance SET status = $5
		WHERE class_id = $1 AND student_id = $2 AND date >= $3 AND date < $4
	`, classID, studentID, from, to, status)
	return expectOne(res, err, "attendance for student "+studentID)
}

func (p *Postgres) ListStudentAttendance(ctx context.Context, studentID, classID string) ([]school.AttendanceRecord, error) {
	return p.queryAttendance(ctx, `
		SELECT id, student_id, class_id, date, status
		FROM attendance
		WHERE student_id = $1 AND class_id = $2
		ORDER BY date DESC
	`, studentID, classID)
}

// -------- Activity --------

func (p *Postgres) InsertActivity(ctx context.Context, a *school.Activity) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO activity (id, kind, actor_id, subject_id, summary, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, a.ID, a.Kind, a.ActorID, a.SubjectID, a.Summary, a.OccurredAt)
	return classify(err, "activity")
}

func (p *Postgres) ListActivity(ctx context.Context, limit int) ([]school.Activity, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, kind, actor_id, subject_id, summary, occurred_at
		FROM activity
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list activity")
	}
	defer rows.Close()
	var out []school.Activity
	for rows.Next() {
		var a school.Activity
		if err := rows.Scan(&a.ID, &a.Kind, &a.ActorID, &a.SubjectID, &a.Summary, &a.OccurredAt); err != nil {
			return nil, errors.Wrap(err, "scan activity")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
