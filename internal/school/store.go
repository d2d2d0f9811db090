package school

import (
	"context"
	"time"
)

// MarksField names an enrollment column holding a score.
type MarksField string

const (
	FieldMarks      MarksField = "marks"
	FieldST1        MarksField = "st1"
	FieldST2        MarksField = "st2"
	FieldEvaluation MarksField = "evaluation"
	FieldEndTerm    MarksField = "end_term"
)

// Store is the persistence boundary. Implementations return NotFoundf for
// missing rows and Conflictf for uniqueness violations; any other error is
// treated as a persistence failure.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, role Role) ([]User, error)
	SetUserGroup(ctx context.Context, id string, group *string) error
	SetEmailVerified(ctx context.Context, id string, verified bool) error
	DeleteUser(ctx context.Context, id string) error

	CreateClass(ctx context.Context, c *ClassSection) error
	GetClass(ctx context.Context, id string) (*ClassSection, error)
	ListClasses(ctx context.Context, f ClassFilter) ([]ClassSection, error)
	// FindClassesBySubject matches group_name exactly and either the subject
	// code exactly or the class name by case-insensitive prefix.
	FindClassesBySubject(ctx context.Context, subjectCode, groupName string) ([]ClassSection, error)
	DeleteClass(ctx context.Context, id string) error

	// InsertEnrollment is a conditional insert: an existing (student, class)
	// pair yields a Conflictf error and no write.
	InsertEnrollment(ctx context.Context, e *Enrollment) error
	GetEnrollment(ctx context.Context, id string) (*Enrollment, error)
	ListRoster(ctx context.Context, classID string) ([]RosterEntry, error)
	ListStudentEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
	DeleteEnrollment(ctx context.Context, id string) error
	SetMarks(ctx context.Context, classID, studentID string, field MarksField, value float64) error
	SetEnrollmentMarks(ctx context.Context, id string, values map[MarksField]*float64) error

	// ListAttendance returns rows of a class with timestamp in [from, to).
	ListAttendance(ctx context.Context, classID string, from, to time.Time) ([]AttendanceRecord, error)
	InsertAttendance(ctx context.Context, recs []AttendanceRecord) error
	UpdateAttendanceStatus(ctx context.Context, classID, studentID string, from, to time.Time, status AttendanceStatus) error
	ListStudentAttendance(ctx context.Context, studentID, classID string) ([]AttendanceRecord, error)

	InsertActivity(ctx context.Context, a *Activity) error
	ListActivity(ctx context.Context, limit int) ([]Activity, error)
}
