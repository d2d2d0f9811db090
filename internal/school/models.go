package school

import (
	"regexp"
	"strings"
	"time"
)

// Role is a user's account type.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid returns true when the role is a supported value.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	default:
		return false
	}
}

// User is an admin, teacher or student account.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	GroupName     *string   `json:"group_name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// ClassSection is one weekly slot of a subject, owned by a single teacher.
type ClassSection struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DayOfWeek       string    `json:"day"`
	StartTime       string    `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	TeacherID       string    `json:"teacher_id"`
	GroupName       string    `json:"group_name"`
	SubjectCode     *string   `json:"subject_code,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ClassFilter narrows ListClasses; empty fields match everything.
type ClassFilter struct {
	TeacherID string
	GroupName string
}

// Enrollment links a student to a class and carries their marks.
type Enrollment struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ClassID    string    `json:"class_id"`
	Marks      *float64  `json:"marks"`
	ST1        *float64  `json:"st1"`
	ST2        *float64  `json:"st2"`
	Evaluation *float64  `json:"evaluation"`
	EndTerm    *float64  `json:"end_term"`
	CreatedAt  time.Time `json:"created_at"`
}

// RosterEntry is an enrollment joined with the student's account.
type RosterEntry struct {
	EnrollmentID string   `json:"enrollment_id"`
	StudentID    string   `json:"student_id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	GroupName    *string  `json:"group_name,omitempty"`
	ST1          *float64 `json:"st1"`
	ST2          *float64 `json:"st2"`
	Evaluation   *float64 `json:"evaluation"`
	EndTerm      *float64 `json:"end_term"`
}

// AttendanceRecord is one student's status for one class on one day.
type AttendanceRecord struct {
	ID        string           `json:"id"`
	StudentID string           `json:"student_id"`
	ClassID   string           `json:"class_id"`
	Timestamp time.Time        `json:"date"`
	Status    AttendanceStatus `json:"status"`
}

// Activity is an entry in the admin activity feed, written by the worker.
type Activity struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	ActorID    string    `json:"actor_id"`
	SubjectID  string    `json:"subject_id"`
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurred_at"`
}

var groupNamePattern = regexp.MustCompile(`^G\d+$`)

// ValidGroupName reports whether name looks like G1, G12, ...
func ValidGroupName(name string) bool {
	return groupNamePattern.MatchString(name)
}

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

func validDay(day string) bool {
	return weekdays[strings.ToLower(day)]
}

// canonicalDay turns "monday" or "MONDAY" into "Monday".
func canonicalDay(day string) string {
	day = strings.ToLower(day)
	if day == "" {
		return day
	}
	return strings.ToUpper(day[:1]) + day[1:]
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
