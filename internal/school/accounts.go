package school

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"acadence/internal/auth"
	"acadence/internal/queue"
)

// NewAccount is the input for creating a user.
type NewAccount struct {
	Name      string
	Email     string
	Password  string
	Role      Role
	GroupName *string
	Verified  bool
}

const minPasswordLen = 6

// CreateAccount creates a user with a bcrypt-hashed password.
func (s *Service) CreateAccount(ctx context.Context, in NewAccount) (*User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" {
		return nil, validationf("name and email are required")
	}
	if !in.Role.Valid() {
		return nil, validationf("invalid role %q", in.Role)
	}
	if len(in.Password) < minPasswordLen {
		return nil, validationf("password must be at least %d characters", minPasswordLen)
	}
	if in.GroupName != nil && !ValidGroupName(*in.GroupName) {
		return nil, validationf("invalid group name %q", *in.GroupName)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, persistence(err, "hash password")
	}
	u := &User{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Email:         in.Email,
		PasswordHash:  hash,
		Role:          in.Role,
		GroupName:     in.GroupName,
		EmailVerified: in.Verified,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, persistence(err, "create user")
	}
	return u, nil
}

// Login checks credentials. Unknown emails and wrong passwords produce the
// same error.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, permissionf("invalid email or password")
		}
		return nil, persistence(err, "load user")
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, permissionf("invalid email or password")
	}
	if !u.EmailVerified && u.Role != RoleAdmin {
		return nil, permissionf("email address is not verified")
	}
	return u, nil
}

// ListUsers lists accounts of one role, or all when role is empty.
func (s *Service) ListUsers(ctx context.Context, role Role) ([]User, error) {
	if role != "" && !role.Valid() {
		return nil, validationf("invalid role %q", role)
	}
	users, err := s.store.ListUsers(ctx, role)
	if err != nil {
		return nil, persistence(err, "list users")
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, adminID, id string) error {
	if adminID == id {
		return validationf("cannot delete your own account")
	}
	return persistence(s.store.DeleteUser(ctx, id), "delete user")
}

// AssignGroup sets or clears (empty name) a student's group.
func (s *Service) AssignGroup(ctx context.Context, userID, groupName string) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return persistence(err, "load user")
	}
	if u.Role != RoleStudent {
		return validationf("user %s is not a student", userID)
	}
	var group *string
	if groupName != "" {
		if !ValidGroupName(groupName) {
			return validationf("invalid group name %q", groupName)
		}
		group = &groupName
	}
	return persistence(s.store.SetUserGroup(ctx, userID, group), "assign group")
}

// AssignGroupBulk moves many students into one group.
func (s *Service) AssignGroupBulk(ctx context.Context, adminID string, userIDs []string, groupName string) (Batch[string], error) {
	if !ValidGroupName(groupName) {
		return Batch[string]{}, validationf("invalid group name %q", groupName)
	}
	ids := dedupe(userIDs)
	if len(ids) == 0 {
		return Batch[string]{}, validationf("student_ids must not be empty")
	}
	res := newBatch[string]()
	for _, id := range ids {
		if err := s.AssignGroup(ctx, id, groupName); err != nil {
			res.fail(id, err)
			continue
		}
		res.ok(id)
	}
	if len(res.Succeeded) > 0 {
		s.publish(ctx, queue.Event{
			Kind:      queue.KindGroupAssigned,
			ActorID:   adminID,
			SubjectID: groupName,
			Summary:   fmt.Sprintf("%d students moved to %s", len(res.Succeeded), groupName),
		})
	}
	return res, nil
}

// SetEmailVerified records the outcome of the external verification flow.
func (s *Service) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	return persistence(s.store.SetEmailVerified(ctx, userID, verified), "set email verified")
}

var startTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// NewClass is the input for creating a class section.
type NewClass struct {
	Name            string
	DayOfWeek       string
	StartTime       string
	DurationMinutes int
	TeacherID       string
	GroupName       string
	SubjectCode     *string
}

// CreateClass validates and stores a class section owned by a teacher.
func (s *Service) CreateClass(ctx context.Context, adminID string, in NewClass) (*ClassSection, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return nil, validationf("name is required")
	case !validDay(in.DayOfWeek):
		return nil, validationf("invalid day %q", in.DayOfWeek)
	case !startTimePattern.MatchString(in.StartTime):
		return nil, validationf("invalid start time %q, expected HH:MM", in.StartTime)
	case in.DurationMinutes <= 0 || in.DurationMinutes > 24*60:
		return nil, validationf("duration must be between 1 and 1440 minutes")
	case !ValidGroupName(in.GroupName):
		return nil, validationf("invalid group name %q", in.GroupName)
	}
	teacher, err := s.store.GetUser(ctx, in.TeacherID)
	if err != nil {
		return nil, persistence(err, "load teacher")
	}
	if teacher.Role != RoleTeacher {
		return nil, validationf("user %s is not a teacher", in.TeacherID)
	}
	if in.SubjectCode != nil {
		code := strings.ToUpper(strings.TrimSpace(*in.SubjectCode))
		if code == "" {
			in.SubjectCode = nil
		} else {
			in.SubjectCode = &code
		}
	}
	c := &ClassSection{
		ID:              uuid.NewString(),
		Name:            in.Name,
		DayOfWeek:       canonicalDay(in.DayOfWeek),
		StartTime:       in.StartTime,
		DurationMinutes: in.DurationMinutes,
		TeacherID:       in.TeacherID,
		GroupName:       in.GroupName,
		SubjectCode:     in.SubjectCode,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.CreateClass(ctx, c); err != nil {
		return nil, persistence(err, "create class")
	}
	s.publish(ctx, queue.Event{
		Kind:      queue.KindClassCreated,
		ActorID:   adminID,
		SubjectID: c.ID,
		Summary:   fmt.Sprintf("class %s (%s) created for %s", c.Name, c.GroupName, teacher.Name),
	})
	return c, nil
}

// GetClass returns a class by id.
func (s *Service) GetClass(ctx context.Context, id string) (*ClassSection, error) {
	c, err := s.store.GetClass(ctx, id)
	return c, persistence(err, "load class")
}

// ListClasses lists classes matching f.
func (s *Service) ListClasses(ctx context.Context, f ClassFilter) ([]ClassSection, error) {
	if f.GroupName != "" && !ValidGroupName(f.GroupName) {
		return nil, validationf("invalid group name %q", f.GroupName)
	}
	classes, err := s.store.ListClasses(ctx, f)
	if err != nil {
		return nil, persistence(err, "list classes")
	}
	if classes == nil {
		classes = []ClassSection{}
	}
	return classes, nil
}

// StudentClasses lists the classes a student is enrolled in.
func (s *Service) StudentClasses(ctx context.Context, studentID string) ([]ClassSection, error) {
	enrollments, err := s.store.ListStudentEnrollments(ctx, studentID)
	if err != nil {
		return nil, persistence(err, "load enrollments")
	}
	out := make([]ClassSection, 0, len(enrollments))
	for _, e := range enrollments {
		c, err := s.store.GetClass(ctx, e.ClassID)
		if err != nil {
			return nil, persistence(err, "load class")
		}
		out = append(out, *c)
	}
	return out, nil
}

// DeleteClass removes a class section.
func (s *Service) DeleteClass(ctx context.Context, id string) error {
	return persistence(s.store.DeleteClass(ctx, id), "delete class")
}

// ListActivity returns the most recent activity feed entries.
func (s *Service) ListActivity(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	items, err := s.store.ListActivity(ctx, limit)
	if err != nil {
		return nil, persistence(err, "list activity")
	}
	if items == nil {
		items = []Activity{}
	}
	return items, nil
}
