package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"acadence/internal/school"
)

// Memory is an in-process school.Store for local development and tests. It
// enforces the same uniqueness rules as the Postgres schema.
type Memory struct {
	mu          sync.RWMutex
	users       map[string]school.User
	classes     map[string]school.ClassSection
	enrollments map[string]school.Enrollment
	attendance  map[string]school.AttendanceRecord
	activity    []school.Activity

	// FailOn makes the named operation return an error, for tests.
	FailOn map[string]error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		users:       map[string]school.User{},
		classes:     map[string]school.ClassSection{},
		enrollments: map[string]school.Enrollment{},
		attendance:  map[string]school.AttendanceRecord{},
		FailOn:      map[string]error{},
	}
}

var _ school.Store = (*Memory)(nil)

func (m *Memory) fail(op string) error {
	return m.FailOn[op]
}

// -------- Users --------

func (m *Memory) CreateUser(_ context.Context, u *school.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateUser"); err != nil {
		return err
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return school.Conflictf("user %s already exists", u.Email)
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*school.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, school.NotFoundf("user %s not found", id)
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*school.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, school.NotFoundf("user not found")
}

func (m *Memory) ListUsers(_ context.Context, role school.Role) ([]school.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []school.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (m *Memory) SetUserGroup(_ context.Context, id string, group *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return school.NotFoundf("user %s not found", id)
	}
	u.GroupName = group
	m.users[id] = u
	return nil
}

func (m *Memory) SetEmailVerified(_ context.Context, id string, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return school.NotFoundf("user %s not found", id)
	}
	u.EmailVerified = verified
	m.users[id] = u
	return nil
}

// DeleteUser cascades to owned classes, enrollments and attendance like the
// foreign keys do.
func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return school.NotFoundf("user %s not found", id)
	}
	delete(m.users, id)
	for cid, c := range m.classes {
		if c.TeacherID == id {
			m.deleteClassLocked(cid)
		}
	}
	for eid, e := range m.enrollments {
		if e.StudentID == id {
			delete(m.enrollments, eid)
		}
	}
	for aid, a := range m.attendance {
		if a.StudentID == id {
			delete(m.attendance, aid)
		}
	}
	return nil
}

// -------- Classes --------

func (m *Memory) CreateClass(_ context.Context, c *school.ClassSection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[c.TeacherID]; !ok {
		return school.NotFoundf("class %s references a missing row", c.Name)
	}
	m.classes[c.ID] = *c
	return nil
}

func (m *Memory) GetClass(_ context.Context, id string) (*school.ClassSection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[id]
	if !ok {
		return nil, school.NotFoundf("class %s not found", id)
	}
	return &c, nil
}

func (m *Memory) ListClasses(_ context.Context, f school.ClassFilter) ([]school.ClassSection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []school.ClassSection
	for _, c := range m.classes {
		if f.TeacherID != "" && c.TeacherID != f.TeacherID {
			continue
		}
		if f.GroupName != "" && c.GroupName != f.GroupName {
			continue
		}
		out = append(out, c)
	}
	sortClasses(out)
	return out, nil
}

func (m *Memory) FindClassesBySubject(_ context.Context, subjectCode, groupName string) ([]school.ClassSection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("FindClassesBySubject"); err != nil {
		return nil, err
	}
	code := strings.ToLower(subjectCode)
	var out []school.ClassSection
	for _, c := range m.classes {
		if c.GroupName != groupName {
			continue
		}
		exact := c.SubjectCode != nil && strings.ToLower(*c.SubjectCode) == code
		if exact || strings.HasPrefix(strings.ToLower(c.Name), code) {
			out = append(out, c)
		}
	}
	sortClasses(out)
	return out, nil
}

func (m *Memory) DeleteClass(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[id]; !ok {
		return school.NotFoundf("class %s not found", id)
	}
	m.deleteClassLocked(id)
	return nil
}

func (m *Memory) deleteClassLocked(id string) {
	delete(m.classes, id)
	for eid, e := range m.enrollments {
		if e.ClassID == id {
			delete(m.enrollments, eid)
		}
	}
	for aid, a := range m.attendance {
		if a.ClassID == id {
			delete(m.attendance, aid)
		}
	}
}

func sortClasses(cs []school.ClassSection) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Name != cs[j].Name {
			return cs[i].Name < cs[j].Name
		}
		return cs[i].ID < cs[j].ID
	})
}

// -------- Enrollments --------

func (m *Memory) InsertEnrollment(_ context.Context, e *school.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertEnrollment"); err != nil {
		return err
	}
	for _, existing := range m.enrollments {
		if existing.StudentID == e.StudentID && existing.ClassID == e.ClassID {
			return school.Conflictf("student %s is already enrolled in class %s", e.StudentID, e.ClassID)
		}
	}
	if _, ok := m.classes[e.ClassID]; !ok {
		return school.NotFoundf("enrollment references a missing row")
	}
	if _, ok := m.users[e.StudentID]; !ok {
		return school.NotFoundf("enrollment references a missing row")
	}
	e.CreatedAt = time.Now().UTC()
	m.enrollments[e.ID] = *e
	return nil
}

func (m *Memory) GetEnrollment(_ context.Context, id string) (*school.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrollments[id]
	if !ok {
		return nil, school.NotFoundf("enrollment %s not found", id)
	}
	return &e, nil
}

func (m *Memory) ListRoster(_ context.Context, classID string) ([]school.RosterEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("ListRoster"); err != nil {
		return nil, err
	}
	var out []school.RosterEntry
	for _, e := range m.enrollments {
		if e.ClassID != classID {
			continue
		}
		u := m.users[e.StudentID]
		out = append(out, school.RosterEntry{
			EnrollmentID: e.ID,
			StudentID:    u.ID,
			Name:         u.Name,
			Email:        u.Email,
			GroupName:    u.GroupName,
			ST1:          e.ST1,
			ST2:          e.ST2,
			Evaluation:   e.Evaluation,
			EndTerm:      e.EndTerm,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (m *Memory) ListStudentEnrollments(_ context.Context, studentID string) ([]school.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []school.Enrollment
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassID < out[j].ClassID })
	return out, nil
}

func (m *Memory) DeleteEnrollment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.enrollments[id]; !ok {
		return school.NotFoundf("enrollment %s not found", id)
	}
	delete(m.enrollments, id)
	return nil
}

func setField(e *school.Enrollment, field school.MarksField, v *float64) {
	switch field {
	case school.FieldMarks:
		e.Marks = v
	case school.FieldST1:
		e.ST1 = v
	case school.FieldST2:
		e.ST2 = v
	case school.FieldEvaluation:
		e.Evaluation = v
	case school.FieldEndTerm:
		e.EndTerm = v
	}
}

func (m *Memory) SetMarks(_ context.Context, classID, studentID string, field school.MarksField, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailOn["SetMarks:"+studentID]; err != nil {
		return err
	}
	for id, e := range m.enrollments {
		if e.ClassID == classID && e.StudentID == studentID {
			v := value
			setField(&e, field, &v)
			m.enrollments[id] = e
			return nil
		}
	}
	return school.NotFoundf("enrollment not found")
}

func (m *Memory) SetEnrollmentMarks(_ context.Context, id string, values map[school.MarksField]*float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok {
		return school.NotFoundf("enrollment %s not found", id)
	}
	for field, v := range values {
		val := *v
		setField(&e, field, &val)
	}
	m.enrollments[id] = e
	return nil
}

// -------- Attendance --------

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (m *Memory) ListAttendance(_ context.Context, classID string, from, to time.Time) ([]school.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []school.AttendanceRecord
	for _, a := range m.attendance {
		if a.ClassID == classID && inRange(a.Timestamp, from, to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *Memory) InsertAttendance(_ context.Context, recs []school.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertAttendance"); err != nil {
		return err
	}
	for _, rec := range recs {
		if _, ok := m.attendance[rec.ID]; ok {
			return school.Conflictf("attendance %s already exists", rec.ID)
		}
	}
	for _, rec := range recs {
		m.attendance[rec.ID] = rec
	}
	return nil
}

func (m *Memory) UpdateAttendanceStatus(_ context.Context, classID, studentID string, from, to time.Time, status school.AttendanceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateAttendanceStatus"); err != nil {
		return err
	}
	n := 0
	for id, a := range m.attendance {
		if a.ClassID == classID && a.StudentID == studentID && inRange(a.Timestamp, from, to) {
			a.Status = status
			m.attendance[id] = a
			n++
		}
	}
	if n == 0 {
		return school.NotFoundf("attendance for student %s not found", studentID)
	}
	return nil
}

func (m *Memory) ListStudentAttendance(_ context.Context, studentID, classID string) ([]school.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []school.AttendanceRecord
	for _, a := range m.attendance {
		if a.StudentID == studentID && a.ClassID == classID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// -------- Activity --------

func (m *Memory) InsertActivity(_ context.Context, a *school.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertActivity"); err != nil {
		return err
	}
	for _, existing := range m.activity {
		if existing.ID == a.ID {
			return nil
		}
	}
	m.activity = append(m.activity, *a)
	return nil
}

func (m *Memory) ListActivity(_ context.Context, limit int) ([]school.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]school.Activity, len(m.activity))
	copy(out, m.activity)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
