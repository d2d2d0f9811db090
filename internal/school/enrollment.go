package school

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"acadence/internal/queue"
)

// CreateEnrollment enrolls a student in a class. An existing pair fails with a
// conflict and writes nothing.
func (s *Service) CreateEnrollment(ctx context.Context, adminID, studentID, classID string) (*Enrollment, error) {
	if studentID == "" || classID == "" {
		return nil, validationf("student_id and class_id are required")
	}
	if _, err := s.store.GetClass(ctx, classID); err != nil {
		return nil, persistence(err, "load class")
	}
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	e := &Enrollment{ID: uuid.NewString(), StudentID: studentID, ClassID: classID}
	if err := s.store.InsertEnrollment(ctx, e); err != nil {
		return nil, persistence(err, "insert enrollment")
	}
	s.metrics.EnrollmentOutcome("created", 1)
	s.publish(ctx, queue.Event{
		Kind:      queue.KindEnrollmentCreated,
		ActorID:   adminID,
		SubjectID: classID,
		Summary:   fmt.Sprintf("student %s enrolled", studentID),
	})
	return e, nil
}

func (s *Service) requireStudent(ctx context.Context, studentID string) error {
	u, err := s.store.GetUser(ctx, studentID)
	if err != nil {
		return persistence(err, "load student")
	}
	if u.Role != RoleStudent {
		return validationf("user %s is not a student", studentID)
	}
	return nil
}

// ClassRef identifies a class touched by an expansion.
type ClassRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Day  string `json:"day"`
}

// EnrollmentPair is one student × class combination of an expansion.
type EnrollmentPair struct {
	StudentID string `json:"student_id"`
	ClassID   string `json:"class_id"`
}

// ExpansionResult reports what Expand did. Succeeded holds created pairs;
// skipped pairs were already enrolled.
type ExpansionResult struct {
	SuccessCount int                   `json:"success_count"`
	SkipCount    int                   `json:"skip_count"`
	Classes      []ClassRef            `json:"classes"`
	Skipped      []EnrollmentPair      `json:"skipped"`
	Result       Batch[EnrollmentPair] `json:"result"`
}

// Expand enrolls every student in every class of subjectCode within
// groupName. Classes match by subject code, or by name prefix for rows that
// predate subject codes. Pairs that already exist are skipped; per-pair
// failures are collected rather than aborting the batch.
func (s *Service) Expand(ctx context.Context, adminID string, studentIDs []string, subjectCode, groupName string) (ExpansionResult, error) {
	subjectCode = strings.TrimSpace(subjectCode)
	if subjectCode == "" {
		return ExpansionResult{}, validationf("subject_code is required")
	}
	if !ValidGroupName(groupName) {
		return ExpansionResult{}, validationf("invalid group name %q", groupName)
	}
	students := dedupe(studentIDs)
	if len(students) == 0 {
		return ExpansionResult{}, validationf("student_ids must not be empty")
	}

	classes, err := s.store.FindClassesBySubject(ctx, subjectCode, groupName)
	if err != nil {
		return ExpansionResult{}, persistence(err, "resolve subject")
	}
	if len(classes) == 0 {
		return ExpansionResult{}, NotFoundf("no classes found for subject %s in group %s", subjectCode, groupName)
	}

	res := ExpansionResult{
		Classes: make([]ClassRef, 0, len(classes)),
		Skipped: []EnrollmentPair{},
		Result:  newBatch[EnrollmentPair](),
	}
	for _, c := range classes {
		res.Classes = append(res.Classes, ClassRef{ID: c.ID, Name: c.Name, Day: c.DayOfWeek})
	}

	for _, studentID := range students {
		if err := s.requireStudent(ctx, studentID); err != nil {
			for _, c := range classes {
				res.Result.fail(EnrollmentPair{StudentID: studentID, ClassID: c.ID}, err)
			}
			continue
		}
		for _, c := range classes {
			pair := EnrollmentPair{StudentID: studentID, ClassID: c.ID}
			err := s.store.InsertEnrollment(ctx, &Enrollment{ID: uuid.NewString(), StudentID: studentID, ClassID: c.ID})
			switch {
			case err == nil:
				res.SuccessCount++
				res.Result.ok(pair)
			case KindOf(err) == KindConflict:
				res.SkipCount++
				res.Skipped = append(res.Skipped, pair)
			default:
				res.Result.fail(pair, persistence(err, "insert enrollment"))
			}
		}
	}

	s.metrics.EnrollmentOutcome("created", res.SuccessCount)
	s.metrics.EnrollmentOutcome("skipped", res.SkipCount)
	s.metrics.EnrollmentOutcome("failed", len(res.Result.Failed))
	if res.SuccessCount > 0 {
		s.publish(ctx, queue.Event{
			Kind:      queue.KindEnrollmentsExpanded,
			ActorID:   adminID,
			SubjectID: subjectCode,
			Summary:   fmt.Sprintf("%s/%s: %d enrollments created, %d skipped", subjectCode, groupName, res.SuccessCount, res.SkipCount),
		})
	}
	return res, nil
}

// ListClassEnrollments returns the roster of a class.
func (s *Service) ListClassEnrollments(ctx context.Context, classID string) ([]RosterEntry, error) {
	if _, err := s.store.GetClass(ctx, classID); err != nil {
		return nil, persistence(err, "load class")
	}
	roster, err := s.store.ListRoster(ctx, classID)
	if err != nil {
		return nil, persistence(err, "load roster")
	}
	if roster == nil {
		roster = []RosterEntry{}
	}
	return roster, nil
}

// TeacherRoster returns the roster of a class the caller teaches.
func (s *Service) TeacherRoster(ctx context.Context, callerID, classID string) ([]RosterEntry, error) {
	if _, err := s.ownedClass(ctx, callerID, classID); err != nil {
		return nil, err
	}
	return s.ListClassEnrollments(ctx, classID)
}

// DeleteEnrollment removes an enrollment by id.
func (s *Service) DeleteEnrollment(ctx context.Context, id string) error {
	return persistence(s.store.DeleteEnrollment(ctx, id), "delete enrollment")
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
