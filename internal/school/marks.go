package school

import (
	"context"
	"fmt"

	"acadence/internal/queue"
)

const (
	minMark = 0
	maxMark = 100
)

var sectionFields = map[string]MarksField{
	"st1":        FieldST1,
	"st2":        FieldST2,
	"evaluation": FieldEvaluation,
	"end_term":   FieldEndTerm,
}

// SectionField maps an upload section name to its enrollment column.
func SectionField(section string) (MarksField, error) {
	f, ok := sectionFields[section]
	if !ok {
		return "", validationf("invalid section %q, expected st1, st2, evaluation or end_term", section)
	}
	return f, nil
}

// MarksEntry is one student's score in an upload.
type MarksEntry struct {
	StudentID string  `json:"student_id"`
	Marks     float64 `json:"marks"`
}

// UploadResult reports an upload. Writes are applied one by one; a failed
// write is listed and does not undo the others.
type UploadResult struct {
	ClassID       string            `json:"class_id"`
	Section       string            `json:"section"`
	UploadedCount int               `json:"uploaded_count"`
	Result        Batch[MarksEntry] `json:"result"`
}

func validMark(v float64) bool {
	return v >= minMark && v <= maxMark
}

// Upload stores one section's marks for a class the caller teaches. Every
// entry is checked (range and enrollment) before the first write.
func (s *Service) Upload(ctx context.Context, callerID, classID, section string, entries []MarksEntry) (UploadResult, error) {
	field, err := SectionField(section)
	if err != nil {
		return UploadResult{}, err
	}
	if len(entries) == 0 {
		return UploadResult{}, validationf("marksData must not be empty")
	}
	for _, e := range entries {
		if e.StudentID == "" {
			return UploadResult{}, validationf("student_id is required for every entry")
		}
		if !validMark(e.Marks) {
			return UploadResult{}, validationf("marks for student %s must be between %d and %d, got %v", e.StudentID, minMark, maxMark, e.Marks)
		}
	}
	if _, err := s.ownedClass(ctx, callerID, classID); err != nil {
		return UploadResult{}, err
	}

	roster, err := s.store.ListRoster(ctx, classID)
	if err != nil {
		return UploadResult{}, persistence(err, "load roster")
	}
	enrolled := make(map[string]bool, len(roster))
	for _, r := range roster {
		enrolled[r.StudentID] = true
	}
	for _, e := range entries {
		if !enrolled[e.StudentID] {
			return UploadResult{}, validationf("student %s is not enrolled in class %s", e.StudentID, classID)
		}
	}

	res := UploadResult{ClassID: classID, Section: section, Result: newBatch[MarksEntry]()}
	for _, e := range entries {
		if err := s.store.SetMarks(ctx, classID, e.StudentID, field, e.Marks); err != nil {
			res.Result.fail(e, persistence(err, "update marks"))
			continue
		}
		res.Result.ok(e)
	}
	res.UploadedCount = len(res.Result.Succeeded)

	s.metrics.MarksUploaded(section, res.UploadedCount)
	if res.UploadedCount > 0 {
		s.publish(ctx, queue.Event{
			Kind:      queue.KindMarksUploaded,
			ActorID:   callerID,
			SubjectID: classID,
			Summary:   fmt.Sprintf("%s marks uploaded for %d students", section, res.UploadedCount),
		})
	}
	return res, nil
}

// MarksPatch carries the fields an admin override touches; nil leaves a
// field unchanged.
type MarksPatch struct {
	Marks      *float64 `json:"marks"`
	ST1        *float64 `json:"st1"`
	ST2        *float64 `json:"st2"`
	Evaluation *float64 `json:"evaluation"`
	EndTerm    *float64 `json:"end_term"`
}

func (p MarksPatch) fields() map[MarksField]*float64 {
	out := map[MarksField]*float64{}
	for field, v := range map[MarksField]*float64{
		FieldMarks:      p.Marks,
		FieldST1:        p.ST1,
		FieldST2:        p.ST2,
		FieldEvaluation: p.Evaluation,
		FieldEndTerm:    p.EndTerm,
	} {
		if v != nil {
			out[field] = v
		}
	}
	return out
}

// OverrideMarks lets an admin set any marks field of an enrollment.
func (s *Service) OverrideMarks(ctx context.Context, adminID, enrollmentID string, patch MarksPatch) (*Enrollment, error) {
	values := patch.fields()
	if len(values) == 0 {
		return nil, validationf("at least one marks field is required")
	}
	for field, v := range values {
		if !validMark(*v) {
			return nil, validationf("%s must be between %d and %d, got %v", field, minMark, maxMark, *v)
		}
	}
	if err := s.store.SetEnrollmentMarks(ctx, enrollmentID, values); err != nil {
		return nil, persistence(err, "update marks")
	}
	e, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, persistence(err, "load enrollment")
	}
	s.publish(ctx, queue.Event{
		Kind:      queue.KindMarksOverridden,
		ActorID:   adminID,
		SubjectID: e.ClassID,
		Summary:   fmt.Sprintf("marks overridden for student %s", e.StudentID),
	})
	return e, nil
}
