package school

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"acadence/internal/queue"
)

// FinalizationResult summarizes one Finalize call.
type FinalizationResult struct {
	ClassID   string `json:"class_id"`
	Date      string `json:"date"`
	Submitted int    `json:"submitted"`
	Inserted  int    `json:"inserted"`
	Updated   int    `json:"updated"`
	Defaulted int    `json:"defaulted"`
}

// Finalize writes the authoritative attendance rows of classID for the
// calendar day of date. Every student on the roster ends up with exactly one
// row; students missing from submitted are recorded absent. Rows that already
// exist for the day are updated in place, the rest are inserted in one batch.
//
// A store failure aborts the call without undoing earlier writes. Running it
// again converges to the same rows.
func (s *Service) Finalize(ctx context.Context, callerID, classID string, date time.Time, submitted map[string]AttendanceStatus) (FinalizationResult, error) {
	if _, err := s.ownedClass(ctx, callerID, classID); err != nil {
		return FinalizationResult{}, err
	}
	for studentID, status := range submitted {
		if !status.Valid() {
			return FinalizationResult{}, validationf("invalid status %q for student %s", status, studentID)
		}
	}

	roster, err := s.store.ListRoster(ctx, classID)
	if err != nil {
		return FinalizationResult{}, persistence(err, "load roster")
	}
	enrolled := make(map[string]bool, len(roster))
	for _, r := range roster {
		enrolled[r.StudentID] = true
	}
	for studentID := range submitted {
		if !enrolled[studentID] {
			return FinalizationResult{}, validationf("student %s is not enrolled in class %s", studentID, classID)
		}
	}

	dayStart, dayEnd := s.dayRange(date)
	existing, err := s.store.ListAttendance(ctx, classID, dayStart, dayEnd)
	if err != nil {
		return FinalizationResult{}, persistence(err, "load existing attendance")
	}
	marked := make(map[string]bool, len(existing))
	for _, rec := range existing {
		marked[rec.StudentID] = true
	}

	// new rows carry the submission time when it falls on the target day
	markedAt := s.now().In(s.loc)
	if markedAt.Before(dayStart) || !markedAt.Before(dayEnd) {
		markedAt = dayStart
	}

	res := FinalizationResult{ClassID: classID, Date: dayStart.Format("2006-01-02"), Submitted: len(submitted)}
	var toInsert, toUpdate []AttendanceRecord
	for _, r := range roster {
		status, ok := submitted[r.StudentID]
		if !ok {
			status = StatusAbsent
			res.Defaulted++
		}
		rec := AttendanceRecord{StudentID: r.StudentID, ClassID: classID, Status: status}
		if marked[r.StudentID] {
			toUpdate = append(toUpdate, rec)
			continue
		}
		rec.ID = uuid.NewString()
		rec.Timestamp = markedAt
		toInsert = append(toInsert, rec)
	}

	if len(toInsert) > 0 {
		if err := s.store.InsertAttendance(ctx, toInsert); err != nil {
			return res, persistence(err, "insert attendance")
		}
		res.Inserted = len(toInsert)
	}
	for _, rec := range toUpdate {
		if err := s.store.UpdateAttendanceStatus(ctx, classID, rec.StudentID, dayStart, dayEnd, rec.Status); err != nil {
			return res, persistence(err, fmt.Sprintf("update attendance for student %s", rec.StudentID))
		}
		res.Updated++
	}

	s.metrics.AttendanceWritten(res.Inserted, res.Updated)
	s.publish(ctx, queue.Event{
		Kind:      queue.KindAttendanceFinalized,
		ActorID:   callerID,
		SubjectID: classID,
		Summary:   fmt.Sprintf("attendance for %s: %d inserted, %d updated, %d defaulted absent", res.Date, res.Inserted, res.Updated, res.Defaulted),
	})
	return res, nil
}

// Summary counts statuses in a report.
type Summary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Total   int `json:"total"`
}

func summarize(statuses []AttendanceStatus) Summary {
	var sum Summary
	for _, st := range statuses {
		switch st {
		case StatusPresent:
			sum.Present++
		case StatusLate:
			sum.Late++
		default:
			sum.Absent++
		}
	}
	sum.Total = len(statuses)
	return sum
}

// StudentAttendance is one roster line of a class report.
type StudentAttendance struct {
	StudentID string           `json:"student_id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Status    AttendanceStatus `json:"status"`
	MarkedAt  *time.Time       `json:"marked_at"`
}

// ClassReport is the attendance of a class for one day.
type ClassReport struct {
	ClassID    string              `json:"class_id"`
	ClassName  string              `json:"class_name"`
	Date       string              `json:"date"`
	PerStudent []StudentAttendance `json:"per_student"`
	Summary    Summary             `json:"summary"`
}

// Report assembles the day's attendance for a class the caller teaches.
// Enrolled students without a row are shown absent with no timestamp; nothing
// is written.
func (s *Service) Report(ctx context.Context, callerID, classID string, date time.Time) (ClassReport, error) {
	class, err := s.ownedClass(ctx, callerID, classID)
	if err != nil {
		return ClassReport{}, err
	}
	roster, err := s.store.ListRoster(ctx, classID)
	if err != nil {
		return ClassReport{}, persistence(err, "load roster")
	}
	dayStart, dayEnd := s.dayRange(date)
	records, err := s.store.ListAttendance(ctx, classID, dayStart, dayEnd)
	if err != nil {
		return ClassReport{}, persistence(err, "load attendance")
	}
	byStudent := make(map[string]AttendanceRecord, len(records))
	for _, rec := range records {
		byStudent[rec.StudentID] = rec
	}

	report := ClassReport{
		ClassID:    class.ID,
		ClassName:  class.Name,
		Date:       dayStart.Format("2006-01-02"),
		PerStudent: make([]StudentAttendance, 0, len(roster)),
	}
	statuses := make([]AttendanceStatus, 0, len(roster))
	for _, r := range roster {
		line := StudentAttendance{StudentID: r.StudentID, Name: r.Name, Email: r.Email, Status: StatusAbsent}
		if rec, ok := byStudent[r.StudentID]; ok {
			at := rec.Timestamp
			line.Status = rec.Status
			line.MarkedAt = &at
		}
		report.PerStudent = append(report.PerStudent, line)
		statuses = append(statuses, line.Status)
	}
	report.Summary = summarize(statuses)
	return report, nil
}

// ClassProgress is a student's view of one enrolled class.
type ClassProgress struct {
	Class      ClassSection       `json:"class"`
	Enrollment Enrollment         `json:"enrollment"`
	Attendance Summary            `json:"attendance"`
	Percentage float64            `json:"attendance_percentage"`
	Records    []AttendanceRecord `json:"records"`
}

// StudentReport lists every class of a student with marks and attendance.
func (s *Service) StudentReport(ctx context.Context, studentID string) ([]ClassProgress, error) {
	enrollments, err := s.store.ListStudentEnrollments(ctx, studentID)
	if err != nil {
		return nil, persistence(err, "load enrollments")
	}
	out := make([]ClassProgress, 0, len(enrollments))
	for _, e := range enrollments {
		class, err := s.store.GetClass(ctx, e.ClassID)
		if err != nil {
			return nil, persistence(err, "load class")
		}
		records, err := s.store.ListStudentAttendance(ctx, studentID, e.ClassID)
		if err != nil {
			return nil, persistence(err, "load attendance")
		}
		statuses := make([]AttendanceStatus, len(records))
		for i, rec := range records {
			statuses[i] = rec.Status
		}
		p := ClassProgress{Class: *class, Enrollment: e, Attendance: summarize(statuses), Records: records}
		if p.Attendance.Total > 0 {
			// late still counts as attended
			p.Percentage = float64(p.Attendance.Present+p.Attendance.Late) * 100 / float64(p.Attendance.Total)
		}
		if p.Records == nil {
			p.Records = []AttendanceRecord{}
		}
		out = append(out, p)
	}
	return out, nil
}
