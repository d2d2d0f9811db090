package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds published by the API.
const (
	KindAttendanceFinalized = "attendance.finalized"
	KindMarksUploaded       = "marks.uploaded"
	KindMarksOverridden     = "marks.overridden"
	KindEnrollmentCreated   = "enrollment.created"
	KindEnrollmentsExpanded = "enrollments.expanded"
	KindClassCreated        = "class.created"
	KindGroupAssigned       = "group.assigned"
)

// Event describes a completed change, for the activity feed.
type Event struct {
	Kind      string    `json:"kind"`
	ActorID   string    `json:"actor_id"`
	SubjectID string    `json:"subject_id"`
	Summary   string    `json:"summary"`
	At        time.Time `json:"at"`
}

// Message encodes the event with its kind as the message type.
func (e Event) Message() (Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: e.Kind, Body: body}, nil
}

// DecodeEvent is the inverse of Event.Message.
func DecodeEvent(msg Message) (Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		return Event{}, fmt.Errorf("decode %q event: %w", msg.Type, err)
	}
	if e.Kind == "" {
		e.Kind = msg.Type
	}
	return e, nil
}
