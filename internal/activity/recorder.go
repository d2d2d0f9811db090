package activity

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"acadence/internal/metrics"
	"acadence/internal/queue"
	"acadence/internal/school"
)

// Sink stores activity entries.
type Sink interface {
	InsertActivity(ctx context.Context, a *school.Activity) error
}

// Recorder turns queue events into activity feed rows.
type Recorder struct {
	sink    Sink
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewRecorder creates a recorder writing to sink.
func NewRecorder(sink Sink, log *zap.Logger, m *metrics.Metrics) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{sink: sink, log: log, metrics: m}
}

// namespace for ids derived from message bodies; a redelivered message maps
// to the same row.
var namespace = uuid.MustParse("6f1c9a52-7d0e-4c55-9a0e-3b1f6f8b2d41")

// Handle records one message.
func (r *Recorder) Handle(ctx context.Context, msg queue.Message) error {
	evt, err := queue.DecodeEvent(msg)
	if err != nil {
		return err
	}
	a := &school.Activity{
		ID:         uuid.NewSHA1(namespace, msg.Body).String(),
		Kind:       evt.Kind,
		ActorID:    evt.ActorID,
		SubjectID:  evt.SubjectID,
		Summary:    evt.Summary,
		OccurredAt: evt.At,
	}
	return r.sink.InsertActivity(ctx, a)
}

// Run handles messages until msgs closes. Failures are logged and the
// message dropped; there is no retry.
func (r *Recorder) Run(ctx context.Context, msgs <-chan queue.Message) {
	for msg := range msgs {
		err := r.Handle(ctx, msg)
		r.metrics.EventProcessed(msg.Type, err)
		if err != nil {
			r.log.Error("record activity failed", zap.String("kind", msg.Type), zap.Error(err))
			continue
		}
		r.log.Debug("activity recorded", zap.String("kind", msg.Type))
	}
}
