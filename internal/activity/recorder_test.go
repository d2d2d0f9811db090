package activity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acadence/internal/activity"
	"acadence/internal/queue"
	"acadence/internal/store"
)

func TestRecorderStoresEventsOnce(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rec := activity.NewRecorder(mem, nil, nil)

	at := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	msg, err := queue.Event{Kind: queue.KindMarksUploaded, ActorID: "t1", SubjectID: "c1", Summary: "st1 marks uploaded for 3 students", At: at}.Message()
	require.NoError(t, err)

	require.NoError(t, rec.Handle(ctx, msg))
	require.NoError(t, rec.Handle(ctx, msg), "redelivery is harmless")

	items, err := mem.ListActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, queue.KindMarksUploaded, items[0].Kind)
	assert.Equal(t, "c1", items[0].SubjectID)
	assert.Equal(t, at, items[0].OccurredAt)
}

func TestRecorderRunSkipsBadMessages(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rec := activity.NewRecorder(mem, nil, nil)

	good, err := queue.Event{Kind: queue.KindClassCreated, ActorID: "a1", SubjectID: "c9", Summary: "class created"}.Message()
	require.NoError(t, err)

	msgs := make(chan queue.Message, 2)
	msgs <- queue.Message{Type: "broken", Body: []byte("not json")}
	msgs <- good
	close(msgs)
	rec.Run(ctx, msgs)

	items, err := mem.ListActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, queue.KindClassCreated, items[0].Kind)
}

func TestRecorderPropagatesSinkErrors(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn["InsertActivity"] = errors.New("db down")
	rec := activity.NewRecorder(mem, nil, nil)

	msg, err := queue.Event{Kind: queue.KindGroupAssigned}.Message()
	require.NoError(t, err)
	assert.Error(t, rec.Handle(context.Background(), msg))
}
