package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTripKeepsPipesInBody(t *testing.T) {
	msg := Message{Type: KindMarksUploaded, Body: []byte(`{"summary":"a|b"}`)}
	got := deserialize(serialize(msg))
	assert.Equal(t, msg, got)
}

func TestDeserializeWithoutType(t *testing.T) {
	got := deserialize("plain")
	assert.Equal(t, "", got.Type)
	assert.Equal(t, []byte("plain"), got.Body)
}

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: "a", Body: []byte("1")}))
	require.NoError(t, q.Publish(ctx, Message{Type: "b", Body: []byte("2")}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	for _, want := range []string{"a", "b"} {
		select {
		case msg := <-msgs:
			assert.Equal(t, want, msg.Type)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	cancel()
	select {
	case _, ok := <-msgs:
		assert.False(t, ok, "channel should close after cancel")
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemoryPublishHonoursContextWhenFull(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.Publish(ctx, Message{Type: "b"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEventMessageRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	evt := Event{Kind: KindAttendanceFinalized, ActorID: "t1", SubjectID: "c1", Summary: "done", At: at}

	msg, err := evt.Message()
	require.NoError(t, err)
	assert.Equal(t, KindAttendanceFinalized, msg.Type)

	got, err := DecodeEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, evt, got)

	_, err = DecodeEvent(Message{Type: "x", Body: []byte("{")})
	assert.Error(t, err)
}
