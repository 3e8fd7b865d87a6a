package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg, err := JSON(TypeReminder, map[string]string{"userId": "u1"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, TypeReminder, got.Type)
		var body map[string]string
		require.NoError(t, got.Decode(&body))
		assert.Equal(t, "u1", body["userId"])
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestInMemoryPublishFullDoesNotBlock(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, Message{Type: TypeSelfieStore, Body: []byte("r1")}))

	done := make(chan error, 1)
	go func() { done <- q.Publish(ctx, Message{Type: TypeSelfieStore, Body: []byte("r2")}) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrFull)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full buffer")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, NewInMemory(1).Publish(cancelled, Message{}), context.Canceled)
}

func TestInMemoryConsumeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := NewInMemory(1).Consume(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSerialize(t *testing.T) {
	msg := Message{Type: TypeSelfieStore, Body: []byte("rec|with|pipes")}
	got := deserialize(serialize(msg))
	assert.Equal(t, msg, got)

	assert.Equal(t, Message{Body: []byte("bare")}, deserialize("bare"))
}
