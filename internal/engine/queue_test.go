package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_EnqueueDequeue(t *testing.T) {
	m := newMailbox()

	ok := m.Enqueue(input{kind: inputTriggerActions, triggers: []string{"greet"}})
	require.True(t, ok, "enqueue should succeed")

	got, ok := m.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, inputTriggerActions, got.kind)
	assert.Equal(t, []string{"greet"}, got.triggers)
}

func TestMailbox_FIFO(t *testing.T) {
	m := newMailbox()

	for _, text := range []string{"A", "B", "C"} {
		m.Enqueue(input{kind: inputChat, text: text})
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := m.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.text)
	}
}

func TestMailbox_TryDequeue_Empty(t *testing.T) {
	m := newMailbox()

	_, ok := m.TryDequeue()
	assert.False(t, ok, "dequeue from empty mailbox should return false")
}

func TestMailbox_WaitSignals(t *testing.T) {
	m := newMailbox()

	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Enqueue(input{kind: inputTick})
	}()

	select {
	case <-m.Wait():
		_, ok := m.TryDequeue()
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("wait did not signal")
	}
}

func TestMailbox_Close(t *testing.T) {
	m := newMailbox()
	done := make(chan struct{})
	m.Enqueue(input{kind: inputSync, done: done})
	m.Enqueue(input{kind: inputTick})

	pending := m.Close()
	assert.Len(t, pending, 2, "close hands back queued inputs")
	assert.True(t, m.Closed())
	assert.Equal(t, 0, m.Len())

	assert.False(t, m.Enqueue(input{kind: inputTick}), "enqueue after close should return false")
	assert.Nil(t, m.Close(), "second close is a no-op")

	select {
	case <-m.Wait():
	default:
		t.Fatal("wait channel should be closed")
	}
}

func TestMailbox_Len(t *testing.T) {
	m := newMailbox()

	assert.Equal(t, 0, m.Len())
	m.Enqueue(input{kind: inputTick})
	m.Enqueue(input{kind: inputTick})
	assert.Equal(t, 2, m.Len())
	m.TryDequeue()
	assert.Equal(t, 1, m.Len())
}

func TestMailbox_ThreadSafe(t *testing.T) {
	m := newMailbox()

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				m.Enqueue(input{kind: inputChat})
			}
		}()
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := m.TryDequeue(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, producers*perProducer, count)
}

func TestInputKind_String(t *testing.T) {
	assert.Equal(t, "tick", inputTick.String())
	assert.Equal(t, "start_or_continue", inputStartOrContinue.String())
	assert.Equal(t, "unknown", inputKind(0).String())
}
