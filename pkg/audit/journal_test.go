package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
	fail   map[string]bool
}

func (s *memorySink) WriteAudit(_ context.Context, evt Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[evt.EntityID] {
		return errors.New("sink down")
	}
	s.events = append(s.events, evt)
	return nil
}

func (s *memorySink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestJournal_DeliversInOrderBeforeClose(t *testing.T) {
	sink := &memorySink{}
	j, err := NewJournal(sink, zap.NewNop(), time.Second)
	require.NoError(t, err)

	const n = 50
	for i := 0; i < n; i++ {
		j.Record(Event{Action: ActionOrderPlaced, EntityID: fmt.Sprintf("order-%d", i)})
	}
	require.NoError(t, j.Close())

	got := sink.snapshot()
	require.Len(t, got, n)
	for i, evt := range got {
		assert.Equal(t, fmt.Sprintf("order-%d", i), evt.EntityID)
		assert.NotEmpty(t, evt.ID)
		assert.False(t, evt.CreatedAt.IsZero())
	}
}

func TestJournal_SinkErrorDoesNotStopJournal(t *testing.T) {
	sink := &memorySink{fail: map[string]bool{"bad": true}}
	j, err := NewJournal(sink, zap.NewNop(), time.Second)
	require.NoError(t, err)

	j.Record(Event{Action: ActionOrderPlaced, EntityID: "bad"})
	j.Record(Event{Action: ActionOrderPlaced, EntityID: "good"})
	require.NoError(t, j.Close())

	got := sink.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].EntityID)
}

func TestDiscard(t *testing.T) {
	var r Recorder = Discard{}
	r.Record(Event{Action: ActionOrderPlaced})
}
