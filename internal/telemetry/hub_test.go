package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscriber(t *testing.T) {
	hub := NewHub(10)
	defer hub.Stop()

	sub := hub.Subscribe()
	defer sub.Cancel()

	hub.Publish(Event{Type: "stateChanged", Data: map[string]interface{}{"state": "ready"}})

	select {
	case ev := <-sub.Events:
		assert.Equal(t, "stateChanged", ev.Type)
		assert.Equal(t, int64(1), ev.ID)
		assert.False(t, ev.TS.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEventIDsAreMonotonic(t *testing.T) {
	hub := NewHub(10)
	defer hub.Stop()

	for i := 0; i < 3; i++ {
		hub.Publish(Event{Type: "fault"})
	}

	recent := hub.Recent()
	require.Len(t, recent, 3)
	for i, ev := range recent {
		assert.Equal(t, int64(i+1), ev.ID)
	}
}

func TestRecentRingEvictsOldest(t *testing.T) {
	hub := NewHub(2)
	defer hub.Stop()

	hub.Publish(Event{Type: "a"})
	hub.Publish(Event{Type: "b"})
	hub.Publish(Event{Type: "c"})

	recent := hub.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Type)
	assert.Equal(t, "c", recent[1].Type)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(10)
	defer hub.Stop()

	sub := hub.Subscribe()
	defer sub.Cancel()

	// Overfill the subscriber buffer without draining.
	for i := 0; i < 100; i++ {
		hub.Publish(Event{Type: "loopOverrun"})
	}

	assert.Greater(t, sub.Dropped(), int64(0))
}

func TestCancelDuringPublishIsSafe(t *testing.T) {
	hub := NewHub(10)
	defer hub.Stop()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				hub.Publish(Event{Type: "fault"})
			}
		}()
	}

	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				sub := hub.Subscribe()
				sub.Cancel()
			}
		}()
	}

	wg.Wait()
}

func TestPublishAfterCancelIsDiscarded(t *testing.T) {
	hub := NewHub(10)
	defer hub.Stop()

	sub := hub.Subscribe()
	sub.Cancel()

	hub.Publish(Event{Type: "fault"})
	assert.Zero(t, sub.Dropped(), "events after cancel are discarded, not counted as drops")

	_, open := <-sub.Events
	assert.False(t, open)
}

func TestCancelDetachesSubscriber(t *testing.T) {
	hub := NewHub(10)
	defer hub.Stop()

	sub := hub.Subscribe()
	require.Equal(t, 1, hub.SubscriberCount())

	sub.Cancel()
	assert.Equal(t, 0, hub.SubscriberCount())

	_, open := <-sub.Events
	assert.False(t, open, "cancelled subscription channel must be closed")
}

func TestStopIsIdempotentAndClosesFeeds(t *testing.T) {
	hub := NewHub(10)
	sub := hub.Subscribe()

	hub.Stop()
	hub.Stop()

	_, open := <-sub.Events
	assert.False(t, open)

	// Publishing after stop is a no-op.
	hub.Publish(Event{Type: "fault"})
	assert.Empty(t, hub.Recent())

	// Subscribing after stop yields a closed feed.
	late := hub.Subscribe()
	_, open = <-late.Events
	assert.False(t, open)
}
