package safety

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchdogExpiresWhenUnfed(t *testing.T) {
	var expiries atomic.Int64
	w := NewWatchdog(30*time.Millisecond, func() { expiries.Add(1) }, nil)
	w.Start()
	defer w.Stop(time.Second)

	require.True(t, w.Healthy())

	require.Eventually(t, func() bool { return expiries.Load() == 1 },
		time.Second, 5*time.Millisecond)
	assert.False(t, w.Healthy())

	// Expiry fires once, not repeatedly, until fed again.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), expiries.Load())
}

func TestWatchdogStaysHealthyWhileFed(t *testing.T) {
	var expiries atomic.Int64
	w := NewWatchdog(50*time.Millisecond, func() { expiries.Add(1) }, nil)
	w.Start()
	defer w.Stop(time.Second)

	for i := 0; i < 10; i++ {
		require.True(t, w.Feed())
		time.Sleep(15 * time.Millisecond)
	}

	assert.Equal(t, int64(0), expiries.Load())
	assert.True(t, w.Healthy())
}

func TestWatchdogRecoversAfterFeed(t *testing.T) {
	var expiries atomic.Int64
	w := NewWatchdog(25*time.Millisecond, func() { expiries.Add(1) }, nil)
	w.Start()
	defer w.Stop(time.Second)

	require.Eventually(t, func() bool { return expiries.Load() == 1 },
		time.Second, 5*time.Millisecond)
	require.False(t, w.Healthy())

	require.True(t, w.Feed())
	assert.True(t, w.Healthy())

	// Unfed again, it expires a second time.
	require.Eventually(t, func() bool { return expiries.Load() == 2 },
		time.Second, 5*time.Millisecond)
}

func TestWatchdogFeedWhenStopped(t *testing.T) {
	w := NewWatchdog(time.Second, nil, nil)
	assert.False(t, w.Feed(), "feeding a never-started watchdog must fail")
	assert.False(t, w.Healthy())
}

func TestWatchdogStopIsIdempotent(t *testing.T) {
	w := NewWatchdog(time.Second, nil, nil)
	w.Start()

	assert.True(t, w.Stop(time.Second))
	assert.True(t, w.Stop(time.Second))
	assert.False(t, w.Healthy())
	assert.False(t, w.Feed())
}
