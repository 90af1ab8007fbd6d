package safety

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robot-control/roc/internal/logging"
)

// Watchdog demands a Feed at least once per timeout. Left unfed, it fires
// its expiry callback exactly once per expiry and stays unhealthy until fed
// again. The callback runs on the watchdog goroutine and must not block
// indefinitely.
type Watchdog struct {
	timeout  time.Duration
	onExpire func()
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	expired bool
	lastFed time.Time

	feedC chan struct{}
	stopC chan struct{}
	doneC chan struct{}
}

// NewWatchdog creates a watchdog with the given timeout and expiry callback.
func NewWatchdog(timeout time.Duration, onExpire func(), logger *slog.Logger) *Watchdog {
	return &Watchdog{
		timeout:  timeout,
		onExpire: onExpire,
		logger:   logging.OrNop(logger),
	}
}

// Start launches the watchdog goroutine. Starting an already running
// watchdog is a no-op.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.expired = false
	w.lastFed = time.Now()
	w.feedC = make(chan struct{}, 1)
	w.stopC = make(chan struct{})
	w.doneC = make(chan struct{})
	go w.run(w.feedC, w.stopC, w.doneC)
}

func (w *Watchdog) run(feedC, stopC chan struct{}, doneC chan struct{}) {
	defer close(doneC)

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	for {
		select {
		case <-stopC:
			return

		case <-feedC:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.timeout)

		case <-timer.C:
			w.mu.Lock()
			alreadyExpired := w.expired
			w.expired = true
			w.mu.Unlock()

			if !alreadyExpired {
				w.logger.Warn("watchdog timeout", "timeout", w.timeout)
				if w.onExpire != nil {
					w.onExpire()
				}
			}
			// The timer stays idle until the next feed rearms it.
		}
	}
}

// Feed marks the loop alive and rearms the timer. Returns false when the
// watchdog is not running.
func (w *Watchdog) Feed() bool {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return false
	}
	w.expired = false
	w.lastFed = time.Now()
	feedC := w.feedC
	w.mu.Unlock()

	select {
	case feedC <- struct{}{}:
	default:
		// A feed is already pending; coalescing is fine.
	}
	return true
}

// Healthy reports whether the watchdog is running and not expired.
func (w *Watchdog) Healthy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running && !w.expired
}

// LastFed returns the time of the most recent feed.
func (w *Watchdog) LastFed() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastFed
}

// Stop terminates the watchdog goroutine, waiting up to joinTimeout for it
// to exit. A goroutine that fails to terminate is logged as a fault but does
// not block the caller further. Idempotent.
func (w *Watchdog) Stop(joinTimeout time.Duration) bool {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return true
	}
	w.running = false
	stopC := w.stopC
	doneC := w.doneC
	w.mu.Unlock()

	close(stopC)

	select {
	case <-doneC:
		return true
	case <-time.After(joinTimeout):
		w.logger.Error("watchdog goroutine failed to stop within timeout", "timeout", joinTimeout)
		return false
	}
}
