package trace

import (
	"fmt"
	"sync"
	"time"
)

// BeatFunc is invoked on every heartbeat tick with the beat number (1-based).
type BeatFunc func(seq uint64)

// Heartbeat periodically signals liveness. The worker uses it to tell the
// supervisor it is alive; every beat is also recorded as a trace event when
// the tracer is enabled.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	beat     BeatFunc
	stopCh   chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// StartHeartbeat creates and starts a new heartbeat goroutine.
// It returns nil when there is nothing to do: no positive interval, or
// neither a beat callback nor an enabled tracer.
func StartHeartbeat(tracer Tracer, interval time.Duration, beat BeatFunc) *Heartbeat {
	if tracer == nil {
		tracer = Nop
	}
	if interval <= 0 || (beat == nil && !tracer.Enabled()) {
		return nil
	}

	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		beat:     beat,
		stopCh:   make(chan struct{}),
	}

	h.mu.Lock()
	h.started = true
	h.mu.Unlock()

	h.wg.Add(1)
	go h.run()

	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	seq := uint64(0)
	for {
		select {
		case <-ticker.C:
			seq++
			if h.beat != nil {
				h.beat(seq)
			}
			if h.tracer.Enabled() {
				h.tracer.Emit(&Event{
					Time:   time.Now(),
					Seq:    NextSeq(),
					Kind:   KindHeartbeat,
					Scope:  ScopeHost,
					GID:    goroutineID(),
					Name:   "heartbeat",
					Detail: fmt.Sprintf("#%d", seq),
				})
			}
		case <-h.stopCh:
			return
		}
	}
}

// Stop gracefully stops the heartbeat goroutine and waits for it to finish.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}

	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.started = false
	h.mu.Unlock()

	close(h.stopCh)
	h.wg.Wait()
}
