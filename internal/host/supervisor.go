package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"stepper/internal/trace"
)

// DefaultWatchdog is how long a worker may stay silent before it is
// considered dead.
const DefaultWatchdog = 600 * time.Millisecond

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("supervisor closed")
	// ErrWorkerDied is returned by Collect when the worker stopped
	// answering before the request finished.
	ErrWorkerDied = errors.New("worker died")
)

// Instance is a running worker: requests are written to it and messages are
// read from it.
type Instance interface {
	io.Reader
	io.Writer
	// Kill stops the worker and releases its streams. It is safe to call
	// more than once.
	Kill() error
}

// Spawner starts workers. id is passed on to the worker's heartbeats.
type Spawner interface {
	Spawn(id uint64) (Instance, error)
}

// SupervisorOptions configure a Supervisor.
type SupervisorOptions struct {
	Watchdog time.Duration
	Tracer   trace.Tracer
}

type instance struct {
	id    uint64
	inst  Instance
	enc   *Encoder
	timer *time.Timer
	dead  bool
}

// Supervisor keeps one worker alive. Workers are never repaired: one that
// misses its watchdog is killed and the next Submit spawns a fresh one.
type Supervisor struct {
	spawner Spawner
	opts    SupervisorOptions

	mu     sync.Mutex
	cur    *instance
	nextID uint64
	armed  bool
	closed bool

	messages chan Message
	deaths   chan uint64
	done     chan struct{}
	wg       sync.WaitGroup
}

func NewSupervisor(spawner Spawner, opts SupervisorOptions) *Supervisor {
	if opts.Watchdog <= 0 {
		opts.Watchdog = DefaultWatchdog
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	return &Supervisor{
		spawner:  spawner,
		opts:     opts,
		messages: make(chan Message, 64),
		deaths:   make(chan uint64, 8),
		done:     make(chan struct{}),
	}
}

// Messages delivers everything the live worker sends. Heartbeats are
// delivered only when the channel has room.
func (s *Supervisor) Messages() <-chan Message {
	return s.messages
}

// Deaths delivers the id of every worker killed by the watchdog or lost to
// a broken stream.
func (s *Supervisor) Deaths() <-chan uint64 {
	return s.deaths
}

// Submit sends req to the live worker, spawning one if there is none. The
// caller must keep draining Messages; a worker that cannot write stops
// sending heartbeats.
func (s *Supervisor) Submit(req Request) error {
	for attempt := 0; ; attempt++ {
		in, err := s.live()
		if err != nil {
			return err
		}
		// not under s.mu: the worker may be blocked on a write the reader
		// has to take the lock to forward
		err = in.enc.Encode(&req)
		if err == nil {
			return nil
		}
		s.mu.Lock()
		s.killLocked(in, "submit: "+err.Error())
		s.mu.Unlock()
		if attempt > 0 {
			return fmt.Errorf("submit: %w", err)
		}
	}
}

func (s *Supervisor) live() (*instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.cur == nil || s.cur.dead {
		if err := s.spawnLocked(); err != nil {
			return nil, err
		}
	}
	return s.cur, nil
}

func (s *Supervisor) spawnLocked() error {
	s.nextID++
	id := s.nextID
	inst, err := s.spawner.Spawn(id)
	if err != nil {
		return fmt.Errorf("spawn worker: %w", err)
	}
	in := &instance{id: id, inst: inst, enc: NewEncoder(inst)}
	s.cur = in
	if s.armed {
		s.armLocked(in)
	}
	trace.Point(s.opts.Tracer, trace.ScopeSession, "spawn", fmt.Sprintf("worker %d", id))

	s.wg.Add(1)
	go s.read(in)
	return nil
}

func (s *Supervisor) armLocked(in *instance) {
	if in.timer != nil {
		in.timer.Reset(s.opts.Watchdog)
		return
	}
	in.timer = time.AfterFunc(s.opts.Watchdog, func() { s.expire(in) })
}

func (s *Supervisor) expire(in *instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.dead {
		return
	}
	s.killLocked(in, "watchdog")
}

func (s *Supervisor) killLocked(in *instance, why string) {
	if in.dead {
		return
	}
	in.dead = true
	if in.timer != nil {
		in.timer.Stop()
	}
	_ = in.inst.Kill()
	trace.Point(s.opts.Tracer, trace.ScopeSession, "kill", fmt.Sprintf("worker %d: %s", in.id, why))
	if !s.closed {
		select {
		case s.deaths <- in.id:
		default:
		}
	}
}

// read forwards one worker's messages until its stream ends.
func (s *Supervisor) read(in *instance) {
	defer s.wg.Done()
	dec := NewDecoder(in.inst)
	for {
		var m Message
		if err := dec.Decode(&m); err != nil {
			s.mu.Lock()
			s.killLocked(in, "stream: "+describeEOF(err))
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		stale := in.dead
		if !stale && m.Kind() == KindHeartbeat {
			s.armed = true
			s.armLocked(in)
		}
		s.mu.Unlock()
		if stale {
			continue
		}

		if m.Kind() == KindHeartbeat {
			select {
			case s.messages <- m:
			default:
			}
			continue
		}
		select {
		case s.messages <- m:
		case <-s.done:
			return
		}
	}
}

func describeEOF(err error) string {
	if errors.Is(err, io.EOF) {
		return "closed"
	}
	return err.Error()
}

// Close kills the worker and waits for its reader to stop. Messages is
// closed afterwards.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cur != nil {
		s.killLocked(s.cur, "close")
	}
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	close(s.messages)
	return nil
}

// Result is what Collect gathered for one request.
type Result struct {
	Last     *Message // most recent progress message
	Failure  *Failure
	Finished bool // the run ended before the ceiling
}

// Collect reads messages for the request just submitted until the run is
// over: a failure, or a done progress message followed by a heartbeat. A
// failure that belongs to a finished run is always sent right after its
// done message, so the heartbeat proves there is none. Runs stopped by the
// ceiling never finish; bound ctx accordingly.
func Collect(ctx context.Context, s *Supervisor) (Result, error) {
	var res Result
	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case id := <-s.Deaths():
			return res, fmt.Errorf("%w (instance %d)", ErrWorkerDied, id)
		case m, ok := <-s.Messages():
			if !ok {
				return res, ErrClosed
			}
			switch m.Kind() {
			case KindHeartbeat:
				if res.Finished {
					return res, nil
				}
			case KindProgress:
				res.Last = &m
				res.Finished = m.Done
			case KindFailure:
				res.Failure = m.Error
				return res, nil
			}
		}
	}
}
