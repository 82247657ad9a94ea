// Package scheduling runs the FIFO consumer. It moves bytes from the
// producer's window into the staging buffer and drives the decoder, either
// on its own goroutine or one step at a time on the caller's.
package scheduling

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"

	"github.com/sarchlab/gxfifo/controlblock"
	"github.com/sarchlab/gxfifo/decoding"
	"github.com/sarchlab/gxfifo/hooking"
	"github.com/sarchlab/gxfifo/staging"
)

var logger = commonlog.GetLogger("gxfifo.scheduling")

// HookPosFetch fires after a chunk is moved into the staging buffer. The
// item is the address the chunk was read from and the detail is its size.
var HookPosFetch = &hooking.HookPos{Name: "Fetch"}

// HookPosStopped fires once when the loop exits. The item is the error that
// stopped it, or nil.
var HookPosStopped = &hooking.HookPos{Name: "Stopped"}

// A Decoder runs commands out of a window.
type Decoder interface {
	RunUntilStarved(window []byte) (decoding.Pass, error)
}

// A MessagePump lets the owner run work on the consumer goroutine between
// iterations. Returning false asks the loop to shut down.
type MessagePump func() bool

// Builder builds schedulers.
type Builder struct {
	cb        *controlblock.ControlBlock
	buf       *staging.Buffer
	decoder   Decoder
	memory    decoding.MemoryResolver
	chunkSize uint32
	idlePoll  time.Duration
	pump      MessagePump
	queueLen  int
}

// MakeBuilder creates a builder with 32-byte fetches and a 1ms idle poll.
func MakeBuilder() Builder {
	return Builder{
		chunkSize: 32,
		idlePoll:  time.Millisecond,
		queueLen:  64,
	}
}

// WithControlBlock sets the transfer control block.
func (b Builder) WithControlBlock(cb *controlblock.ControlBlock) Builder {
	b.cb = cb
	return b
}

// WithStagingBuffer sets the buffer fetched bytes are pushed into.
func (b Builder) WithStagingBuffer(buf *staging.Buffer) Builder {
	b.buf = buf
	return b
}

// WithDecoder sets the decoder.
func (b Builder) WithDecoder(d Decoder) Builder {
	b.decoder = d
	return b
}

// WithMemory sets the memory the producer window lives in.
func (b Builder) WithMemory(m decoding.MemoryResolver) Builder {
	b.memory = m
	return b
}

// WithChunkSize sets the largest fetch.
func (b Builder) WithChunkSize(n uint32) Builder {
	b.chunkSize = n
	return b
}

// WithIdlePoll sets how long an idle loop sleeps before checking the
// control block again.
func (b Builder) WithIdlePoll(d time.Duration) Builder {
	b.idlePoll = d
	return b
}

// WithMessagePump sets a function run once per loop iteration.
func (b Builder) WithMessagePump(p MessagePump) Builder {
	b.pump = p
	return b
}

// Build creates the scheduler.
func (b Builder) Build(name string) *Scheduler {
	if b.cb == nil || b.buf == nil || b.decoder == nil || b.memory == nil {
		log.Panicf("scheduler %s needs a control block, a staging buffer, "+
			"a decoder, and memory", name)
	}

	if b.chunkSize == 0 || int(b.chunkSize) > b.buf.Capacity() {
		log.Panicf("scheduler %s: chunk size %d does not fit staging "+
			"capacity %d", name, b.chunkSize, b.buf.Capacity())
	}

	return &Scheduler{
		name:      name,
		cb:        b.cb,
		buf:       b.buf,
		decoder:   b.decoder,
		memory:    b.memory,
		chunkSize: b.chunkSize,
		idlePoll:  b.idlePoll,
		pump:      b.pump,
		requests:  make(chan func(), b.queueLen),
		kick:      make(chan struct{}, 1),
	}
}

// Scheduler owns the consumer side of the FIFO.
type Scheduler struct {
	hooking.HookableBase

	name      string
	cb        *controlblock.ControlBlock
	buf       *staging.Buffer
	decoder   Decoder
	memory    decoding.MemoryResolver
	chunkSize uint32
	idlePoll  time.Duration
	pump      MessagePump

	state atomic.Int32

	// cycleLock is held for every fetch and decode cycle. Holding it from
	// outside keeps the consumer parked between cycles.
	cycleLock sync.Mutex
	busy      atomic.Bool
	held      atomic.Bool

	lifecycleLock sync.Mutex
	done          chan struct{}
	loopID        atomic.Uint64

	requests chan func()
	kick     chan struct{}

	errLock sync.Mutex
	err     error

	fetched atomic.Uint64
	cycles  atomic.Uint64
}

// Name returns the name of the scheduler.
func (s *Scheduler) Name() string {
	return s.name
}

// RunState returns the current state of the loop.
func (s *Scheduler) RunState() RunState {
	return RunState(s.state.Load())
}

// Busy reports if a cycle is in flight.
func (s *Scheduler) Busy() bool {
	return s.busy.Load()
}

// Err returns the error that stopped the loop, if any.
func (s *Scheduler) Err() error {
	s.errLock.Lock()
	defer s.errLock.Unlock()

	return s.err
}

// FetchedBytes returns the total number of bytes moved out of the window.
func (s *Scheduler) FetchedBytes() uint64 {
	return s.fetched.Load()
}

// Cycles returns the total decode cost so far.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles.Load()
}

// AtBreakpoint reports if the consumer is held at the breakpoint.
func (s *Scheduler) AtBreakpoint() bool {
	return s.cb.AtBreakpoint()
}

func (s *Scheduler) onLoopGoroutine() bool {
	id := s.loopID.Load()
	return id != 0 && id == goroutineID()
}

func (s *Scheduler) wake() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Start launches the consumer goroutine.
func (s *Scheduler) Start() {
	s.lifecycleLock.Lock()
	defer s.lifecycleLock.Unlock()

	if !s.state.CompareAndSwap(int32(Stopped), int32(Running)) {
		log.Panicf("scheduler %s started while %s", s.name, s.RunState())
	}

	s.errLock.Lock()
	s.err = nil
	s.errLock.Unlock()

	s.done = make(chan struct{})

	started := make(chan struct{})
	go s.loop(started, s.done)
	<-started

	logger.Infof("%s: consumer started", s.name)
}

// RequestExit clears the read enable flag, stops the consumer goroutine and
// waits for it. The chunk in flight, if any, is fully decoded first. Queued requests that the loop did not get
// to run on the calling goroutine.
func (s *Scheduler) RequestExit() {
	if s.onLoopGoroutine() {
		log.Panicf("scheduler %s: RequestExit from the consumer goroutine",
			s.name)
	}

	s.lifecycleLock.Lock()
	defer s.lifecycleLock.Unlock()

	if s.done == nil {
		return
	}

	// Disable reading first so that a producer that keeps writing cannot
	// extend the in-flight cycle. A paused loop passes through Running.
	s.cb.SetReadEnable(false)
	s.state.CompareAndSwap(int32(PausedByEmulator), int32(Running))
	s.state.Store(int32(ShuttingDown))
	s.wake()

	s.cycleLock.Lock()
	if s.busy.Load() {
		log.Panicf("scheduler %s: busy after its cycle completed", s.name)
	}
	s.cycleLock.Unlock()

	<-s.done
	s.done = nil

	s.serviceRequests()
	s.state.Store(int32(Stopped))

	logger.Infof("%s: consumer stopped", s.name)
}

// Wait blocks until the loop exits on its own or through RequestExit.
func (s *Scheduler) Wait() error {
	s.lifecycleLock.Lock()
	done := s.done
	s.lifecycleLock.Unlock()

	if done != nil {
		<-done
	}

	return s.Err()
}

// PauseAndLock parks the consumer between cycles. With lock set it returns
// once no cycle is in flight and none can start; with lock cleared it
// releases the consumer and, if resumeOnUnlock is set, resumes a loop that
// was running. Calls from the consumer goroutine itself are no-ops since
// that goroutine is never inside a cycle when it runs owner requests.
func (s *Scheduler) PauseAndLock(lock, resumeOnUnlock bool) {
	if s.onLoopGoroutine() {
		return
	}

	if lock {
		s.state.CompareAndSwap(int32(Running), int32(PausedByEmulator))
		s.wake()

		s.cycleLock.Lock()
		if s.busy.Load() {
			log.Panicf("scheduler %s: busy while paused", s.name)
		}

		s.held.Store(true)

		return
	}

	if !s.held.Swap(false) {
		log.Panicf("scheduler %s: unlocked without a matching lock", s.name)
	}

	s.cycleLock.Unlock()

	if resumeOnUnlock {
		s.Resume()
	}
}

// Pause stops the loop from starting new cycles without holding it.
func (s *Scheduler) Pause() {
	s.state.CompareAndSwap(int32(Running), int32(PausedByEmulator))
	s.wake()
}

// Resume lets a paused loop continue.
func (s *Scheduler) Resume() {
	s.state.CompareAndSwap(int32(PausedByEmulator), int32(Running))
	s.wake()
}

// Submit queues fn to run on the consumer goroutine between cycles. When no
// loop is running, fn runs immediately on the caller.
func (s *Scheduler) Submit(fn func()) {
	if s.onLoopGoroutine() {
		fn()
		return
	}

	s.lifecycleLock.Lock()
	done := s.done
	s.lifecycleLock.Unlock()

	if done == nil {
		fn()
		return
	}

	select {
	case s.requests <- fn:
		s.wake()
	case <-done:
		fn()
	}
}

func (s *Scheduler) serviceRequests() {
	for {
		select {
		case fn := <-s.requests:
			fn()
		default:
			return
		}
	}
}

// RunOnce drains everything the consumer may currently take, on the
// calling goroutine. It reports if any bytes were fetched.
func (s *Scheduler) RunOnce() (bool, error) {
	if s.RunState() != Stopped {
		log.Panicf("scheduler %s: RunOnce while the loop is %s",
			s.name, s.RunState())
	}

	if err := s.Err(); err != nil {
		return false, err
	}

	s.serviceRequests()

	progressed, err := s.cycle(Stopped)
	if err != nil {
		s.setErr(err)
	}

	return progressed, err
}

func (s *Scheduler) setErr(err error) {
	s.errLock.Lock()
	s.err = err
	s.errLock.Unlock()

	logger.Criticalf("%s", err)
}

func (s *Scheduler) loop(started, done chan<- struct{}) {
	s.loopID.Store(goroutineID())
	close(started)

	var stopErr error

	defer func() {
		s.loopID.Store(0)

		if s.NumHooks() > 0 {
			s.InvokeHook(hooking.HookCtx{
				Domain: s,
				Pos:    HookPosStopped,
				Item:   stopErr,
			})
		}

		close(done)
	}()

	for {
		s.serviceRequests()

		switch s.RunState() {
		case ShuttingDown:
			return
		case PausedByEmulator:
			s.idle()
			continue
		}

		if s.pump != nil && !s.pump() {
			s.state.CompareAndSwap(int32(Running), int32(ShuttingDown))
			continue
		}

		progressed, err := s.cycle(Running)
		if err != nil {
			stopErr = err
			s.setErr(err)
			s.state.Store(int32(ShuttingDown))

			return
		}

		if !progressed {
			s.idle()
		}
	}
}

func (s *Scheduler) idle() {
	timer := time.NewTimer(s.idlePoll)
	defer timer.Stop()

	select {
	case <-s.cb.Wakeup():
	case <-s.kick:
	case fn := <-s.requests:
		fn()
	case <-timer.C:
	}
}

// cycle runs one drain under the cycle lock. The loop passes its own state
// so that a pause that won the lock race is still honored.
func (s *Scheduler) cycle(from RunState) (bool, error) {
	s.cycleLock.Lock()
	defer s.cycleLock.Unlock()

	if s.RunState() != from {
		return false, nil
	}

	s.busy.Store(true)
	defer s.busy.Store(false)

	return s.drain(from)
}
