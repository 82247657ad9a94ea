package snapshot

import (
	"fmt"
	"io"

	"github.com/tliron/commonlog"

	"github.com/sarchlab/gxfifo/controlblock"
	"github.com/sarchlab/gxfifo/scheduling"
	"github.com/sarchlab/gxfifo/staging"
)

var logger = commonlog.GetLogger("gxfifo.snapshot")

// A Pauser can hold the consumer between cycles.
type Pauser interface {
	PauseAndLock(lock, resumeOnUnlock bool)
	RunState() scheduling.RunState
}

// A DrawSwitch turns draw suppression on or off.
type DrawSwitch interface {
	SetSkipOutput(skip bool)
	SkipOutput() bool
}

// Snapshotter takes and restores states while the consumer is held.
type Snapshotter struct {
	pauser  Pauser
	buf     *staging.Buffer
	cb      *controlblock.ControlBlock
	decoder DrawSwitch
}

// New creates a Snapshotter.
func New(
	pauser Pauser,
	buf *staging.Buffer,
	cb *controlblock.ControlBlock,
	decoder DrawSwitch,
) *Snapshotter {
	return &Snapshotter{
		pauser:  pauser,
		buf:     buf,
		cb:      cb,
		decoder: decoder,
	}
}

func (s *Snapshotter) hold() (release func()) {
	resume := s.pauser.RunState() == scheduling.Running
	s.pauser.PauseAndLock(true, false)

	return func() { s.pauser.PauseAndLock(false, resume) }
}

// Take captures the current state.
func (s *Snapshotter) Take() State {
	release := s.hold()
	defer release()

	return s.take()
}

func (s *Snapshotter) take() State {
	st := s.buf.State()

	return State{
		Version:    Version,
		Contents:   st.Contents,
		WriteEnd:   st.WriteEnd,
		ReadCursor: st.ReadCursor,
		SkipOutput: s.decoder.SkipOutput(),
		Registers:  s.cb.Snapshot(),
	}
}

// Restore applies a state. If the staging buffer comes back empty, the safe
// read pointer is moved to the read pointer.
func (s *Snapshotter) Restore(state State) error {
	release := s.hold()
	defer release()

	return s.restore(state)
}

func (s *Snapshotter) restore(state State) error {
	if err := s.buf.SetState(state.Staging()); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	s.cb.Restore(state.Registers)
	s.decoder.SetSkipOutput(state.SkipOutput)

	if s.buf.Unread() == 0 {
		s.cb.UpdateSafeReadPointer()
	}

	s.cb.Notify()

	logger.Infof("restored state at read pointer 0x%08x, %d bytes staged",
		state.Registers.ReadPointer, s.buf.Unread())

	return nil
}

// Save writes the current state to w.
func (s *Snapshotter) Save(w io.Writer) error {
	return s.Take().Write(w)
}

// Load reads a state from r and applies it.
func (s *Snapshotter) Load(r io.Reader) error {
	state, err := Read(r)
	if err != nil {
		return err
	}

	return s.Restore(state)
}
