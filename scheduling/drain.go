package scheduling

import (
	"fmt"

	"github.com/sarchlab/gxfifo/hooking"
)

// drain moves chunks from the window into the staging buffer and decodes
// them until the window is empty, reading is disabled, the read pointer
// reaches an enabled breakpoint, or the run state leaves from. Chunks never
// cross the window end or the breakpoint.
func (s *Scheduler) drain(from RunState) (bool, error) {
	progressed := false

	for s.RunState() == from && s.cb.ReadEnabled() &&
		s.cb.Distance() > 0 && !s.cb.AtBreakpoint() {
		size := min(s.chunkSize, s.cb.Distance(), s.cb.BytesUntilEnd())
		if n, ok := s.cb.BytesUntilBreakpoint(); ok {
			size = min(size, n)
		}

		rp := s.cb.ReadPointer()

		data, err := s.memory.Resolve(rp, size)
		if err != nil {
			return progressed, s.desync(
				fmt.Errorf("fetching %d bytes at 0x%08x: %w", size, rp, err))
		}

		if err := s.buf.Push(data); err != nil {
			return progressed, s.desync(err)
		}

		s.cb.AdvanceReadPointer(size)
		s.fetched.Add(uint64(size))
		progressed = true

		if s.NumHooks() > 0 {
			s.InvokeHook(hooking.HookCtx{
				Domain: s,
				Pos:    HookPosFetch,
				Item:   rp,
				Detail: size,
			})
		}

		pass, err := s.decoder.RunUntilStarved(s.buf.ReadableWindow())
		s.buf.Advance(pass.BytesConsumed)
		s.cycles.Add(uint64(pass.Cycles))

		if err != nil {
			return progressed, s.desync(err)
		}

		s.cb.Retire(size)

		if s.buf.Unread() == 0 {
			s.cb.UpdateSafeReadPointer()
		}

		s.cb.UpdateWatermarks()
	}

	if s.cb.AtBreakpoint() {
		s.cb.MarkBreakpointHit()
	}

	return progressed, nil
}

func (s *Scheduler) desync(cause error) error {
	readCursor, writeEnd := s.buf.Cursors()

	return &DesyncError{
		Cause:      cause,
		Registers:  s.cb.Snapshot(),
		ReadCursor: readCursor,
		WriteEnd:   writeEnd,
	}
}
