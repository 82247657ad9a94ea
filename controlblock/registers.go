package controlblock

import (
	"fmt"
	"strings"
)

// Registers is a plain copy of every field of a ControlBlock. The copy is
// not taken atomically as a whole; each field is individually consistent.
type Registers struct {
	Base            uint32
	End             uint32
	ReadPointer     uint32
	WritePointer    uint32
	Distance        uint32
	SafeReadPointer uint32

	Breakpoint          uint32
	BreakpointEnable    bool
	BreakpointInterrupt bool
	BreakpointHit       bool

	HiWatermark          uint32
	LoWatermark          uint32
	HiWatermarkInterrupt bool
	LoWatermarkInterrupt bool
	HiWatermarkHit       bool
	LoWatermarkHit       bool

	ReadEnable bool
	LinkEnable bool
}

// Snapshot copies the registers.
func (cb *ControlBlock) Snapshot() Registers {
	return Registers{
		Base:                 cb.base.Load(),
		End:                  cb.end.Load(),
		ReadPointer:          cb.readPointer.Load(),
		WritePointer:         cb.writePointer.Load(),
		Distance:             cb.distance.Load(),
		SafeReadPointer:      cb.safeReadPointer.Load(),
		Breakpoint:           cb.breakpoint.Load(),
		BreakpointEnable:     cb.breakpointEnable.Load(),
		BreakpointInterrupt:  cb.breakpointInterrupt.Load(),
		BreakpointHit:        cb.breakpointHit.Load(),
		HiWatermark:          cb.hiWatermark.Load(),
		LoWatermark:          cb.loWatermark.Load(),
		HiWatermarkInterrupt: cb.hiWatermarkInterrupt.Load(),
		LoWatermarkInterrupt: cb.loWatermarkInterrupt.Load(),
		HiWatermarkHit:       cb.hiWatermarkHit.Load(),
		LoWatermarkHit:       cb.loWatermarkHit.Load(),
		ReadEnable:           cb.readEnable.Load(),
		LinkEnable:           cb.linkEnable.Load(),
	}
}

// Restore overwrites every register. The consumer must be paused.
func (cb *ControlBlock) Restore(r Registers) {
	cb.base.Store(r.Base)
	cb.end.Store(r.End)
	cb.readPointer.Store(r.ReadPointer)
	cb.writePointer.Store(r.WritePointer)
	cb.distance.Store(r.Distance)
	cb.safeReadPointer.Store(r.SafeReadPointer)
	cb.breakpoint.Store(r.Breakpoint)
	cb.breakpointEnable.Store(r.BreakpointEnable)
	cb.breakpointInterrupt.Store(r.BreakpointInterrupt)
	cb.breakpointHit.Store(r.BreakpointHit)
	cb.hiWatermark.Store(r.HiWatermark)
	cb.loWatermark.Store(r.LoWatermark)
	cb.hiWatermarkInterrupt.Store(r.HiWatermarkInterrupt)
	cb.loWatermarkInterrupt.Store(r.LoWatermarkInterrupt)
	cb.hiWatermarkHit.Store(r.HiWatermarkHit)
	cb.loWatermarkHit.Store(r.LoWatermarkHit)
	cb.readEnable.Store(r.ReadEnable)
	cb.linkEnable.Store(r.LinkEnable)

	cb.Notify()
}

func (r Registers) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "base:        0x%08x\n", r.Base)
	fmt.Fprintf(&sb, "end:         0x%08x\n", r.End)
	fmt.Fprintf(&sb, "read:        0x%08x\n", r.ReadPointer)
	fmt.Fprintf(&sb, "write:       0x%08x\n", r.WritePointer)
	fmt.Fprintf(&sb, "distance:    0x%08x\n", r.Distance)
	fmt.Fprintf(&sb, "safe read:   0x%08x\n", r.SafeReadPointer)
	fmt.Fprintf(&sb, "breakpoint:  0x%08x enable=%t int=%t hit=%t\n",
		r.Breakpoint, r.BreakpointEnable, r.BreakpointInterrupt,
		r.BreakpointHit)
	fmt.Fprintf(&sb, "hi mark:     0x%08x int=%t hit=%t\n",
		r.HiWatermark, r.HiWatermarkInterrupt, r.HiWatermarkHit)
	fmt.Fprintf(&sb, "lo mark:     0x%08x int=%t hit=%t\n",
		r.LoWatermark, r.LoWatermarkInterrupt, r.LoWatermarkHit)
	fmt.Fprintf(&sb, "read enable: %t link: %t", r.ReadEnable, r.LinkEnable)

	return sb.String()
}
