package controlblock

// SetReadEnable turns consumption on or off.
func (cb *ControlBlock) SetReadEnable(enable bool) {
	cb.readEnable.Store(enable)
	cb.Notify()
}

// ReadEnabled reports if the consumer may fetch.
func (cb *ControlBlock) ReadEnabled() bool {
	return cb.readEnable.Load()
}

// SetLinkEnable records whether the CPU and GPU windows are linked.
func (cb *ControlBlock) SetLinkEnable(enable bool) {
	cb.linkEnable.Store(enable)
}

// LinkEnabled reports the linked mode flag.
func (cb *ControlBlock) LinkEnabled() bool {
	return cb.linkEnable.Load()
}

// SetBreakpoint sets the breakpoint address and the gating flags.
func (cb *ControlBlock) SetBreakpoint(addr uint32, enable, interrupt bool) {
	cb.breakpoint.Store(addr)
	cb.breakpointInterrupt.Store(interrupt)
	cb.breakpointEnable.Store(enable)
	cb.Notify()
}

// BreakpointEnabled reports if breakpoint gating is on.
func (cb *ControlBlock) BreakpointEnabled() bool {
	return cb.breakpointEnable.Load()
}

// BreakpointHit reports if the consumer stopped at the breakpoint.
func (cb *ControlBlock) BreakpointHit() bool {
	return cb.breakpointHit.Load()
}

// AtBreakpoint reports if gating is enabled and the read pointer sits on the
// breakpoint address.
func (cb *ControlBlock) AtBreakpoint() bool {
	return cb.breakpointEnable.Load() &&
		cb.readPointer.Load() == cb.breakpoint.Load()
}

// BytesUntilBreakpoint returns how many bytes may be fetched before the
// breakpoint, and false if the breakpoint does not limit the next fetch.
func (cb *ControlBlock) BytesUntilBreakpoint() (uint32, bool) {
	if !cb.breakpointEnable.Load() {
		return 0, false
	}

	rp, bp := cb.readPointer.Load(), cb.breakpoint.Load()
	if bp < rp || bp >= cb.end.Load() {
		return 0, false
	}

	return bp - rp, true
}

// MarkBreakpointHit latches the hit flag. The breakpoint interrupt is raised
// only on the first call after a clear.
func (cb *ControlBlock) MarkBreakpointHit() {
	if cb.breakpointHit.Swap(true) {
		return
	}

	if cb.breakpointInterrupt.Load() {
		cb.raise(InterruptBreakpoint)
	}
}

// ClearBreakpoint releases a consumer stopped at the breakpoint.
func (cb *ControlBlock) ClearBreakpoint() {
	cb.breakpointEnable.Store(false)
	cb.breakpointHit.Store(false)
	cb.Notify()
}

// SetWatermarks sets the high and low watermarks in bytes of distance.
func (cb *ControlBlock) SetWatermarks(hi, lo uint32, hiInt, loInt bool) {
	cb.hiWatermark.Store(hi)
	cb.loWatermark.Store(lo)
	cb.hiWatermarkInterrupt.Store(hiInt)
	cb.loWatermarkInterrupt.Store(loInt)
}

// HighWatermarkHit reports the overflow status bit.
func (cb *ControlBlock) HighWatermarkHit() bool {
	return cb.hiWatermarkHit.Load()
}

// LowWatermarkHit reports the underflow status bit.
func (cb *ControlBlock) LowWatermarkHit() bool {
	return cb.loWatermarkHit.Load()
}

// UpdateWatermarks recomputes the watermark status bits from the current
// distance and raises the enabled interrupts on a rising edge.
func (cb *ControlBlock) UpdateWatermarks() {
	d := cb.distance.Load()

	hi := d > cb.hiWatermark.Load()
	if hi && !cb.hiWatermarkHit.Swap(true) && cb.hiWatermarkInterrupt.Load() {
		cb.raise(InterruptHighWatermark)
	} else if !hi {
		cb.hiWatermarkHit.Store(false)
	}

	lo := d < cb.loWatermark.Load()
	if lo && !cb.loWatermarkHit.Swap(true) && cb.loWatermarkInterrupt.Load() {
		cb.raise(InterruptLowWatermark)
	} else if !lo {
		cb.loWatermarkHit.Store(false)
	}
}
