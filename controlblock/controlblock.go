// Package controlblock holds the transfer control block shared by the
// producer of the command stream and the FIFO scheduler that consumes it.
//
// Field ownership:
//
//   - write pointer: producer
//   - read pointer, safe read pointer, breakpoint hit: consumer
//   - read-write distance: producer adds, consumer subtracts
//   - everything else: the owner (CPU-side register writes)
//
// Every field is an atomic so that either side, and the owner, can read any
// field at any time.
package controlblock

import (
	"fmt"
	"log"
	"sync/atomic"
)

// Interrupt identifies an interrupt line the FIFO can raise.
type Interrupt int

// Interrupt lines.
const (
	InterruptBreakpoint Interrupt = iota
	InterruptHighWatermark
	InterruptLowWatermark
	InterruptToken
	InterruptFinish
)

func (i Interrupt) String() string {
	switch i {
	case InterruptBreakpoint:
		return "breakpoint"
	case InterruptHighWatermark:
		return "high-watermark"
	case InterruptLowWatermark:
		return "low-watermark"
	case InterruptToken:
		return "token"
	case InterruptFinish:
		return "finish"
	default:
		return fmt.Sprintf("interrupt(%d)", int(i))
	}
}

// InterruptHandler delivers interrupts to whatever models the processor
// interface. The FIFO does not know, or care, when they are serviced.
type InterruptHandler interface {
	RaiseInterrupt(i Interrupt)
}

// InterruptFunc adapts a function to InterruptHandler.
type InterruptFunc func(i Interrupt)

// RaiseInterrupt calls f.
func (f InterruptFunc) RaiseInterrupt(i Interrupt) {
	f(i)
}

type nopInterrupts struct{}

func (nopInterrupts) RaiseInterrupt(Interrupt) {}

type handlerBox struct {
	h InterruptHandler
}

// A ControlBlock describes the producer's circular FIFO window and the
// progress of both sides through it.
type ControlBlock struct {
	base atomic.Uint32
	end  atomic.Uint32

	readPointer     atomic.Uint32
	writePointer    atomic.Uint32
	distance        atomic.Uint32
	safeReadPointer atomic.Uint32

	breakpoint          atomic.Uint32
	breakpointEnable    atomic.Bool
	breakpointInterrupt atomic.Bool
	breakpointHit       atomic.Bool

	hiWatermark          atomic.Uint32
	loWatermark          atomic.Uint32
	hiWatermarkInterrupt atomic.Bool
	loWatermarkInterrupt atomic.Bool
	hiWatermarkHit       atomic.Bool
	loWatermarkHit       atomic.Bool

	readEnable atomic.Bool
	linkEnable atomic.Bool

	interrupts atomic.Pointer[handlerBox]
	wake       chan struct{}
}

// New creates a control block for the window [base, end). Both pointers
// start at base and reading is disabled.
func New(base, end uint32) *ControlBlock {
	if end <= base {
		log.Panicf("fifo window end 0x%08x must be above base 0x%08x",
			end, base)
	}

	cb := &ControlBlock{
		wake: make(chan struct{}, 1),
	}

	cb.base.Store(base)
	cb.end.Store(end)
	cb.readPointer.Store(base)
	cb.writePointer.Store(base)
	cb.safeReadPointer.Store(base)
	cb.hiWatermark.Store(end - base)
	cb.interrupts.Store(&handlerBox{h: nopInterrupts{}})

	return cb
}

// SetInterruptHandler replaces the interrupt handler. A nil handler drops
// interrupts.
func (cb *ControlBlock) SetInterruptHandler(h InterruptHandler) {
	if h == nil {
		h = nopInterrupts{}
	}

	cb.interrupts.Store(&handlerBox{h: h})
}

func (cb *ControlBlock) raise(i Interrupt) {
	cb.interrupts.Load().h.RaiseInterrupt(i)
}

// Wakeup returns a channel that receives a value whenever the block changes
// in a way that may let a waiting consumer make progress.
func (cb *ControlBlock) Wakeup() <-chan struct{} {
	return cb.wake
}

// Notify signals Wakeup without blocking.
func (cb *ControlBlock) Notify() {
	select {
	case cb.wake <- struct{}{}:
	default:
	}
}

// Base returns the first address of the window.
func (cb *ControlBlock) Base() uint32 { return cb.base.Load() }

// End returns the address one past the window.
func (cb *ControlBlock) End() uint32 { return cb.end.Load() }

// ReadPointer returns the address of the next byte the consumer fetches.
func (cb *ControlBlock) ReadPointer() uint32 { return cb.readPointer.Load() }

// WritePointer returns the address of the next byte the producer writes.
func (cb *ControlBlock) WritePointer() uint32 { return cb.writePointer.Load() }

// Distance returns the number of produced bytes not yet retired.
func (cb *ControlBlock) Distance() uint32 { return cb.distance.Load() }

// SafeReadPointer returns the read pointer at the last full drain.
func (cb *ControlBlock) SafeReadPointer() uint32 {
	return cb.safeReadPointer.Load()
}

// Breakpoint returns the breakpoint address.
func (cb *ControlBlock) Breakpoint() uint32 { return cb.breakpoint.Load() }

// SetWindow moves the FIFO window and rewinds both pointers to its base.
// Only the owner may call it, and only while the consumer is paused.
func (cb *ControlBlock) SetWindow(base, end uint32) {
	if end <= base {
		log.Panicf("fifo window end 0x%08x must be above base 0x%08x",
			end, base)
	}

	cb.base.Store(base)
	cb.end.Store(end)
	cb.readPointer.Store(base)
	cb.writePointer.Store(base)
	cb.safeReadPointer.Store(base)
	cb.distance.Store(0)
}

func (cb *ControlBlock) wrap(ptr, n uint32) uint32 {
	base, end := cb.base.Load(), cb.end.Load()

	ptr += n
	if ptr >= end {
		ptr = base + (ptr - end)
	}

	return ptr
}

// BytesUntilEnd returns how many bytes can be read at the read pointer
// before the window wraps.
func (cb *ControlBlock) BytesUntilEnd() uint32 {
	return cb.end.Load() - cb.readPointer.Load()
}

// ProducerAdvance records n freshly written bytes at the write pointer.
func (cb *ControlBlock) ProducerAdvance(n uint32) {
	cb.writePointer.Store(cb.wrap(cb.writePointer.Load(), n))
	cb.distance.Add(n)

	cb.UpdateWatermarks()
	cb.Notify()
}

// AdvanceReadPointer moves the read pointer past n fetched bytes.
func (cb *ControlBlock) AdvanceReadPointer(n uint32) {
	cb.readPointer.Store(cb.wrap(cb.readPointer.Load(), n))
}

// Retire subtracts n consumed bytes from the read-write distance.
func (cb *ControlBlock) Retire(n uint32) {
	for {
		d := cb.distance.Load()
		if n > d {
			log.Panicf("retiring %d bytes with only %d pending", n, d)
		}

		if cb.distance.CompareAndSwap(d, d-n) {
			return
		}
	}
}

// UpdateSafeReadPointer publishes the read pointer as the position a save
// state may restart from. Call it only when the staging buffer is empty.
func (cb *ControlBlock) UpdateSafeReadPointer() {
	cb.safeReadPointer.Store(cb.readPointer.Load())
}
