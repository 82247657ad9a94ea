// Package gatherpipe models the producer side of the FIFO: a write-gather
// pipe that collects small CPU writes and bursts them into the FIFO window.
package gatherpipe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/sarchlab/gxfifo/controlblock"
	"github.com/sarchlab/gxfifo/hooking"
)

var logger = commonlog.GetLogger("gxfifo.gatherpipe")

// HookPosBurst fires after a burst lands in the FIFO window. The item is the
// address the burst was written to and the detail is the burst itself.
var HookPosBurst = &hooking.HookPos{Name: "Burst"}

// ErrWindowFull is returned when a burst would overwrite bytes the consumer
// has not retired yet.
var ErrWindowFull = errors.New("fifo window full")

// A MemoryWriter stores bursts in emulated memory.
type MemoryWriter interface {
	Write(address uint32, data []byte) error
}

// Builder creates gather pipes.
type Builder struct {
	burstSize int
	capacity  int
	memory    MemoryWriter
	cb        *controlblock.ControlBlock
}

// MakeBuilder creates a builder with the hardware burst size of 32 bytes.
func MakeBuilder() Builder {
	return Builder{
		burstSize: 32,
		capacity:  128,
	}
}

// WithBurstSize sets the number of bytes moved by each burst.
func (b Builder) WithBurstSize(n int) Builder {
	b.burstSize = n
	return b
}

// WithCapacity sets how many bytes the pipe holds before writes must wait
// for a flush.
func (b Builder) WithCapacity(n int) Builder {
	b.capacity = n
	return b
}

// WithMemory sets the memory the FIFO window lives in.
func (b Builder) WithMemory(m MemoryWriter) Builder {
	b.memory = m
	return b
}

// WithControlBlock sets the control block whose write pointer is advanced.
func (b Builder) WithControlBlock(cb *controlblock.ControlBlock) Builder {
	b.cb = cb
	return b
}

// Build creates the pipe.
func (b Builder) Build(name string) *Pipe {
	if b.memory == nil || b.cb == nil {
		log.Panicf("gather pipe %s needs memory and a control block", name)
	}

	if b.burstSize <= 0 || b.capacity < b.burstSize {
		log.Panicf("gather pipe %s: capacity %d cannot hold a %d-byte burst",
			name, b.capacity, b.burstSize)
	}

	return &Pipe{
		name:      name,
		burstSize: b.burstSize,
		buf:       make([]byte, 0, b.capacity),
		memory:    b.memory,
		cb:        b.cb,
	}
}

// A Pipe gathers writes. It is safe for concurrent use, but writes from
// different goroutines interleave in lock order.
type Pipe struct {
	hooking.HookableBase

	name      string
	burstSize int

	lock sync.Mutex
	buf  []byte

	memory MemoryWriter
	cb     *controlblock.ControlBlock

	bursts uint64
}

// Name returns the name of the pipe.
func (p *Pipe) Name() string {
	return p.name
}

// Pending returns the number of gathered bytes not yet written out.
func (p *Pipe) Pending() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return len(p.buf)
}

// Bursts returns the number of bursts written so far.
func (p *Pipe) Bursts() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.bursts
}

// Write8 gathers one byte.
func (p *Pipe) Write8(v uint8) error {
	return p.Write([]byte{v})
}

// Write16 gathers a big-endian half word.
func (p *Pipe) Write16(v uint16) error {
	return p.Write(binary.BigEndian.AppendUint16(nil, v))
}

// Write32 gathers a big-endian word.
func (p *Pipe) Write32(v uint32) error {
	return p.Write(binary.BigEndian.AppendUint32(nil, v))
}

// Write gathers data and bursts every complete block. If the pipe cannot
// take all of data because the window is full, it keeps what fits and
// returns ErrWindowFull with the number of bytes left out.
func (p *Pipe) Write(data []byte) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	for len(data) > 0 {
		room := cap(p.buf) - len(p.buf)
		if room == 0 {
			if err := p.burstLocked(false); err != nil {
				return fmt.Errorf("%s: %d bytes not gathered: %w",
					p.name, len(data), err)
			}

			continue
		}

		n := min(room, len(data))
		p.buf = append(p.buf, data[:n]...)
		data = data[n:]
	}

	err := p.burstLocked(false)
	if errors.Is(err, ErrWindowFull) {
		// Gathered bytes stay in the pipe until the consumer catches up.
		return nil
	}

	return err
}

// Flush writes out every complete burst.
func (p *Pipe) Flush() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.burstLocked(false)
}

// Sync writes out everything gathered, including a trailing partial burst.
func (p *Pipe) Sync() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.burstLocked(true)
}

// Reset drops gathered bytes.
func (p *Pipe) Reset() {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.buf = p.buf[:0]
}

func (p *Pipe) burstLocked(partial bool) error {
	for len(p.buf) >= p.burstSize || (partial && len(p.buf) > 0) {
		n := min(p.burstSize, len(p.buf))

		if err := p.burst(p.buf[:n]); err != nil {
			return err
		}

		p.buf = p.buf[:copy(p.buf, p.buf[n:])]
	}

	return nil
}

func (p *Pipe) burst(data []byte) error {
	base, end := p.cb.Base(), p.cb.End()
	n := uint32(len(data))

	if p.cb.Distance()+n > end-base {
		return ErrWindowFull
	}

	wp := p.cb.WritePointer()
	first := min(n, end-wp)

	if err := p.memory.Write(wp, data[:first]); err != nil {
		return fmt.Errorf("%s: burst at 0x%08x: %w", p.name, wp, err)
	}

	if first < n {
		logger.Debugf("%s: burst wraps at 0x%08x", p.name, end)

		if err := p.memory.Write(base, data[first:]); err != nil {
			return fmt.Errorf("%s: burst at 0x%08x: %w", p.name, base, err)
		}
	}

	p.bursts++
	p.cb.ProducerAdvance(n)

	if p.NumHooks() > 0 {
		p.InvokeHook(hooking.HookCtx{
			Domain: p,
			Pos:    HookPosBurst,
			Item:   wp,
			Detail: data,
		})
	}

	return nil
}
