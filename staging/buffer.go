// Package staging provides the byte arena that sits between the producer's
// FIFO window and the opcode decoder.
package staging

import (
	"fmt"
	"log"

	"github.com/sarchlab/gxfifo/hooking"
)

// HookPosPush marks when a chunk is appended to the buffer.
var HookPosPush = &hooking.HookPos{Name: "Staging Push"}

// HookPosCompact marks when the unread region is moved to the front of the
// buffer.
var HookPosCompact = &hooking.HookPos{Name: "Staging Compact"}

// OverflowError reports a push that cannot fit even after compaction. Once it
// happens the producer and the consumer disagree about how many bytes are in
// flight and the stream can no longer be trusted.
type OverflowError struct {
	Name     string
	Capacity int
	Unread   int
	Incoming int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf(
		"staging buffer %s overflow: %d unread + %d incoming > capacity %d",
		e.Name, e.Unread, e.Incoming, e.Capacity)
}

// BufferBuilder is a builder for Buffer.
type BufferBuilder struct {
	capacity int
}

// MakeBufferBuilder creates a BufferBuilder with default parameters.
func MakeBufferBuilder() BufferBuilder {
	return BufferBuilder{
		capacity: 1 << 20,
	}
}

// WithCapacity defines the capacity of the buffer in bytes.
func (b BufferBuilder) WithCapacity(capacity int) BufferBuilder {
	b.capacity = capacity
	return b
}

// Build builds a new Buffer.
func (b BufferBuilder) Build(name string) *Buffer {
	if b.capacity <= 0 {
		log.Panicf("staging buffer %s must have a positive capacity", name)
	}

	return &Buffer{
		name: name,
		data: make([]byte, b.capacity),
	}
}

// A Buffer is a fixed-capacity arena with a write end owned by the producer
// side of the scheduler and a read cursor owned by the decoder side.
//
// The two sides never touch the buffer at the same time; the scheduler
// serializes them. The buffer itself does no locking.
type Buffer struct {
	hooking.HookableBase

	name       string
	data       []byte
	writeEnd   int
	readCursor int
}

// Name returns the name of the buffer.
func (b *Buffer) Name() string {
	return b.name
}

// Capacity returns the number of bytes the buffer can hold.
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Unread returns the number of bytes that the decoder has not consumed.
func (b *Buffer) Unread() int {
	return b.writeEnd - b.readCursor
}

// Cursors returns the read cursor and the write end.
func (b *Buffer) Cursors() (readCursor, writeEnd int) {
	return b.readCursor, b.writeEnd
}

// CanPush checks if n more bytes fit, compaction included.
func (b *Buffer) CanPush(n int) bool {
	return n >= 0 && b.Unread()+n <= len(b.data)
}

// Push appends src to the buffer. If src does not fit behind the write end,
// the unread region is first moved to offset 0.
func (b *Buffer) Push(src []byte) error {
	if !b.CanPush(len(src)) {
		return &OverflowError{
			Name:     b.name,
			Capacity: len(b.data),
			Unread:   b.Unread(),
			Incoming: len(src),
		}
	}

	if b.writeEnd+len(src) > len(b.data) {
		b.compact()
	}

	copy(b.data[b.writeEnd:], src)
	b.writeEnd += len(src)

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosPush,
			Item:   src,
		})
	}

	return nil
}

func (b *Buffer) compact() {
	moved := copy(b.data, b.data[b.readCursor:b.writeEnd])
	b.readCursor = 0
	b.writeEnd = moved

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosCompact,
			Item:   moved,
		})
	}
}

// ReadableWindow returns the bytes between the read cursor and the write end.
// The slice aliases the buffer and is only valid until the next Push or
// Reset.
func (b *Buffer) ReadableWindow() []byte {
	return b.data[b.readCursor:b.writeEnd]
}

// Advance moves the read cursor forward by n bytes.
func (b *Buffer) Advance(n int) {
	if n < 0 || b.readCursor+n > b.writeEnd {
		log.Panicf("staging buffer %s: advancing %d bytes past write end "+
			"(cursor %d, end %d)", b.name, n, b.readCursor, b.writeEnd)
	}

	b.readCursor += n
}

// Reset drops all buffered bytes.
func (b *Buffer) Reset() {
	b.readCursor = 0
	b.writeEnd = 0
}
