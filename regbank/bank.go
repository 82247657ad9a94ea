// Package regbank holds the graphics processor register banks that decoded
// commands write to: the command processor (CP) registers, the transform
// unit (XF) memory, and the blitting processor (BP) registers.
package regbank

import (
	"sync"

	"github.com/tliron/commonlog"

	"github.com/sarchlab/gxfifo/controlblock"
	"github.com/sarchlab/gxfifo/decoding"
	"github.com/sarchlab/gxfifo/hooking"
)

var logger = commonlog.GetLogger("gxfifo.regbank")

// HookPosDraw fires for every dispatched primitive. The item is a
// decoding.Primitive whose vertex bytes are only valid during the hook.
var HookPosDraw = &hooking.HookPos{Name: "Draw"}

// CP register groups. The low nibble of the address selects the entry.
const (
	CPMatIndexA   uint8 = 0x30
	CPMatIndexB   uint8 = 0x40
	CPVCDLo       uint8 = 0x50
	CPVCDHi       uint8 = 0x60
	CPVATA        uint8 = 0x70
	CPVATB        uint8 = 0x80
	CPVATC        uint8 = 0x90
	CPArrayBase   uint8 = 0xA0
	CPArrayStride uint8 = 0xB0
)

// BP registers with side effects.
const (
	BPDrawDone        uint8 = 0x45
	BPToken           uint8 = 0x47
	BPTokenInt        uint8 = 0x48
	BPMask            uint8 = 0xFE
	bpDefaultMask           = 0xFFFFFF
	xfMemorySize            = 0x1100
	numVATs                 = 8
	numArrays               = 16
	vcdLoHiBothLoaded       = 0x3
)

// Stats counts the work dispatched to the bank.
type Stats struct {
	CPLoads       uint64
	XFWords       uint64
	IndexedLoads  uint64
	BPLoads       uint64
	Draws         uint64
	Vertices      uint64
	Invalidations uint64
	Metrics       uint64
}

// A Bank executes decoded commands. It implements decoding.Dispatcher and
// decoding.VertexOracle. It is safe for concurrent use.
type Bank struct {
	hooking.HookableBase

	lock sync.RWMutex

	vcdLo, vcdHi uint32
	vcdLoaded    uint8
	vatA         [numVATs]uint32
	vatB         [numVATs]uint32
	vatC         [numVATs]uint32
	arrayBase    [numArrays]uint32
	arrayStride  [numArrays]uint32
	matIndexA    uint32
	matIndexB    uint32

	xf     [xfMemorySize]uint32
	bp     [256]uint32
	bpMask uint32
	token  uint16

	stats Stats

	memory     decoding.MemoryResolver
	interrupts controlblock.InterruptHandler
}

// New creates a Bank. Indexed loads read from memory; token and draw-done
// events are raised through interrupts.
func New(
	memory decoding.MemoryResolver,
	interrupts controlblock.InterruptHandler,
) *Bank {
	if interrupts == nil {
		interrupts = controlblock.InterruptFunc(func(controlblock.Interrupt) {})
	}

	return &Bank{
		bpMask:     bpDefaultMask,
		memory:     memory,
		interrupts: interrupts,
	}
}

// Dispatch executes a command.
func (b *Bank) Dispatch(cmd decoding.Command) {
	switch cmd.Class {
	case decoding.ClassCPLoad:
		b.loadCP(cmd.CPLoad())
	case decoding.ClassXFLoad:
		b.loadXF(cmd.XFLoad())
	case decoding.ClassIndexedLoad:
		b.loadIndexed(cmd.IndexedLoad())
	case decoding.ClassBPLoad:
		b.loadBP(cmd.BPLoad())
	case decoding.ClassPrimitive:
		b.draw(cmd.Primitive())
	case decoding.ClassInvalidateVertexCache:
		b.lock.Lock()
		b.stats.Invalidations++
		b.lock.Unlock()
	case decoding.ClassMetrics:
		b.lock.Lock()
		b.stats.Metrics++
		b.lock.Unlock()
	default:
		logger.Debugf("ignoring %s command", cmd.Class)
	}
}

func (b *Bank) loadCP(addr uint8, value uint32) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.stats.CPLoads++
	sub := addr & 0x0F

	switch addr & 0xF0 {
	case CPMatIndexA:
		b.matIndexA = value
	case CPMatIndexB:
		b.matIndexB = value
	case CPVCDLo:
		b.vcdLo = value
		b.vcdLoaded |= 1
	case CPVCDHi:
		b.vcdHi = value
		b.vcdLoaded |= 2
	case CPVATA:
		b.vatA[sub&7] = value
	case CPVATB:
		b.vatB[sub&7] = value
	case CPVATC:
		b.vatC[sub&7] = value
	case CPArrayBase:
		b.arrayBase[sub] = value
	case CPArrayStride:
		b.arrayStride[sub] = value & 0xFF
	default:
		logger.Warningf("write to unknown CP register 0x%02x = 0x%08x",
			addr, value)
	}
}

func (b *Bank) loadXF(addr uint16, values []uint32) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.writeXF(addr, values)
}

// writeXF requires the write lock.
func (b *Bank) writeXF(addr uint16, values []uint32) {
	for i, v := range values {
		a := int(addr) + i
		if a >= xfMemorySize {
			logger.Warningf("XF write past the end of XF memory at 0x%04x", a)
			return
		}

		b.xf[a] = v
	}

	b.stats.XFWords += uint64(len(values))
}

func (b *Bank) loadIndexed(l decoding.IndexedLoad) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.stats.IndexedLoads++

	src := b.arrayBase[l.Array] + b.arrayStride[l.Array]*uint32(l.Index)

	data, err := b.memory.Resolve(src, uint32(l.Words)*4)
	if err != nil {
		logger.Warningf("indexed load from array %d at 0x%08x: %s",
			l.Array, src, err)
		return
	}

	values := make([]uint32, l.Words)
	for i := range values {
		values[i] = uint32(data[4*i])<<24 | uint32(data[4*i+1])<<16 |
			uint32(data[4*i+2])<<8 | uint32(data[4*i+3])
	}

	b.writeXF(l.Addr, values)
}

func (b *Bank) loadBP(addr uint8, value uint32) {
	b.lock.Lock()

	b.stats.BPLoads++

	mask := b.bpMask
	b.bp[addr] = (b.bp[addr] &^ mask) | (value & mask)

	if addr == BPMask {
		b.bpMask = value
	} else {
		b.bpMask = bpDefaultMask
	}

	var raise []controlblock.Interrupt

	switch addr {
	case BPDrawDone:
		raise = append(raise, controlblock.InterruptFinish)
	case BPToken:
		b.token = uint16(value)
	case BPTokenInt:
		b.token = uint16(value)
		raise = append(raise, controlblock.InterruptToken)
	}

	b.lock.Unlock()

	for _, i := range raise {
		b.interrupts.RaiseInterrupt(i)
	}
}

func (b *Bank) draw(p decoding.Primitive) {
	b.lock.Lock()
	b.stats.Draws++
	b.stats.Vertices += uint64(p.NumVertices)
	b.lock.Unlock()

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosDraw,
			Item:   p,
		})
	}
}

// CP returns the value last written to a CP register address.
func (b *Bank) CP(addr uint8) uint32 {
	b.lock.RLock()
	defer b.lock.RUnlock()

	sub := addr & 0x0F

	switch addr & 0xF0 {
	case CPMatIndexA:
		return b.matIndexA
	case CPMatIndexB:
		return b.matIndexB
	case CPVCDLo:
		return b.vcdLo
	case CPVCDHi:
		return b.vcdHi
	case CPVATA:
		return b.vatA[sub&7]
	case CPVATB:
		return b.vatB[sub&7]
	case CPVATC:
		return b.vatC[sub&7]
	case CPArrayBase:
		return b.arrayBase[sub]
	case CPArrayStride:
		return b.arrayStride[sub]
	default:
		return 0
	}
}

// XF returns a word of XF memory.
func (b *Bank) XF(addr uint16) uint32 {
	b.lock.RLock()
	defer b.lock.RUnlock()

	if int(addr) >= xfMemorySize {
		return 0
	}

	return b.xf[addr]
}

// BP returns a BP register.
func (b *Bank) BP(addr uint8) uint32 {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.bp[addr]
}

// Token returns the last token written through BP.
func (b *Bank) Token() uint16 {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.token
}

// Stats returns the dispatch counters.
func (b *Bank) Stats() Stats {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.stats
}
