// Package decoding interprets the FIFO byte stream as graphics-processor
// commands.
//
// The decoder never keeps a cursor of its own. Every call receives the
// window it may look at and reports how many bytes it consumed, so that a
// display list decoded from memory cannot disturb the position in the outer
// stream.
package decoding

import (
	"encoding/binary"
	"log"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/sarchlab/gxfifo/hooking"
)

var logger = commonlog.GetLogger("gxfifo.decoding")

// HookPosCommand fires after every top-level command is executed. The item
// is the Command.
var HookPosCommand = &hooking.HookPos{Name: "Command"}

// HookPosSubstream fires after a display list is loaded from memory and
// before its commands execute. The item is a Substream.
var HookPosSubstream = &hooking.HookPos{Name: "Substream"}

// Substream is a display list loaded from memory.
type Substream struct {
	Address uint32
	Data    []byte
}

// DecodeResult describes one decoded command. A zero BytesConsumed means the
// window did not hold a complete command.
type DecodeResult struct {
	BytesConsumed int
	Cycles        int

	// Nested holds the results of the commands inside a display list.
	Nested []DecodeResult
}

// Starved reports if the command could not be decoded yet.
func (r DecodeResult) Starved() bool {
	return r.BytesConsumed == 0
}

// Pass summarizes a RunUntilStarved call.
type Pass struct {
	BytesConsumed int
	Cycles        int
	Commands      int
}

// Builder builds decoders.
type Builder struct {
	dispatcher Dispatcher
	oracle     VertexOracle
	memory     MemoryResolver
}

// MakeBuilder creates a Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithDispatcher sets the component that executes commands.
func (b Builder) WithDispatcher(d Dispatcher) Builder {
	b.dispatcher = d
	return b
}

// WithVertexOracle sets the component that sizes vertex data.
func (b Builder) WithVertexOracle(o VertexOracle) Builder {
	b.oracle = o
	return b
}

// WithMemory sets the memory display lists are loaded from.
func (b Builder) WithMemory(m MemoryResolver) Builder {
	b.memory = m
	return b
}

// Build creates the decoder.
func (b Builder) Build() *Decoder {
	if b.dispatcher == nil || b.oracle == nil || b.memory == nil {
		log.Panic("decoder requires a dispatcher, a vertex oracle, and memory")
	}

	return &Decoder{
		dispatcher: b.dispatcher,
		oracle:     b.oracle,
		memory:     b.memory,
	}
}

// A Decoder turns bytes into dispatched commands.
type Decoder struct {
	hooking.HookableBase

	dispatcher Dispatcher
	oracle     VertexOracle
	memory     MemoryResolver

	skipOutput atomic.Bool

	commands [numClasses]atomic.Uint64
	cycles   atomic.Uint64
}

// SetSkipOutput turns draw suppression on or off. Skipped primitives are
// still consumed and costed.
func (d *Decoder) SetSkipOutput(skip bool) {
	d.skipOutput.Store(skip)
}

// SkipOutput reports if draws are suppressed.
func (d *Decoder) SkipOutput() bool {
	return d.skipOutput.Load()
}

// CommandCounts returns the number of executed commands per class.
func (d *Decoder) CommandCounts() map[string]uint64 {
	commands := make(map[string]uint64, numClasses)
	for c := Class(0); c < numClasses; c++ {
		commands[c.String()] = d.commands[c].Load()
	}

	return commands
}

// Stats returns the number of executed commands per class and the total
// cycles.
func (d *Decoder) Stats() (commands map[string]uint64, cycles uint64) {
	return d.CommandCounts(), d.cycles.Load()
}

// substream is non-nil while decoding a display list.
type substream struct {
	address uint32
}

// DecodeOne decodes and executes the command at the start of window.
func (d *Decoder) DecodeOne(window []byte) (DecodeResult, error) {
	return d.decodeAt(window, 0, nil)
}

// RunUntilStarved executes commands from the start of window until it holds
// no complete command. The caller must advance its cursor by exactly
// BytesConsumed, which always ends on a command boundary.
//
// On error the pass covers the commands before the failing one.
func (d *Decoder) RunUntilStarved(window []byte) (Pass, error) {
	pass := Pass{}

	for {
		r, err := d.decodeAt(window, pass.BytesConsumed, nil)
		if err != nil {
			return pass, err
		}

		if r.Starved() {
			return pass, nil
		}

		pass.BytesConsumed += r.BytesConsumed
		pass.Cycles += r.Cycles
		pass.Commands++
	}
}

func (d *Decoder) decodeAt(
	stream []byte,
	pos int,
	sub *substream,
) (DecodeResult, error) {
	window := stream[pos:]
	if len(window) == 0 {
		return DecodeResult{}, nil
	}

	class, ok := Classify(window[0])
	if !ok {
		return DecodeResult{}, d.unknownOpcode(stream, pos, sub)
	}

	size, ready := d.commandSize(class, window)
	if !ready || len(window) < size {
		return DecodeResult{}, nil
	}

	cmd := Command{Class: class, Raw: window[:size]}

	result, err := d.execute(cmd, sub)
	if err != nil {
		return DecodeResult{}, err
	}

	result.BytesConsumed = size
	d.commands[class].Add(1)

	if sub == nil {
		d.cycles.Add(uint64(result.Cycles))

		if d.NumHooks() > 0 {
			d.InvokeHook(hooking.HookCtx{
				Domain: d,
				Pos:    HookPosCommand,
				Item:   cmd,
			})
		}
	}

	return result, nil
}

// commandSize returns the full size of the command at the start of window.
// It returns false when the size itself depends on bytes that are not there
// yet or on a vertex format that is not known yet.
func (d *Decoder) commandSize(class Class, window []byte) (int, bool) {
	switch class {
	case ClassNOP, ClassMetrics, ClassInvalidateVertexCache:
		return 1, true
	case ClassCPLoad:
		return sizeCPLoad, true
	case ClassXFLoad:
		if len(window) < sizeXFHeader {
			return 0, false
		}

		header := binary.BigEndian.Uint32(window[1:5])

		return sizeXFHeader + 4*xfTransferWords(header), true
	case ClassIndexedLoad:
		return sizeIndexedLoad, true
	case ClassCall:
		return sizeCall, true
	case ClassBPLoad:
		return sizeBPLoad, true
	case ClassPrimitive:
		if len(window) < sizePrimitiveHead {
			return 0, false
		}

		vat := window[0] & opPrimitiveVAT
		numVertices := binary.BigEndian.Uint16(window[1:3])

		n, ok := d.oracle.VertexBytes(vat, numVertices)
		if !ok {
			return 0, false
		}

		return sizePrimitiveHead + n, true
	default:
		log.Panicf("no size rule for command class %s", class)
		return 0, false
	}
}

func (d *Decoder) execute(cmd Command, sub *substream) (DecodeResult, error) {
	switch cmd.Class {
	case ClassNOP:
		return DecodeResult{Cycles: CyclesNOP}, nil
	case ClassCPLoad:
		d.dispatcher.Dispatch(cmd)
		return DecodeResult{Cycles: CyclesCPLoad}, nil
	case ClassXFLoad:
		d.dispatcher.Dispatch(cmd)
		words := (len(cmd.Raw) - sizeXFHeader) / 4

		return DecodeResult{
			Cycles: CyclesXFLoadBase + CyclesXFLoadPerWord*words,
		}, nil
	case ClassIndexedLoad:
		d.dispatcher.Dispatch(cmd)
		return DecodeResult{Cycles: CyclesIndexedLoad}, nil
	case ClassCall:
		return d.call(cmd, sub)
	case ClassMetrics:
		d.dispatcher.Dispatch(cmd)
		return DecodeResult{Cycles: CyclesMetrics}, nil
	case ClassInvalidateVertexCache:
		d.dispatcher.Dispatch(cmd)
		return DecodeResult{Cycles: CyclesInvalidate}, nil
	case ClassBPLoad:
		d.dispatcher.Dispatch(cmd)
		return DecodeResult{Cycles: CyclesBPLoad}, nil
	case ClassPrimitive:
		if !d.skipOutput.Load() {
			d.dispatcher.Dispatch(cmd)
		}

		vertexBytes := len(cmd.Raw) - sizePrimitiveHead

		return DecodeResult{
			Cycles: CyclesPrimitiveBase + CyclesPrimitivePerByte*vertexBytes,
		}, nil
	default:
		log.Panicf("no execution rule for command class %s", cmd.Class)
		return DecodeResult{}, nil
	}
}

func (d *Decoder) unknownOpcode(
	stream []byte,
	pos int,
	sub *substream,
) error {
	err := &UnknownOpcodeError{
		Opcode:    stream[pos],
		Offset:    pos,
		Following: preview(stream, pos),
	}

	if sub != nil {
		err.InSubstream = true
		err.SubstreamAddress = sub.address
	}

	return err
}
