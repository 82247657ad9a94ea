package decoding

import (
	"encoding/binary"
	"fmt"
)

// A Command is one fully decoded command. Raw aliases the decoder's input
// window and is only valid for the duration of the call that received it.
type Command struct {
	Class Class
	Raw   []byte
}

// Opcode returns the first byte of the command.
func (c Command) Opcode() byte {
	return c.Raw[0]
}

// Payload returns the bytes that follow the opcode.
func (c Command) Payload() []byte {
	return c.Raw[1:]
}

// CPLoad returns the register address and value of a CP load.
func (c Command) CPLoad() (addr uint8, value uint32) {
	return c.Raw[1], binary.BigEndian.Uint32(c.Raw[2:6])
}

// XFLoad returns the first register address and the words of an XF load.
func (c Command) XFLoad() (addr uint16, values []uint32) {
	header := binary.BigEndian.Uint32(c.Raw[1:5])
	addr = uint16(header)

	n := xfTransferWords(header)
	values = make([]uint32, n)

	for i := range values {
		values[i] = binary.BigEndian.Uint32(c.Raw[5+4*i:])
	}

	return addr, values
}

// IndexedLoad describes an indexed XF load.
type IndexedLoad struct {
	// Array is the CP array slot, 0xC for A through 0xF for D.
	Array uint8
	Index uint16
	Words uint8
	Addr  uint16
}

// IndexedLoad decodes an indexed XF load.
func (c Command) IndexedLoad() IndexedLoad {
	v := binary.BigEndian.Uint32(c.Raw[1:5])

	return IndexedLoad{
		Array: 0xC + (c.Raw[0]-OpLoadIndexedA)/8,
		Index: uint16(v >> 16),
		Words: uint8((v>>12)&0xF) + 1,
		Addr:  uint16(v & 0xFFF),
	}
}

// Call returns the address and byte count of a display list call.
func (c Command) Call() (addr, size uint32) {
	return binary.BigEndian.Uint32(c.Raw[1:5]),
		binary.BigEndian.Uint32(c.Raw[5:9])
}

// BPLoad returns the register address and the 24-bit value of a BP load.
func (c Command) BPLoad() (addr uint8, value uint32) {
	v := binary.BigEndian.Uint32(c.Raw[1:5])
	return uint8(v >> 24), v & 0xFFFFFF
}

// Primitive describes a draw command.
type Primitive struct {
	Type        byte
	VAT         byte
	NumVertices uint16
	Vertices    []byte
}

// Primitive decodes a draw command.
func (c Command) Primitive() Primitive {
	return Primitive{
		Type:        (c.Raw[0] & opPrimitiveTypes) >> 3,
		VAT:         c.Raw[0] & opPrimitiveVAT,
		NumVertices: binary.BigEndian.Uint16(c.Raw[1:3]),
		Vertices:    c.Raw[3:],
	}
}

func (c Command) String() string {
	switch c.Class {
	case ClassNOP:
		return "NOP"
	case ClassCPLoad:
		addr, value := c.CPLoad()
		return fmt.Sprintf("LOAD_CP_REG   [0x%02x] = 0x%08x", addr, value)
	case ClassXFLoad:
		addr, values := c.XFLoad()
		return fmt.Sprintf("LOAD_XF_REG   [0x%04x] x%d = %08x",
			addr, len(values), values)
	case ClassIndexedLoad:
		l := c.IndexedLoad()
		return fmt.Sprintf("LOAD_INDX_%c   array 0x%x index %d -> "+
			"[0x%03x] x%d", 'A'+(l.Array-0xC), l.Array, l.Index, l.Addr,
			l.Words)
	case ClassCall:
		addr, size := c.Call()
		return fmt.Sprintf("CALL_DL       0x%08x size 0x%x", addr, size)
	case ClassMetrics:
		return "UNKNOWN_METRICS"
	case ClassInvalidateVertexCache:
		return "INVL_VC"
	case ClassBPLoad:
		addr, value := c.BPLoad()
		return fmt.Sprintf("LOAD_BP_REG   [0x%02x] = 0x%06x", addr, value)
	case ClassPrimitive:
		p := c.Primitive()
		return fmt.Sprintf("DRAW %-14s vat %d, %d vertices, %d bytes",
			primitiveNames[p.Type], p.VAT, p.NumVertices, len(p.Vertices))
	default:
		return fmt.Sprintf("??? 0x%02x", c.Raw[0])
	}
}

func xfTransferWords(header uint32) int {
	return int((header>>16)&0xF) + 1
}
