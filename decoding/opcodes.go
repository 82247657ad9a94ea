package decoding

// Command opcodes.
const (
	OpNOP                   byte = 0x00
	OpLoadCPReg             byte = 0x08
	OpLoadXFReg             byte = 0x10
	OpLoadIndexedA          byte = 0x20
	OpLoadIndexedB          byte = 0x28
	OpLoadIndexedC          byte = 0x30
	OpLoadIndexedD          byte = 0x38
	OpCallDisplayList       byte = 0x40
	OpUnknownMetrics        byte = 0x44
	OpInvalidateVertexCache byte = 0x48
	OpLoadBPReg             byte = 0x61

	// Primitives occupy 0x80-0xBF. Bits 3-6 hold the primitive type and bits
	// 0-2 the vertex attribute table.
	OpPrimitiveMask  byte = 0xC0
	OpPrimitiveBase  byte = 0x80
	opPrimitiveTypes byte = 0x78
	opPrimitiveVAT   byte = 0x07
)

// Primitive types, already shifted down.
const (
	PrimitiveQuads byte = iota
	PrimitiveQuads2
	PrimitiveTriangles
	PrimitiveTriangleStrip
	PrimitiveTriangleFan
	PrimitiveLines
	PrimitiveLineStrip
	PrimitivePoints
)

var primitiveNames = [...]string{
	"quads", "quads2", "triangles", "triangle-strip", "triangle-fan",
	"lines", "line-strip", "points",
}

// Cycle costs.
const (
	CyclesNOP              = 6
	CyclesCPLoad           = 12
	CyclesXFLoadBase       = 18
	CyclesXFLoadPerWord    = 6
	CyclesIndexedLoad      = 6
	CyclesCall             = 6
	CyclesMetrics          = 6
	CyclesInvalidate       = 6
	CyclesBPLoad           = 12
	CyclesPrimitiveBase    = 12
	CyclesPrimitivePerByte = 1
)

// Command sizes, opcode byte included.
const (
	sizeCPLoad        = 6
	sizeXFHeader      = 5
	sizeIndexedLoad   = 5
	sizeCall          = 9
	sizeBPLoad        = 5
	sizePrimitiveHead = 3
)

// Class groups opcodes by how they are decoded.
type Class int

// Command classes.
const (
	ClassNOP Class = iota
	ClassCPLoad
	ClassXFLoad
	ClassIndexedLoad
	ClassCall
	ClassMetrics
	ClassInvalidateVertexCache
	ClassBPLoad
	ClassPrimitive
	numClasses
)

var classNames = [...]string{
	"nop", "cp-load", "xf-load", "indexed-load", "call", "metrics",
	"invalidate-vertex-cache", "bp-load", "primitive",
}

func (c Class) String() string {
	if c < 0 || c >= numClasses {
		return "unknown"
	}

	return classNames[c]
}

// Classify returns the class of an opcode, and false if the opcode is not
// part of the command set.
func Classify(op byte) (Class, bool) {
	switch op {
	case OpNOP:
		return ClassNOP, true
	case OpLoadCPReg:
		return ClassCPLoad, true
	case OpLoadXFReg:
		return ClassXFLoad, true
	case OpLoadIndexedA, OpLoadIndexedB, OpLoadIndexedC, OpLoadIndexedD:
		return ClassIndexedLoad, true
	case OpCallDisplayList:
		return ClassCall, true
	case OpUnknownMetrics:
		return ClassMetrics, true
	case OpInvalidateVertexCache:
		return ClassInvalidateVertexCache, true
	case OpLoadBPReg:
		return ClassBPLoad, true
	}

	if op&OpPrimitiveMask == OpPrimitiveBase {
		return ClassPrimitive, true
	}

	return 0, false
}
