package regbank

// Attribute descriptor types from the vertex descriptor registers.
const (
	attrNone = iota
	attrDirect
	attrIndex8
	attrIndex16
)

// Component sizes by format code: u8, s8, u16, s16, f32.
var componentSizes = [8]int{1, 1, 2, 2, 4, 4, 4, 4}

// Color sizes by format code: RGB565, RGB888, RGB888x, RGBA4444, RGBA6666,
// RGBA8888.
var colorSizes = [8]int{2, 3, 4, 2, 3, 4, 4, 4}

// VertexBytes returns the size of numVertices vertices in the given vertex
// attribute table. The size is unknown until both vertex descriptor
// registers have been loaded.
func (b *Bank) VertexBytes(vat uint8, numVertices uint16) (int, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	if b.vcdLoaded != vcdLoHiBothLoaded {
		return 0, false
	}

	return b.vertexStride(vat&7) * int(numVertices), true
}

func bit(v uint32, n uint) uint32 {
	return (v >> n) & 1
}

func field(v uint32, shift, width uint) uint32 {
	return (v >> shift) & (1<<width - 1)
}

func indexSize(attr uint32) int {
	switch attr {
	case attrIndex8:
		return 1
	case attrIndex16:
		return 2
	default:
		return 0
	}
}

// vertexStride requires the read lock.
func (b *Bank) vertexStride(vat uint8) int {
	lo, hi := b.vcdLo, b.vcdHi
	a, bb, c := b.vatA[vat], b.vatB[vat], b.vatC[vat]

	stride := 0

	// Matrix indices are one byte each when present.
	for i := uint(0); i < 9; i++ {
		stride += int(bit(lo, i))
	}

	stride += positionSize(field(lo, 9, 2), a)
	stride += normalSize(field(lo, 11, 2), a)
	stride += colorSize(field(lo, 13, 2), field(a, 14, 3))
	stride += colorSize(field(lo, 15, 2), field(a, 18, 3))

	texFormats := [8]struct{ elems, format uint32 }{
		{bit(a, 21), field(a, 22, 3)},
		{bit(bb, 0), field(bb, 1, 3)},
		{bit(bb, 9), field(bb, 10, 3)},
		{bit(bb, 18), field(bb, 19, 3)},
		{bit(bb, 27), field(bb, 28, 3)},
		{bit(c, 5), field(c, 6, 3)},
		{bit(c, 14), field(c, 15, 3)},
		{bit(c, 23), field(c, 24, 3)},
	}

	for i, t := range texFormats {
		attr := field(hi, uint(2*i), 2)
		if attr == attrDirect {
			stride += int(t.elems+1) * componentSizes[t.format]
		} else {
			stride += indexSize(attr)
		}
	}

	return stride
}

func positionSize(attr, vatA uint32) int {
	if attr != attrDirect {
		return indexSize(attr)
	}

	elems := 2 + int(bit(vatA, 0))

	return elems * componentSizes[field(vatA, 1, 3)]
}

func normalSize(attr, vatA uint32) int {
	nbt := bit(vatA, 9) == 1

	if attr != attrDirect {
		size := indexSize(attr)
		if nbt && bit(vatA, 31) == 1 {
			size *= 3
		}

		return size
	}

	elems := 3
	if nbt {
		elems = 9
	}

	return elems * componentSizes[field(vatA, 10, 3)]
}

func colorSize(attr, format uint32) int {
	if attr != attrDirect {
		return indexSize(attr)
	}

	return colorSizes[format]
}
