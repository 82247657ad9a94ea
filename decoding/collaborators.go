package decoding

// A Dispatcher applies the side effects of decoded commands. It owns the
// register banks.
type Dispatcher interface {
	Dispatch(cmd Command)
}

// A VertexOracle knows the vertex formats. It answers how many bytes
// numVertices vertices occupy under the given vertex attribute table. It
// returns false if the format cannot be determined yet.
type VertexOracle interface {
	VertexBytes(vat uint8, numVertices uint16) (int, bool)
}

// A MemoryResolver gives access to emulated memory.
type MemoryResolver interface {
	Resolve(address uint32, size uint32) ([]byte, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(cmd Command)

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(cmd Command) {
	f(cmd)
}
