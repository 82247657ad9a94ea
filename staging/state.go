package staging

import "fmt"

// State is the persisted form of a Buffer. Fields are kept in the order the
// save-state format requires.
type State struct {
	Contents   []byte
	WriteEnd   int
	ReadCursor int
}

// State returns a copy of the buffer contents up to the write end along with
// both offsets.
func (b *Buffer) State() State {
	contents := make([]byte, b.writeEnd)
	copy(contents, b.data[:b.writeEnd])

	return State{
		Contents:   contents,
		WriteEnd:   b.writeEnd,
		ReadCursor: b.readCursor,
	}
}

// SetState restores the buffer from a State produced by a buffer of the same
// or smaller capacity.
func (b *Buffer) SetState(s State) error {
	switch {
	case s.WriteEnd != len(s.Contents):
		return fmt.Errorf("staging buffer %s: write end %d does not match "+
			"%d bytes of contents", b.name, s.WriteEnd, len(s.Contents))
	case s.WriteEnd > len(b.data):
		return fmt.Errorf("staging buffer %s: state of %d bytes exceeds "+
			"capacity %d", b.name, s.WriteEnd, len(b.data))
	case s.ReadCursor < 0 || s.ReadCursor > s.WriteEnd:
		return fmt.Errorf("staging buffer %s: read cursor %d outside [0, %d]",
			b.name, s.ReadCursor, s.WriteEnd)
	}

	copy(b.data, s.Contents)
	b.writeEnd = s.WriteEnd
	b.readCursor = s.ReadCursor

	return nil
}
