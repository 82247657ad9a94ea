package decoding

import (
	"errors"
	"fmt"
)

// ErrDesync is matched by every error that means the producer and the
// decoder no longer agree on where commands start. Nothing decoded after such
// an error can be trusted.
var ErrDesync = errors.New("command stream desynchronized")

const previewLen = 16

func preview(stream []byte, pos int) []byte {
	end := min(pos+previewLen, len(stream))
	out := make([]byte, end-pos)
	copy(out, stream[pos:end])

	return out
}

// UnknownOpcodeError reports a byte that does not start any known command.
type UnknownOpcodeError struct {
	Opcode byte

	// Offset is the position of the opcode in the window or sub-stream
	// being decoded.
	Offset int

	// InSubstream is set when the opcode was found inside a display list
	// starting at SubstreamAddress.
	InSubstream      bool
	SubstreamAddress uint32

	// Following holds the opcode and up to 15 bytes after it.
	Following []byte
}

func (e *UnknownOpcodeError) Error() string {
	where := fmt.Sprintf("offset %d", e.Offset)
	if e.InSubstream {
		where = fmt.Sprintf("offset %d of display list 0x%08x",
			e.Offset, e.SubstreamAddress)
	}

	return fmt.Sprintf("unknown opcode 0x%02x at %s, bytes % x",
		e.Opcode, where, e.Following)
}

// Is makes UnknownOpcodeError match ErrDesync.
func (e *UnknownOpcodeError) Is(target error) bool {
	return target == ErrDesync
}

// MalformedSubstreamError reports a display list that cannot be loaded or
// that ends in the middle of a command.
type MalformedSubstreamError struct {
	Address uint32
	Size    uint32

	// Offset is where the truncated command starts.
	Offset int
	Cause  error
}

func (e *MalformedSubstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("display list 0x%08x size 0x%x: %v",
			e.Address, e.Size, e.Cause)
	}

	return fmt.Sprintf("display list 0x%08x size 0x%x: command at offset "+
		"%d runs past the end", e.Address, e.Size, e.Offset)
}

// Unwrap returns the cause.
func (e *MalformedSubstreamError) Unwrap() error {
	return e.Cause
}

// Is makes MalformedSubstreamError match ErrDesync.
func (e *MalformedSubstreamError) Is(target error) bool {
	return target == ErrDesync
}
