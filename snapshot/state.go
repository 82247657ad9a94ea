// Package snapshot saves and restores the consumer side of the FIFO: the
// staging buffer, the control block and the decoder's draw suppression.
package snapshot

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/sarchlab/gxfifo/controlblock"
	"github.com/sarchlab/gxfifo/staging"
)

// Version is the layout version written into every state.
const Version = 1

// ErrVersion is returned when loading a state written by another layout.
var ErrVersion = errors.New("unsupported snapshot version")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}

	encMode = em
}

// State is one save state. Fields are encoded in declaration order.
type State struct {
	_ struct{} `cbor:",toarray"`

	Version    uint
	Contents   []byte
	WriteEnd   int
	ReadCursor int
	SkipOutput bool
	Registers  controlblock.Registers
}

// Staging returns the staging buffer part of the state.
func (s State) Staging() staging.State {
	return staging.State{
		Contents:   s.Contents,
		WriteEnd:   s.WriteEnd,
		ReadCursor: s.ReadCursor,
	}
}

// Marshal encodes the state.
func (s State) Marshal() ([]byte, error) {
	return encMode.Marshal(s)
}

// Unmarshal decodes a state.
func Unmarshal(data []byte) (State, error) {
	var s State
	if err := cbor.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("snapshot: unmarshal: %w", err)
	}

	if s.Version != Version {
		return State{}, fmt.Errorf("%w %d", ErrVersion, s.Version)
	}

	return s, nil
}

// Write encodes the state to w.
func (s State) Write(w io.Writer) error {
	if err := encMode.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}

	return nil
}

// Read decodes one state from r.
func Read(r io.Reader) (State, error) {
	var s State
	if err := cbor.NewDecoder(r).Decode(&s); err != nil {
		return State{}, fmt.Errorf("snapshot: decode: %w", err)
	}

	if s.Version != Version {
		return State{}, fmt.Errorf("%w %d", ErrVersion, s.Version)
	}

	return s, nil
}
