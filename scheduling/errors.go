package scheduling

import (
	"fmt"

	"github.com/sarchlab/gxfifo/controlblock"
)

// DesyncError stops the consumer. It carries the control block and staging
// state at the time of failure so the stream position can be reported.
type DesyncError struct {
	Cause      error
	Registers  controlblock.Registers
	ReadCursor int
	WriteEnd   int
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("fifo consumer stopped: %s\n"+
		"staging:     read cursor %d, write end %d\n%s",
		e.Cause, e.ReadCursor, e.WriteEnd, e.Registers)
}

func (e *DesyncError) Unwrap() error {
	return e.Cause
}
