package scheduling

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID identifies the calling goroutine. It is only used to detect a
// consumer that calls back into its own scheduler.
func goroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))

	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}

	id, _ := strconv.ParseUint(string(b), 10, 64)

	return id
}
