// Package capture records the command stream into a SQLite file and plays
// recorded streams back through a gather pipe.
package capture

import (
	"encoding/hex"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/sarchlab/gxfifo/datarecording"
	"github.com/sarchlab/gxfifo/decoding"
	"github.com/sarchlab/gxfifo/hooking"
)

var logger = commonlog.GetLogger("gxfifo.capture")

// Table names.
const (
	CommandTable   = "commands"
	SubstreamTable = "substreams"
)

// CommandEntry is one top-level command. Seq orders commands and
// sub-streams within a capture.
type CommandEntry struct {
	Seq   uint64
	Class string
	Size  int
	Data  string
}

// SubstreamEntry is a display list region as it was in memory when the
// call was decoded.
type SubstreamEntry struct {
	Seq     uint64
	Address uint32
	Size    int
	Data    string
}

// A Recorder is a hook for the decoder that writes every top-level command
// and every display list it loads.
type Recorder struct {
	recorder datarecording.DataRecorder
	exec     *datarecording.ExecRecorder

	lock       sync.Mutex
	seq        uint64
	substreams uint64
	bytes      uint64
	closed     bool
}

// NewRecorder creates the capture tables in recorder.
func NewRecorder(recorder datarecording.DataRecorder) *Recorder {
	recorder.CreateTable(CommandTable, CommandEntry{})
	recorder.CreateTable(SubstreamTable, SubstreamEntry{})

	exec := datarecording.NewExecRecorder(recorder)
	exec.Start()

	return &Recorder{
		recorder: recorder,
		exec:     exec,
	}
}

// Session returns the ID of the capture session.
func (r *Recorder) Session() string {
	return r.exec.ID()
}

// Func records the command or sub-stream in ctx.
func (r *Recorder) Func(ctx hooking.HookCtx) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return
	}

	switch ctx.Pos {
	case decoding.HookPosCommand:
		cmd := ctx.Item.(decoding.Command)
		r.recorder.InsertData(CommandTable, CommandEntry{
			Seq:   r.seq,
			Class: cmd.Class.String(),
			Size:  len(cmd.Raw),
			Data:  hex.EncodeToString(cmd.Raw),
		})
		r.bytes += uint64(len(cmd.Raw))
	case decoding.HookPosSubstream:
		sub := ctx.Item.(decoding.Substream)
		r.recorder.InsertData(SubstreamTable, SubstreamEntry{
			Seq:     r.seq,
			Address: sub.Address,
			Size:    len(sub.Data),
			Data:    hex.EncodeToString(sub.Data),
		})
		r.substreams++
	default:
		return
	}

	r.seq++
}

// Commands returns the number of commands recorded.
func (r *Recorder) Commands() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.seq - r.substreams
}

// Close records the session end and flushes. Hooks fired after Close are
// dropped.
func (r *Recorder) Close() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return
	}

	r.closed = true
	r.exec.Set("Commands", itoa(r.seq-r.substreams))
	r.exec.Set("Substreams", itoa(r.substreams))
	r.exec.Set("Stream Bytes", itoa(r.bytes))
	r.exec.End()

	logger.Infof("capture %s: %d commands, %d display lists",
		r.exec.ID(), r.seq-r.substreams, r.substreams)
}
