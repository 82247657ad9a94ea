package datarecording

import (
	"os"
	"strings"
	"time"

	"github.com/rs/xid"
)

// ExecTable is the table session information is written to.
const ExecTable = "exec_info"

// ExecInfo is one property of a recording session.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records when and how a recording session ran.
type ExecRecorder struct {
	recorder DataRecorder
	id       string
	entries  []ExecInfo
}

// NewExecRecorder creates the exec_info table and a session ID.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	recorder.CreateTable(ExecTable, ExecInfo{})

	return &ExecRecorder{
		recorder: recorder,
		id:       xid.New().String(),
	}
}

// ID returns the session ID.
func (e *ExecRecorder) ID() string {
	return e.id
}

// Set adds a property written on End.
func (e *ExecRecorder) Set(property, value string) {
	e.entries = append(e.entries, ExecInfo{property, value})
}

// Start records the session ID, the start time, and the command line.
func (e *ExecRecorder) Start() {
	e.Set("Session", e.id)
	e.Set("Start Time", time.Now().Format(time.RFC3339Nano))
	e.Set("Command", strings.Join(os.Args, " "))

	if cwd, err := os.Getwd(); err == nil {
		e.Set("Working Directory", cwd)
	}
}

// End writes all properties along with the end time and flushes.
func (e *ExecRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(ExecTable, entry)
	}

	e.recorder.InsertData(ExecTable,
		ExecInfo{"End Time", time.Now().Format(time.RFC3339Nano)})

	e.entries = nil

	e.recorder.Flush()
}
