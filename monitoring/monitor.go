// Package monitoring serves the state of a running FIFO over HTTP and lets
// an operator pause, continue, or release it from a breakpoint.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"github.com/tliron/commonlog"

	"github.com/sarchlab/gxfifo/controlblock"
	"github.com/sarchlab/gxfifo/monitoring/web"
	"github.com/sarchlab/gxfifo/scheduling"
	"github.com/sarchlab/gxfifo/staging"
)

var logger = commonlog.GetLogger("gxfifo.monitoring")

// A Consumer is the scheduler as seen by the monitor.
type Consumer interface {
	Pause()
	Resume()
	RunState() scheduling.RunState
	Busy() bool
	AtBreakpoint() bool
	FetchedBytes() uint64
	Cycles() uint64
	Err() error
}

// A StatsSource reports command counts.
type StatsSource interface {
	CommandCounts() map[string]uint64
}

// Monitor turns a FIFO into a server that allows external monitoring and
// control.
type Monitor struct {
	consumer    Consumer
	cb          *controlblock.ControlBlock
	buf         *staging.Buffer
	decoder     StatsSource
	components  map[string]any
	portNumber  int
	openBrowser bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server   *http.Server
	listener net.Listener
}

// NewMonitor creates a new Monitor.
func NewMonitor(
	consumer Consumer,
	cb *controlblock.ControlBlock,
	buf *staging.Buffer,
	decoder StatsSource,
) *Monitor {
	return &Monitor{
		consumer:   consumer,
		cb:         cb,
		buf:        buf,
		decoder:    decoder,
		components: make(map[string]any),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 pick
// a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		logger.Warningf("port %d is not allowed for the monitor, "+
			"using a random port instead", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser opens the monitor page in a browser once the server starts.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterComponent exposes a value for inspection under a name.
func (m *Monitor) RegisterComponent(name string, c any) {
	m.components[name] = c
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/status", m.status).Methods(http.MethodGet)
	r.HandleFunc("/api/controlblock", m.controlBlock).Methods(http.MethodGet)
	r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.continueConsumer).Methods(http.MethodPost)
	r.HandleFunc("/api/breakpoint/clear", m.clearBreakpoint).
		Methods(http.MethodPost)
	r.HandleFunc("/api/list_components", m.listComponents).
		Methods(http.MethodGet)
	r.HandleFunc("/api/component/{name}", m.componentDetails).
		Methods(http.MethodGet)
	r.HandleFunc("/api/field/{name}/{field}", m.fieldValue).
		Methods(http.MethodGet)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", m.portNumber))
	if err != nil {
		return "", err
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring FIFO with %s\n", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("monitor server: %s", err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			logger.Warningf("cannot open browser: %s", err)
		}
	}

	return url, nil
}

// Shutdown stops the server.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

type stagingRsp struct {
	Unread   int `json:"unread"`
	Capacity int `json:"capacity"`
}

type statusRsp struct {
	RunState     string            `json:"run_state"`
	Busy         bool              `json:"busy"`
	AtBreakpoint bool              `json:"at_breakpoint"`
	FetchedBytes uint64            `json:"fetched_bytes"`
	Cycles       uint64            `json:"cycles"`
	Staging      stagingRsp        `json:"staging"`
	Commands     map[string]uint64 `json:"commands,omitempty"`
	Error        string            `json:"error,omitempty"`
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	rsp := statusRsp{
		RunState:     m.consumer.RunState().String(),
		Busy:         m.consumer.Busy(),
		AtBreakpoint: m.consumer.AtBreakpoint(),
		FetchedBytes: m.consumer.FetchedBytes(),
		Cycles:       m.consumer.Cycles(),
		Staging: stagingRsp{
			Unread:   m.buf.Unread(),
			Capacity: m.buf.Capacity(),
		},
	}

	if m.decoder != nil {
		rsp.Commands = m.decoder.CommandCounts()
	}

	if err := m.consumer.Err(); err != nil {
		rsp.Error = err.Error()
	}

	writeJSON(w, rsp)
}

func (m *Monitor) controlBlock(w http.ResponseWriter, _ *http.Request) {
	regs := m.cb.Snapshot()
	serialize(w, &regs, nil)
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.consumer.Pause()
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) continueConsumer(w http.ResponseWriter, _ *http.Request) {
	m.consumer.Resume()
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) clearBreakpoint(w http.ResponseWriter, _ *http.Request) {
	m.cb.ClearBreakpoint()
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for name := range m.components {
		names = append(names, name)
	}

	writeJSON(w, names)
}

func (m *Monitor) componentDetails(w http.ResponseWriter, r *http.Request) {
	c := m.findComponentOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	serialize(w, c, nil)
}

func (m *Monitor) fieldValue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	c := m.findComponentOr404(w, vars["name"])
	if c == nil {
		return
	}

	serialize(w, c, strings.Split(vars["field"], "."))
}

func (m *Monitor) findComponentOr404(w http.ResponseWriter, name string) any {
	c, ok := m.components[name]
	if !ok {
		http.Error(w, "Component not found", http.StatusNotFound)
		return nil
	}

	return c
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()

	m.progressBarsLock.Lock()
	bars := make([]progressRsp, len(m.progressBars))
	for i, b := range m.progressBars {
		bars[i] = b.snapshot(now)
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second
	if d, err := time.ParseDuration(r.URL.Query().Get("duration")); err == nil {
		duration = d
	}

	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(duration)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func serialize(w http.ResponseWriter, root any, entry []string) {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(root)
	serializer.SetMaxDepth(1)

	if entry != nil {
		if err := serializer.SetEntryPoint(entry); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := serializer.Serialize(w); err != nil {
		logger.Errorf("serializing %T: %s", root, err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(data); err != nil {
		logger.Debugf("writing response: %s", err)
	}
}
