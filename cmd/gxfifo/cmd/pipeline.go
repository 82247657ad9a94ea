package cmd

import (
	"fmt"
	"sync/atomic"

	"github.com/sarchlab/gxfifo/capture"
	"github.com/sarchlab/gxfifo/config"
	"github.com/sarchlab/gxfifo/controlblock"
	"github.com/sarchlab/gxfifo/datarecording"
	"github.com/sarchlab/gxfifo/decoding"
	"github.com/sarchlab/gxfifo/gatherpipe"
	"github.com/sarchlab/gxfifo/memory"
	"github.com/sarchlab/gxfifo/monitoring"
	"github.com/sarchlab/gxfifo/regbank"
	"github.com/sarchlab/gxfifo/scheduling"
	"github.com/sarchlab/gxfifo/staging"
)

// pipeline is a producer and a consumer sharing one FIFO window.
type pipeline struct {
	cfg *config.Config

	storage *memory.Storage
	cb      *controlblock.ControlBlock
	buf     *staging.Buffer
	bank    *regbank.Bank
	decoder *decoding.Decoder
	sched   *scheduling.Scheduler
	pipe    *gatherpipe.Pipe

	interrupts atomic.Uint64

	recorder *capture.Recorder
	writer   datarecording.DataRecorder
	monitor  *monitoring.Monitor
}

func newPipeline(cfg *config.Config) *pipeline {
	p := &pipeline{cfg: cfg}

	raise := controlblock.InterruptFunc(func(i controlblock.Interrupt) {
		p.interrupts.Add(1)
		logger.Debugf("interrupt %s", i)
	})

	p.storage = memory.NewStorage(cfg.Window.MemorySize)
	p.cb = controlblock.New(cfg.Window.Base, cfg.Window.End)
	p.cb.SetInterruptHandler(raise)
	p.cb.SetReadEnable(true)
	p.buf = staging.MakeBufferBuilder().
		WithCapacity(cfg.Staging.Capacity).
		Build("Staging")
	p.bank = regbank.New(p.storage, raise)
	p.decoder = decoding.MakeBuilder().
		WithDispatcher(p.bank).
		WithVertexOracle(p.bank).
		WithMemory(p.storage).
		Build()
	p.sched = scheduling.MakeBuilder().
		WithControlBlock(p.cb).
		WithStagingBuffer(p.buf).
		WithDecoder(p.decoder).
		WithMemory(p.storage).
		WithChunkSize(cfg.Scheduler.ChunkSize).
		WithIdlePoll(cfg.Scheduler.IdlePoll).
		Build("Consumer")
	p.pipe = gatherpipe.MakeBuilder().
		WithMemory(p.storage).
		WithControlBlock(p.cb).
		Build("GatherPipe")

	return p
}

// record attaches a capture recorder writing to path.
func (p *pipeline) record(path string) error {
	writer, err := datarecording.New(path)
	if err != nil {
		return fmt.Errorf("opening capture output: %w", err)
	}

	p.writer = writer
	p.recorder = capture.NewRecorder(writer)
	p.decoder.AcceptHook(p.recorder)

	logger.Infof("recording capture session %s", p.recorder.Session())

	return nil
}

// serve starts the HTTP monitor and returns its address.
func (p *pipeline) serve() (string, error) {
	p.monitor = monitoring.NewMonitor(p.sched, p.cb, p.buf, p.decoder).
		WithPortNumber(p.cfg.Monitoring.Port).
		WithBrowser(p.cfg.Monitoring.OpenBrowser)
	p.monitor.RegisterComponent("Bank", p.bank)
	p.monitor.RegisterComponent("GatherPipe", p.pipe)
	p.monitor.RegisterComponent("Staging", p.buf)

	return p.monitor.StartServer()
}

// start runs the consumer on its own goroutine in dual-core mode and returns
// the matching drainer.
func (p *pipeline) start() capture.Drainer {
	if !p.cfg.Scheduler.DualCore {
		return capture.SyncDrainer{Scheduler: p.sched, ControlBlock: p.cb}
	}

	p.sched.Start()

	return capture.AsyncDrainer{
		Scheduler:    p.sched,
		ControlBlock: p.cb,
		Poll:         p.cfg.Scheduler.IdlePoll,
	}
}

// stop shuts the consumer down and closes the capture output.
func (p *pipeline) stop() error {
	if p.cfg.Scheduler.DualCore {
		p.sched.RequestExit()
	}

	if p.recorder != nil {
		p.recorder.Close()
		if err := p.writer.Close(); err != nil {
			return err
		}
	}

	return p.sched.Err()
}
