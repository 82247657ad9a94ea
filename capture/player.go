package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sarchlab/gxfifo/controlblock"
	"github.com/sarchlab/gxfifo/gatherpipe"
	"github.com/sarchlab/gxfifo/scheduling"
)

// ErrStalled is returned when the consumer stops making progress with bytes
// still pending, for example at a breakpoint or with reading disabled.
var ErrStalled = errors.New("consumer stalled")

// A Drainer blocks until the consumer has retired everything produced.
type Drainer interface {
	Drain(ctx context.Context) error
}

// SyncDrainer drains by running the scheduler on the calling goroutine.
type SyncDrainer struct {
	Scheduler    *scheduling.Scheduler
	ControlBlock *controlblock.ControlBlock
}

// Drain runs the scheduler until the window is empty.
func (d SyncDrainer) Drain(ctx context.Context) error {
	for d.ControlBlock.Distance() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		progressed, err := d.Scheduler.RunOnce()
		if err != nil {
			return err
		}

		if !progressed {
			return fmt.Errorf("%w with %d bytes pending", ErrStalled,
				d.ControlBlock.Distance())
		}
	}

	return nil
}

// AsyncDrainer waits for a scheduler running on its own goroutine.
type AsyncDrainer struct {
	Scheduler    *scheduling.Scheduler
	ControlBlock *controlblock.ControlBlock
	Poll         time.Duration
}

// Drain polls until the window is empty or the consumer stops.
func (d AsyncDrainer) Drain(ctx context.Context) error {
	poll := d.Poll
	if poll == 0 {
		poll = time.Millisecond
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for d.ControlBlock.Distance() > 0 {
		if err := d.Scheduler.Err(); err != nil {
			return err
		}

		if d.Scheduler.RunState() == scheduling.Stopped {
			return fmt.Errorf("%w: scheduler is not running", ErrStalled)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return d.Scheduler.Err()
}

// PlayStats summarizes a replay.
type PlayStats struct {
	Commands   int
	Substreams int
	Bytes      int
}

// A Player feeds a capture back into a FIFO.
type Player struct {
	capture  *Capture
	memory   gatherpipe.MemoryWriter
	pipe     *gatherpipe.Pipe
	drainer  Drainer
	burst    int
	progress func(done, total int)
}

// NewPlayer creates a player. Display lists are written to memory before
// the commands that call them are produced.
func NewPlayer(
	capture *Capture,
	memory gatherpipe.MemoryWriter,
	pipe *gatherpipe.Pipe,
	drainer Drainer,
) *Player {
	return &Player{
		capture: capture,
		memory:  memory,
		pipe:    pipe,
		drainer: drainer,
		burst:   32,
	}
}

// WithProgress sets a function called after every replayed step.
func (p *Player) WithProgress(f func(done, total int)) *Player {
	p.progress = f
	return p
}

// Play replays the whole capture and waits for the consumer to finish.
func (p *Player) Play(ctx context.Context) (PlayStats, error) {
	stats := PlayStats{}

	steps, err := p.capture.steps(ctx)
	if err != nil {
		return stats, err
	}

	for i, s := range steps {
		if s.command == nil {
			if err := p.restore(ctx, s.address, s.substream); err != nil {
				return stats, err
			}

			stats.Substreams++
		} else {
			if err := p.produce(ctx, s.command); err != nil {
				return stats, err
			}

			stats.Commands++
			stats.Bytes += len(s.command)
		}

		if p.progress != nil {
			p.progress(i+1, len(steps))
		}
	}

	if err := p.sync(ctx); err != nil {
		return stats, err
	}

	logger.Infof("replayed %d commands and %d display lists",
		stats.Commands, stats.Substreams)

	return stats, nil
}

// restore waits until everything produced so far is consumed so that no
// pending call sees the new region.
func (p *Player) restore(ctx context.Context, addr uint32, data []byte) error {
	if err := p.sync(ctx); err != nil {
		return err
	}

	if err := p.memory.Write(addr, data); err != nil {
		return fmt.Errorf("restoring display list at 0x%08x: %w", addr, err)
	}

	return nil
}

func (p *Player) produce(ctx context.Context, data []byte) error {
	for len(data) > 0 {
		if err := p.flush(ctx, p.pipe.Flush); err != nil {
			return err
		}

		n := min(len(data), p.burst)
		if err := p.pipe.Write(data[:n]); err != nil {
			return err
		}

		data = data[n:]
	}

	return nil
}

func (p *Player) sync(ctx context.Context) error {
	if err := p.flush(ctx, p.pipe.Sync); err != nil {
		return err
	}

	return p.drainer.Drain(ctx)
}

// flush retries f while the window is full.
func (p *Player) flush(ctx context.Context, f func() error) error {
	for {
		err := f()
		if !errors.Is(err, gatherpipe.ErrWindowFull) {
			return err
		}

		if err := p.drainer.Drain(ctx); err != nil {
			return err
		}
	}
}
