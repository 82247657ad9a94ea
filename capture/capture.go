package capture

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/sarchlab/gxfifo/datarecording"
)

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// A Capture is a recorded stream opened for reading.
type Capture struct {
	reader datarecording.DataReader
}

// Open opens a capture file.
func Open(path string) (*Capture, error) {
	reader, err := datarecording.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}

	return NewCapture(reader), nil
}

// NewCapture reads a capture through reader.
func NewCapture(reader datarecording.DataReader) *Capture {
	reader.MapTable(CommandTable, CommandEntry{})
	reader.MapTable(SubstreamTable, SubstreamEntry{})
	reader.MapTable(datarecording.ExecTable, datarecording.ExecInfo{})

	return &Capture{reader: reader}
}

// Close closes the underlying file.
func (c *Capture) Close() error {
	return c.reader.Close()
}

// Session returns the session properties.
func (c *Capture) Session(ctx context.Context) (map[string]string, error) {
	rows, _, err := c.reader.Query(ctx, datarecording.ExecTable,
		datarecording.QueryParams{})
	if err != nil {
		return nil, err
	}

	props := make(map[string]string, len(rows))
	for _, row := range rows {
		info := row.(*datarecording.ExecInfo)
		props[info.Property] = info.Value
	}

	return props, nil
}

// Commands returns up to limit commands starting at offset, in stream
// order. A zero limit returns all of them.
func (c *Capture) Commands(
	ctx context.Context,
	offset, limit int,
) ([]CommandEntry, int, error) {
	rows, total, err := c.reader.Query(ctx, CommandTable,
		datarecording.QueryParams{
			OrderBy: "Seq",
			Limit:   limit,
			Offset:  offset,
		})
	if err != nil {
		return nil, 0, err
	}

	entries := make([]CommandEntry, len(rows))
	for i, row := range rows {
		entries[i] = *row.(*CommandEntry)
	}

	return entries, total, nil
}

// Substreams returns every recorded display list in stream order.
func (c *Capture) Substreams(ctx context.Context) ([]SubstreamEntry, error) {
	rows, _, err := c.reader.Query(ctx, SubstreamTable,
		datarecording.QueryParams{OrderBy: "Seq"})
	if err != nil {
		return nil, err
	}

	entries := make([]SubstreamEntry, len(rows))
	for i, row := range rows {
		entries[i] = *row.(*SubstreamEntry)
	}

	return entries, nil
}

// ClassCounts returns how many commands of each class were recorded.
func (c *Capture) ClassCounts(ctx context.Context) (map[string]int, error) {
	commands, _, err := c.Commands(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, cmd := range commands {
		counts[cmd.Class]++
	}

	return counts, nil
}

// step is a command or a display list in stream order.
type step struct {
	seq       uint64
	command   []byte
	address   uint32
	substream []byte
}

func (c *Capture) steps(ctx context.Context) ([]step, error) {
	commands, _, err := c.Commands(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	substreams, err := c.Substreams(ctx)
	if err != nil {
		return nil, err
	}

	steps := make([]step, 0, len(commands)+len(substreams))

	for _, cmd := range commands {
		data, err := hex.DecodeString(cmd.Data)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", cmd.Seq, err)
		}

		steps = append(steps, step{seq: cmd.Seq, command: data})
	}

	for _, sub := range substreams {
		data, err := hex.DecodeString(sub.Data)
		if err != nil {
			return nil, fmt.Errorf("display list %d: %w", sub.Seq, err)
		}

		steps = append(steps, step{
			seq:       sub.Seq,
			address:   sub.Address,
			substream: data,
		})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].seq < steps[j].seq })

	return steps, nil
}
