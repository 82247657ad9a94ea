package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sarchlab/gxfifo/capture"
	"github.com/sarchlab/gxfifo/monitoring"
	"github.com/sarchlab/gxfifo/snapshot"
)

var playCmd = &cobra.Command{
	Use:   "play <capture>",
	Short: "Replay a capture through the FIFO consumer.",
	Long: `Replays every command of a capture through the gather pipe into ` +
		`the consumer and prints the resulting register bank statistics. ` +
		`Set capture.path to record the replay into a new capture.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		skip, _ := cmd.Flags().GetBool("skip-output")
		loadPath, _ := cmd.Flags().GetString("load-state")
		savePath, _ := cmd.Flags().GetString("save-state")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return play(ctx, args[0], skip, loadPath, savePath)
	},
}

func init() {
	playCmd.Flags().Bool("skip-output", false,
		"consume primitives without drawing them")
	playCmd.Flags().String("load-state", "",
		"restore a save state before the replay")
	playCmd.Flags().String("save-state", "",
		"write a save state of the FIFO after the replay")
	rootCmd.AddCommand(playCmd)
}

func play(
	ctx context.Context,
	capturePath string,
	skipOutput bool,
	loadPath, savePath string,
) error {
	c, err := capture.Open(capturePath)
	if err != nil {
		return err
	}
	defer c.Close()

	p := newPipeline(cfg)
	if loadPath != "" {
		if err := loadState(p, loadPath); err != nil {
			return err
		}

		// States saved after a consumer exit have reading disabled.
		p.cb.SetReadEnable(true)
	}

	if skipOutput {
		p.decoder.SetSkipOutput(true)
	}

	if cfg.Capture.Path != "" {
		if err := p.record(cfg.Capture.Path); err != nil {
			return err
		}
	}

	var bar *monitoring.ProgressBar
	if cfg.Monitoring.Enabled {
		url, err := p.serve()
		if err != nil {
			return err
		}
		defer p.monitor.Shutdown(context.Background())

		fmt.Fprintf(os.Stderr, "Monitoring at %s\n", url)
	}

	player := capture.NewPlayer(c, p.storage, p.pipe, p.start()).
		WithProgress(func(done, total int) {
			if p.monitor == nil {
				return
			}

			if bar == nil {
				bar = p.monitor.CreateProgressBar("Replay", uint64(total))
			}

			bar.SetFinished(uint64(done))
		})

	stats, playErr := player.Play(ctx)
	if bar != nil {
		p.monitor.CompleteProgressBar(bar)
	}

	if err := p.stop(); err != nil && playErr == nil {
		playErr = err
	}

	if playErr != nil {
		return playErr
	}

	if savePath != "" {
		if err := saveState(p, savePath); err != nil {
			return err
		}
	}

	printPlayStats(p, stats)

	return nil
}

func loadState(p *pipeline, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	s := snapshot.New(p.sched, p.buf, p.cb, p.decoder)
	if err := s.Load(f); err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	return nil
}

func saveState(p *pipeline, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	s := snapshot.New(p.sched, p.buf, p.cb, p.decoder)
	if err := s.Save(f); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}

	return f.Close()
}

func printPlayStats(p *pipeline, stats capture.PlayStats) {
	bank := p.bank.Stats()
	commands, cycles := p.decoder.Stats()

	fmt.Printf("Replayed %d commands (%d bytes), %d display lists\n",
		stats.Commands, stats.Bytes, stats.Substreams)
	fmt.Printf("Consumed %d bytes in %d cycles, %d bursts, %d interrupts\n",
		p.sched.FetchedBytes(), cycles, p.pipe.Bursts(),
		p.interrupts.Load())

	for _, class := range sortedKeys(commands) {
		fmt.Printf("  %-24s %d\n", class, commands[class])
	}

	fmt.Printf("Bank: %+v\n", bank)
}
