// Package cmd provides the command-line interface for gxfifo.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"github.com/tliron/commonlog"

	// Backend for commonlog.
	_ "github.com/tliron/commonlog/simple"

	"github.com/sarchlab/gxfifo/config"
)

var logger = commonlog.GetLogger("gxfifo.cli")

var (
	configPath string
	envPath    string
	cfg        *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gxfifo",
	Short: "gxfifo replays and inspects GPU command FIFO streams.",
	Long: `gxfifo replays recorded GPU command streams through the FIFO ` +
		`consumer, lists the contents of captures, and disassembles raw ` +
		`command streams.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath, envPath)
		if err != nil {
			return err
		}

		cfg = c

		var logFile *string
		if cfg.Log.File != "" {
			logFile = &cfg.Log.File
		}
		commonlog.Configure(cfg.Log.Verbosity, logFile)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env",
		"file with GXFIFO_* overrides")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Exits go through atexit so open captures are flushed.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
