package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sarchlab/gxfifo/capture"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <capture>",
	Short: "List the contents of a capture.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, _ := cmd.Flags().GetInt("offset")
		limit, _ := cmd.Flags().GetInt("limit")

		c, err := capture.Open(args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()

		session, err := c.Session(ctx)
		if err != nil {
			return err
		}

		for _, key := range sortedKeys(session) {
			fmt.Printf("%-20s %s\n", key+":", session[key])
		}

		counts, err := c.ClassCounts(ctx)
		if err != nil {
			return err
		}

		fmt.Println()
		for _, class := range sortedKeys(counts) {
			fmt.Printf("  %-24s %d\n", class, counts[class])
		}

		commands, total, err := c.Commands(ctx, offset, limit)
		if err != nil {
			return err
		}

		fmt.Printf("\nCommands %d-%d of %d\n",
			offset, offset+len(commands), total)
		for _, e := range commands {
			fmt.Printf("%8d  %-24s %4d  %s\n", e.Seq, e.Class, e.Size, e.Data)
		}

		return nil
	},
}

func init() {
	inspectCmd.Flags().Int("offset", 0, "first command to list")
	inspectCmd.Flags().Int("limit", 50, "number of commands to list, 0 for all")
	rootCmd.AddCommand(inspectCmd)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
