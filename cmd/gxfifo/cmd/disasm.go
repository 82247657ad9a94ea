package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/gxfifo/decoding"
	"github.com/sarchlab/gxfifo/hooking"
	"github.com/sarchlab/gxfifo/memory"
	"github.com/sarchlab/gxfifo/regbank"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <stream>",
	Short: "Decode a raw command stream and print its commands.",
	Long: `Decodes a raw command stream file. Display lists are read from an ` +
		`optional memory image loaded at --image-address.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, _ := cmd.Flags().GetString("image")
		address, _ := cmd.Flags().GetString("image-address")

		return disasm(args[0], image, address)
	},
}

func init() {
	disasmCmd.Flags().String("image", "", "memory image holding display lists")
	disasmCmd.Flags().String("image-address", "0",
		"physical address the memory image is loaded at")
	rootCmd.AddCommand(disasmCmd)
}

func disasm(streamPath, imagePath, imageAddress string) error {
	stream, err := os.ReadFile(streamPath)
	if err != nil {
		return err
	}

	storage := memory.NewStorage(cfg.Window.MemorySize)
	if imagePath != "" {
		if err := loadImage(storage, imagePath, imageAddress); err != nil {
			return err
		}
	}

	bank := regbank.New(storage, nil)
	decoder := decoding.MakeBuilder().
		WithDispatcher(bank).
		WithVertexOracle(bank).
		WithMemory(storage).
		Build()

	var last decoding.Command
	decoder.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos == decoding.HookPosCommand {
			last = ctx.Item.(decoding.Command)
		}
	}))

	offset := 0
	for offset < len(stream) {
		r, err := decoder.DecodeOne(stream[offset:])
		if err != nil {
			return fmt.Errorf("at offset 0x%x: %w", offset, err)
		}

		if r.Starved() {
			fmt.Printf("%08x  <%d trailing bytes>\n", offset,
				len(stream)-offset)
			break
		}

		fmt.Printf("%08x  %4d  %s\n", offset, r.Cycles, last)
		if len(r.Nested) > 0 {
			fmt.Printf("          %d commands in display list\n",
				len(r.Nested))
		}

		offset += r.BytesConsumed
	}

	_, cycles := decoder.Stats()
	fmt.Printf("%d bytes, %d cycles\n", offset, cycles)

	return nil
}

func loadImage(storage *memory.Storage, path, address string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	addr, err := strconv.ParseUint(address, 0, 32)
	if err != nil {
		return fmt.Errorf("image address %q: %w", address, err)
	}

	return storage.Write(uint32(addr), data)
}
