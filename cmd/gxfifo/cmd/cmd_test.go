package cmd

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gxfifo/capture"
	"github.com/sarchlab/gxfifo/config"
	"github.com/sarchlab/gxfifo/decoding"
	"github.com/sarchlab/gxfifo/snapshot"
)

func bpLoad(addr uint8, value uint32) []byte {
	return []byte{decoding.OpLoadBPReg, addr,
		byte(value >> 16), byte(value >> 8), byte(value)}
}

var _ = Describe("Commands", func() {
	var (
		dir         string
		stream      []byte
		capturePath string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		cfg = config.Default()
		cfg.Scheduler.DualCore = false

		stream = nil
		for i := 0; i < 12; i++ {
			stream = append(stream, bpLoad(0x30, uint32(i))...)
		}

		capturePath = filepath.Join(dir, "source.sqlite3")

		p := newPipeline(cfg)
		Expect(p.record(capturePath)).To(Succeed())
		Expect(p.pipe.Write(stream)).To(Succeed())
		Expect(p.pipe.Sync()).To(Succeed())
		Expect(p.start().Drain(context.Background())).To(Succeed())
		Expect(p.stop()).To(Succeed())
	})

	It("should replay a capture and save the state", func() {
		statePath := filepath.Join(dir, "state.cbor")

		Expect(play(context.Background(), capturePath, false, "",
			statePath)).To(Succeed())

		f, err := os.Open(statePath)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		state, err := snapshot.Read(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Registers.Distance).To(BeZero())
		Expect(state.ReadCursor).To(Equal(state.WriteEnd))
	})

	It("should restore a saved state before replaying", func() {
		statePath := filepath.Join(dir, "state.cbor")
		Expect(play(context.Background(), capturePath, true, "",
			statePath)).To(Succeed())
		Expect(play(context.Background(), capturePath, false, statePath,
			"")).To(Succeed())
	})

	It("should re-enable reading on a state saved after a consumer exit", func() {
		cfg.Scheduler.DualCore = true
		statePath := filepath.Join(dir, "state.cbor")
		Expect(play(context.Background(), capturePath, false, "",
			statePath)).To(Succeed())

		f, err := os.Open(statePath)
		Expect(err).NotTo(HaveOccurred())
		state, err := snapshot.Read(f)
		f.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Registers.ReadEnable).To(BeFalse())

		Expect(play(context.Background(), capturePath, false, statePath,
			"")).To(Succeed())
	})

	It("should replay on a consumer goroutine with the monitor", func() {
		cfg.Scheduler.DualCore = true
		cfg.Monitoring.Enabled = true

		Expect(play(context.Background(), capturePath, false, "",
			"")).To(Succeed())
	})

	It("should record the replay into a new capture", func() {
		cfg.Capture.Path = filepath.Join(dir, "replay.sqlite3")

		Expect(play(context.Background(), capturePath, false, "",
			"")).To(Succeed())

		c, err := capture.Open(cfg.Capture.Path)
		Expect(err).NotTo(HaveOccurred())
		defer c.Close()

		commands, total, err := c.Commands(context.Background(), 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(12))
		Expect(commands[11].Data).To(Equal("613000000b"))
	})

	It("should inspect a capture", func() {
		rootCmd.SetArgs([]string{"inspect", capturePath,
			"--env", "", "--limit", "3"})

		Expect(rootCmd.Execute()).To(Succeed())
	})

	It("should disassemble a stream", func() {
		path := filepath.Join(dir, "stream.bin")
		Expect(os.WriteFile(path, append(stream, 0x61, 0x30), 0o644)).
			To(Succeed())

		Expect(disasm(path, "", "0")).To(Succeed())
	})

	It("should report the offset of an unknown opcode", func() {
		path := filepath.Join(dir, "stream.bin")
		bad := append(append([]byte{}, stream[:10]...), 0xFF)
		Expect(os.WriteFile(path, bad, 0o644)).To(Succeed())

		Expect(disasm(path, "", "0")).To(MatchError(ContainSubstring(
			"at offset 0xa")))
	})

	It("should follow display lists in a memory image", func() {
		image := filepath.Join(dir, "image.bin")
		Expect(os.WriteFile(image, stream[:10], 0o644)).To(Succeed())

		path := filepath.Join(dir, "stream.bin")
		Expect(os.WriteFile(path, []byte{decoding.OpCallDisplayList,
			0, 0, 0x40, 0, 0, 0, 0, 10}, 0o644)).To(Succeed())

		Expect(disasm(path, image, "0x4000")).To(Succeed())
	})
})
