package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gxfifo/config"
)

var _ = Describe("Load", func() {
	var dir string

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should use defaults without a file", func() {
		c, err := config.Load("", "")

		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(config.Default()))
	})

	It("should read a TOML file", func() {
		path := write("gxfifo.toml", `
[window]
base = 0x1000
end = 0x3000

[scheduler]
chunk-size = 64
dual-core = false
idle-poll = "5ms"

[monitoring]
enabled = true
port = 8080
`)

		c, err := config.Load(path, "")

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Window.Base).To(Equal(uint32(0x1000)))
		Expect(c.Window.End).To(Equal(uint32(0x3000)))
		Expect(c.Scheduler.ChunkSize).To(Equal(uint32(64)))
		Expect(c.Scheduler.DualCore).To(BeFalse())
		Expect(c.Scheduler.IdlePoll).To(Equal(5 * time.Millisecond))
		Expect(c.Monitoring.Enabled).To(BeTrue())
		Expect(c.Monitoring.Port).To(Equal(8080))
		Expect(c.Staging.Capacity).To(Equal(1 << 20))
	})

	It("should reject unknown keys", func() {
		path := write("gxfifo.toml", "[scheduler]\nchunk = 4\n")

		_, err := config.Load(path, "")

		Expect(err).To(MatchError(ContainSubstring("unknown keys")))
	})

	It("should let the environment win over .env and the file", func() {
		path := write("gxfifo.toml", "[scheduler]\nchunk-size = 64\n")
		env := write(".env", "GXFIFO_CHUNK_SIZE=128\n"+
			"GXFIFO_CAPTURE_PATH=from-dotenv\n"+
			"GXFIFO_WINDOW_BASE=0x4000\n")
		GinkgoT().Setenv("GXFIFO_CHUNK_SIZE", "256")

		c, err := config.Load(path, env)

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Scheduler.ChunkSize).To(Equal(uint32(256)))
		Expect(c.Capture.Path).To(Equal("from-dotenv"))
		Expect(c.Window.Base).To(Equal(uint32(0x4000)))
	})

	It("should ignore a missing .env file", func() {
		_, err := config.Load("", filepath.Join(dir, "missing.env"))

		Expect(err).NotTo(HaveOccurred())
	})

	It("should report malformed overrides", func() {
		GinkgoT().Setenv("GXFIFO_DUAL_CORE", "sometimes")

		_, err := config.Load("", "")

		Expect(err).To(MatchError(ContainSubstring("GXFIFO_DUAL_CORE")))
	})

	It("should validate the result", func() {
		GinkgoT().Setenv("GXFIFO_WINDOW_END", "0x100")

		_, err := config.Load("", "")

		Expect(err).To(MatchError(ContainSubstring("must be above base")))
	})
})
