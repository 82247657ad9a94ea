package gatherpipe

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gxfifo/controlblock"
	"github.com/sarchlab/gxfifo/hooking"
	"github.com/sarchlab/gxfifo/memory"
)

var _ = Describe("Pipe", func() {
	var (
		storage *memory.Storage
		cb      *controlblock.ControlBlock
		pipe    *Pipe
	)

	seq := func(from, n int) []byte {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(from + i)
		}

		return b
	}

	BeforeEach(func() {
		storage = memory.NewStorage(1 << 16)
		cb = controlblock.New(0x1000, 0x1060)
		pipe = MakeBuilder().
			WithMemory(storage).
			WithControlBlock(cb).
			Build("GatherPipe")
	})

	It("should hold writes until a burst is complete", func() {
		Expect(pipe.Write32(0x01020304)).To(Succeed())
		Expect(pipe.Write16(0x0506)).To(Succeed())
		Expect(pipe.Write8(0x07)).To(Succeed())

		Expect(pipe.Pending()).To(Equal(7))
		Expect(cb.Distance()).To(BeZero())
		Expect(cb.WritePointer()).To(Equal(uint32(0x1000)))
	})

	It("should burst 32-byte blocks into the window", func() {
		Expect(pipe.Write(seq(0, 40))).To(Succeed())

		Expect(pipe.Pending()).To(Equal(8))
		Expect(pipe.Bursts()).To(Equal(uint64(1)))
		Expect(cb.WritePointer()).To(Equal(uint32(0x1020)))
		Expect(cb.Distance()).To(Equal(uint32(32)))

		data, err := storage.Read(0x1000, 32)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(seq(0, 32)))
	})

	It("should write partial bursts on sync", func() {
		Expect(pipe.Write(seq(0, 5))).To(Succeed())
		Expect(pipe.Flush()).To(Succeed())
		Expect(pipe.Pending()).To(Equal(5))

		Expect(pipe.Sync()).To(Succeed())
		Expect(pipe.Pending()).To(BeZero())
		Expect(cb.Distance()).To(Equal(uint32(5)))
	})

	It("should wrap bursts at the end of the window", func() {
		Expect(pipe.Write(seq(0, 64))).To(Succeed())
		cb.AdvanceReadPointer(64)
		cb.Retire(64)

		Expect(pipe.Write(seq(100, 32))).To(Succeed())

		Expect(cb.WritePointer()).To(Equal(uint32(0x1000)))
		data, _ := storage.Read(0x1040, 32)
		Expect(data).To(Equal(seq(100, 32)))

		Expect(pipe.Write(seq(200, 8))).To(Succeed())
		Expect(pipe.Sync()).To(Succeed())
		data, _ = storage.Read(0x1000, 8)
		Expect(data).To(Equal(seq(200, 8)))
	})

	It("should split a burst that straddles the window end", func() {
		cb.SetWindow(0x1000, 0x1030)
		Expect(pipe.Write(seq(0, 32))).To(Succeed())
		cb.AdvanceReadPointer(32)
		cb.Retire(32)

		Expect(pipe.Write(seq(50, 32))).To(Succeed())

		Expect(cb.WritePointer()).To(Equal(uint32(0x1010)))
		tail, _ := storage.Read(0x1020, 16)
		head, _ := storage.Read(0x1000, 16)
		Expect(tail).To(Equal(seq(50, 16)))
		Expect(head).To(Equal(seq(66, 16)))
	})

	It("should keep bytes gathered while the window is full", func() {
		Expect(pipe.Write(seq(0, 96))).To(Succeed())
		Expect(cb.Distance()).To(Equal(uint32(96)))

		Expect(pipe.Write(seq(96, 32))).To(Succeed())
		Expect(pipe.Pending()).To(Equal(32))
		Expect(errors.Is(pipe.Flush(), ErrWindowFull)).To(BeTrue())

		cb.AdvanceReadPointer(32)
		cb.Retire(32)

		Expect(pipe.Flush()).To(Succeed())
		Expect(pipe.Pending()).To(BeZero())
	})

	It("should refuse writes once the pipe itself is full", func() {
		Expect(pipe.Write(seq(0, 96))).To(Succeed())

		err := pipe.Write(seq(0, 129))
		Expect(errors.Is(err, ErrWindowFull)).To(BeTrue())
		Expect(pipe.Pending()).To(Equal(128))
	})

	It("should invoke burst hooks", func() {
		var addrs []uint32
		pipe.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			Expect(ctx.Pos).To(Equal(HookPosBurst))
			addrs = append(addrs, ctx.Item.(uint32))
		}))

		Expect(pipe.Write(seq(0, 64))).To(Succeed())

		Expect(addrs).To(Equal([]uint32{0x1000, 0x1020}))
	})
})
