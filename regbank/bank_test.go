package regbank

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gxfifo/controlblock"
	"github.com/sarchlab/gxfifo/decoding"
	"github.com/sarchlab/gxfifo/hooking"
	"github.com/sarchlab/gxfifo/memory"
)

var _ = Describe("Bank", func() {
	var (
		storage *memory.Storage
		raised  []controlblock.Interrupt
		bank    *Bank
	)

	BeforeEach(func() {
		raised = nil
		storage = memory.NewStorage(1 << 16)
		bank = New(storage, controlblock.InterruptFunc(
			func(i controlblock.Interrupt) { raised = append(raised, i) }))
	})

	Context("vertex sizes", func() {
		It("should be unknown until both descriptors are loaded", func() {
			_, ok := bank.VertexBytes(0, 3)
			Expect(ok).To(BeFalse())

			bank.Dispatch(cpLoad(CPVCDLo, 1<<9))
			_, ok = bank.VertexBytes(0, 3)
			Expect(ok).To(BeFalse())

			bank.Dispatch(cpLoad(CPVCDHi, 0))
			_, ok = bank.VertexBytes(0, 3)
			Expect(ok).To(BeTrue())
		})

		It("should add up direct and indexed attributes", func() {
			// Direct xyz f32 position, direct RGBA8888 color 0, index8 tex 0.
			bank.Dispatch(cpLoad(CPVCDLo, 1<<9|1<<13))
			bank.Dispatch(cpLoad(CPVCDHi, attrIndex8))
			bank.Dispatch(cpLoad(CPVATA+1, 1|4<<1|5<<14))

			n, ok := bank.VertexBytes(1, 3)
			Expect(ok).To(BeTrue())
			Expect(n).To(Equal(3 * (12 + 4 + 1)))

			n, _ = bank.VertexBytes(0, 3)
			Expect(n).To(Equal(3 * (2 + 2 + 1)))
		})

		It("should count matrix indices and normals", func() {
			// Position matrix index, index16 position, direct s8 NBT normal.
			bank.Dispatch(cpLoad(CPVCDLo, 1|attrIndex16<<9|attrDirect<<11))
			bank.Dispatch(cpLoad(CPVCDHi, 0))
			bank.Dispatch(cpLoad(CPVATA, 1<<9|1<<10))

			n, ok := bank.VertexBytes(0, 1)
			Expect(ok).To(BeTrue())
			Expect(n).To(Equal(1 + 2 + 9))
		})
	})

	Context("BP registers", func() {
		It("should apply the BP mask to the next write only", func() {
			bank.Dispatch(bpLoad(0x20, 0x111111))
			bank.Dispatch(bpLoad(BPMask, 0x0000FF))
			bank.Dispatch(bpLoad(0x20, 0xABCDEF))

			Expect(bank.BP(0x20)).To(Equal(uint32(0x1111EF)))

			bank.Dispatch(bpLoad(0x20, 0xABCDEF))
			Expect(bank.BP(0x20)).To(Equal(uint32(0xABCDEF)))
		})

		It("should raise token and draw-done interrupts", func() {
			bank.Dispatch(bpLoad(BPToken, 0x1234))
			Expect(bank.Token()).To(Equal(uint16(0x1234)))
			Expect(raised).To(BeEmpty())

			bank.Dispatch(bpLoad(BPTokenInt, 0x5678))
			bank.Dispatch(bpLoad(BPDrawDone, 0x02))

			Expect(bank.Token()).To(Equal(uint16(0x5678)))
			Expect(raised).To(Equal([]controlblock.Interrupt{
				controlblock.InterruptToken, controlblock.InterruptFinish,
			}))
		})
	})

	It("should load XF memory directly and through arrays", func() {
		xf := append([]byte{decoding.OpLoadXFReg}, be32(1<<16|0x1000)...)
		xf = append(xf, be32(7)...)
		xf = append(xf, be32(8)...)
		bank.Dispatch(decoding.Command{Class: decoding.ClassXFLoad, Raw: xf})

		Expect(bank.XF(0x1000)).To(Equal(uint32(7)))
		Expect(bank.XF(0x1001)).To(Equal(uint32(8)))

		bank.Dispatch(cpLoad(CPArrayBase+0xC, 0x100))
		bank.Dispatch(cpLoad(CPArrayStride+0xC, 0x10))
		Expect(storage.Write(0x120, append(be32(0xAA), be32(0xBB)...))).
			To(Succeed())

		indexed := append([]byte{decoding.OpLoadIndexedA},
			be32(2<<16|1<<12|0x010)...)
		bank.Dispatch(decoding.Command{
			Class: decoding.ClassIndexedLoad, Raw: indexed,
		})

		Expect(bank.XF(0x10)).To(Equal(uint32(0xAA)))
		Expect(bank.XF(0x11)).To(Equal(uint32(0xBB)))
		Expect(bank.Stats().XFWords).To(Equal(uint64(4)))
	})

	It("should count draws and invoke draw hooks", func() {
		var prims []decoding.Primitive
		bank.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			prims = append(prims, ctx.Item.(decoding.Primitive))
		}))

		raw := []byte{0x98, 0x00, 0x02, 1, 2}
		bank.Dispatch(decoding.Command{Class: decoding.ClassPrimitive, Raw: raw})

		Expect(prims).To(HaveLen(1))
		Expect(prims[0].Type).To(Equal(decoding.PrimitiveTriangleStrip))
		Expect(bank.Stats().Draws).To(Equal(uint64(1)))
		Expect(bank.Stats().Vertices).To(Equal(uint64(2)))
	})
})
