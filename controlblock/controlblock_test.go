package controlblock

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ControlBlock", func() {
	var (
		cb     *ControlBlock
		raised []Interrupt
	)

	BeforeEach(func() {
		raised = nil
		cb = New(0x1000, 0x1080)
		cb.SetInterruptHandler(InterruptFunc(func(i Interrupt) {
			raised = append(raised, i)
		}))
	})

	It("should start with both pointers at base", func() {
		Expect(cb.ReadPointer()).To(Equal(uint32(0x1000)))
		Expect(cb.WritePointer()).To(Equal(uint32(0x1000)))
		Expect(cb.Distance()).To(BeZero())
		Expect(cb.ReadEnabled()).To(BeFalse())
	})

	It("should wrap pointers at the end of the window", func() {
		cb.ProducerAdvance(0x60)
		cb.AdvanceReadPointer(0x60)
		cb.Retire(0x60)

		cb.ProducerAdvance(0x40)
		cb.AdvanceReadPointer(0x20)
		Expect(cb.ReadPointer()).To(Equal(uint32(0x1000)))
		Expect(cb.WritePointer()).To(Equal(uint32(0x1020)))
		Expect(cb.Distance()).To(Equal(uint32(0x40)))
	})

	It("should signal the consumer when the producer advances", func() {
		cb.ProducerAdvance(32)

		Eventually(cb.Wakeup()).Should(Receive())
	})

	It("should panic when retiring more than is pending", func() {
		cb.ProducerAdvance(32)

		Expect(func() { cb.Retire(64) }).To(Panic())
	})

	It("should gate at the breakpoint", func() {
		cb.SetBreakpoint(0x1040, true, true)
		Expect(cb.AtBreakpoint()).To(BeFalse())

		n, limited := cb.BytesUntilBreakpoint()
		Expect(limited).To(BeTrue())
		Expect(n).To(Equal(uint32(0x40)))

		cb.AdvanceReadPointer(0x40)
		Expect(cb.AtBreakpoint()).To(BeTrue())

		cb.MarkBreakpointHit()
		cb.MarkBreakpointHit()
		Expect(cb.BreakpointHit()).To(BeTrue())
		Expect(raised).To(Equal([]Interrupt{InterruptBreakpoint}))

		cb.ClearBreakpoint()
		Expect(cb.AtBreakpoint()).To(BeFalse())
		Expect(cb.BreakpointHit()).To(BeFalse())
	})

	It("should not limit fetches by a breakpoint behind the read pointer", func() {
		cb.AdvanceReadPointer(0x40)
		cb.SetBreakpoint(0x1020, true, false)

		_, limited := cb.BytesUntilBreakpoint()
		Expect(limited).To(BeFalse())
	})

	It("should raise watermark interrupts on rising edges", func() {
		cb.SetWatermarks(0x40, 0x20, true, true)

		cb.UpdateWatermarks()
		Expect(raised).To(Equal([]Interrupt{InterruptLowWatermark}))
		Expect(cb.LowWatermarkHit()).To(BeTrue())

		cb.ProducerAdvance(0x60)
		Expect(raised).To(Equal([]Interrupt{
			InterruptLowWatermark, InterruptHighWatermark,
		}))
		Expect(cb.LowWatermarkHit()).To(BeFalse())
		Expect(cb.HighWatermarkHit()).To(BeTrue())

		cb.ProducerAdvance(0)
		Expect(raised).To(HaveLen(2))
	})

	It("should snapshot and restore every register", func() {
		cb.SetReadEnable(true)
		cb.SetBreakpoint(0x1060, true, false)
		cb.ProducerAdvance(0x20)
		cb.AdvanceReadPointer(0x20)
		cb.UpdateSafeReadPointer()

		regs := cb.Snapshot()

		other := New(0, 0x20)
		other.Restore(regs)

		Expect(other.Snapshot()).To(Equal(regs))
		Expect(regs.String()).To(ContainSubstring("safe read:   0x00001020"))
	})
})
