package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	positions []*HookPos
}

func (h *countingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
}

var _ = Describe("HookableBase", func() {
	var (
		base *HookableBase
		pos  = &HookPos{Name: "Test"}
	)

	BeforeEach(func() {
		base = &HookableBase{}
	})

	It("should invoke registered hooks in order", func() {
		var order []string

		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, "a") }))
		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, "b") }))

		base.InvokeHook(HookCtx{Pos: pos})

		Expect(base.NumHooks()).To(Equal(2))
		Expect(order).To(Equal([]string{"a", "b"}))
	})

	It("should pass the hook position", func() {
		h := &countingHook{}
		base.AcceptHook(h)

		base.InvokeHook(HookCtx{Pos: pos})

		Expect(h.positions).To(ConsistOf(pos))
	})

	It("should reject the same hook twice", func() {
		h := &countingHook{}
		base.AcceptHook(h)

		Expect(func() { base.AcceptHook(h) }).To(Panic())
	})

	It("should apply hooks attached during a firing from the next one", func() {
		late := &countingHook{}
		base.AcceptHook(HookFunc(func(HookCtx) {
			if base.NumHooks() == 1 {
				base.AcceptHook(late)
			}
		}))

		base.InvokeHook(HookCtx{Pos: pos})
		Expect(late.positions).To(BeEmpty())

		base.InvokeHook(HookCtx{Pos: pos})
		Expect(late.positions).To(ConsistOf(pos))
	})

	It("should return no hooks before any is attached", func() {
		Expect(base.Hooks()).To(BeEmpty())
		Expect(base.NumHooks()).To(BeZero())
	})
})
