// Package hooking lets FIFO components expose instrumentation points without
// knowing who listens to them.
package hooking

import (
	"sync"
	"sync/atomic"
)

// HookPos names a point in a component's work where hooks fire.
type HookPos struct {
	Name string
}

// HookCtx describes one firing. Item is the value the position documents;
// Detail carries optional extra data.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable is a component that hooks can attach to.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// Hook receives firings from the components it is attached to.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc turns a function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase implements Hookable. Hooks may be attached while the owner
// fires them from another goroutine; a firing sees either the old or the
// new list.
type HookableBase struct {
	lock  sync.Mutex
	hooks atomic.Pointer[[]Hook]
}

// NumHooks returns the number of hooks attached.
func (h *HookableBase) NumHooks() int {
	if list := h.hooks.Load(); list != nil {
		return len(*list)
	}

	return 0
}

// Hooks returns the attached hooks in attach order.
func (h *HookableBase) Hooks() []Hook {
	if list := h.hooks.Load(); list != nil {
		return *list
	}

	return nil
}

// AcceptHook attaches a hook. Attaching the same hook value twice panics;
// HookFuncs are not comparable and are never treated as duplicates.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.lock.Lock()
	defer h.lock.Unlock()

	old := h.Hooks()

	if _, isFunc := hook.(HookFunc); !isFunc {
		for _, attached := range old {
			if _, isFunc := attached.(HookFunc); !isFunc && attached == hook {
				panic("duplicated hook")
			}
		}
	}

	list := make([]Hook, len(old), len(old)+1)
	copy(list, old)
	list = append(list, hook)
	h.hooks.Store(&list)
}

// InvokeHook calls every attached hook with ctx.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks() {
		hook.Func(ctx)
	}
}
