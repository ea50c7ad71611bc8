package reqctx

import (
	"sync/atomic"

	"github.com/vyrodovalexey/apimanager/internal/servicecontrol"
	"github.com/vyrodovalexey/apimanager/internal/util"
)

// CheckContinuation receives the check decision.
type CheckContinuation func(st servicecontrol.Status)

const (
	guardIdle int32 = iota
	guardArming
	guardArmed
	guardFiring
)

// CheckGuard delivers a check decision exactly once. Arm registers the
// continuation and Complete fires it. Completing an idle guard, completing
// twice and arming an armed guard are contract violations and panic with
// a *util.ContractViolation.
//
// The zero value is an idle guard. Arm and Complete may run on different
// goroutines.
type CheckGuard struct {
	state atomic.Int32
	cb    atomic.Pointer[CheckContinuation]
}

// Arm registers cb as the continuation of the pending check.
func (g *CheckGuard) Arm(cb CheckContinuation) {
	if cb == nil {
		panic(&util.ContractViolation{Contract: "check continuation must not be nil"})
	}
	if !g.state.CompareAndSwap(guardIdle, guardArming) {
		panic(&util.ContractViolation{Contract: "check continuation armed twice"})
	}
	g.cb.Store(&cb)
	g.state.Store(guardArmed)
}

// Complete fires the continuation with st and returns the guard to idle.
func (g *CheckGuard) Complete(st servicecontrol.Status) {
	if !g.state.CompareAndSwap(guardArmed, guardFiring) {
		panic(&util.ContractViolation{Contract: "check completed while not armed"})
	}
	cb := g.cb.Swap(nil)
	g.state.Store(guardIdle)
	(*cb)(st)
}

// Armed reports whether a continuation is waiting.
func (g *CheckGuard) Armed() bool {
	return g.state.Load() == guardArmed
}
