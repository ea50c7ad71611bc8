package reqctx

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/vyrodovalexey/apimanager/internal/servicecontrol"
	"github.com/vyrodovalexey/apimanager/internal/util"
)

func contractViolation(t *testing.T, fn func()) *util.ContractViolation {
	t.Helper()

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()

	require.NotNil(t, recovered, "expected a panic")
	cv, ok := recovered.(*util.ContractViolation)
	require.True(t, ok, "panic value is %T", recovered)
	return cv
}

func TestCheckGuard_CompleteFiresOnce(t *testing.T) {
	t.Parallel()

	var g CheckGuard
	var got servicecontrol.Status
	calls := 0

	g.Arm(func(st servicecontrol.Status) {
		calls++
		got = st
	})
	assert.True(t, g.Armed())

	g.Complete(servicecontrol.NewStatus(codes.PermissionDenied, "denied"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, codes.PermissionDenied, got.Code())
	assert.False(t, g.Armed())
}

func TestCheckGuard_ContractViolations(t *testing.T) {
	t.Parallel()

	t.Run("Complete while idle", func(t *testing.T) {
		t.Parallel()
		var g CheckGuard
		cv := contractViolation(t, func() { g.Complete(servicecontrol.OK()) })
		assert.Contains(t, cv.Error(), "not armed")
	})

	t.Run("Complete twice", func(t *testing.T) {
		t.Parallel()
		var g CheckGuard
		calls := 0
		g.Arm(func(servicecontrol.Status) { calls++ })
		g.Complete(servicecontrol.OK())
		contractViolation(t, func() { g.Complete(servicecontrol.OK()) })
		assert.Equal(t, 1, calls)
	})

	t.Run("Arm while armed", func(t *testing.T) {
		t.Parallel()
		var g CheckGuard
		g.Arm(func(servicecontrol.Status) {})
		cv := contractViolation(t, func() { g.Arm(func(servicecontrol.Status) {}) })
		assert.Contains(t, cv.Error(), "armed twice")
	})

	t.Run("Nil continuation", func(t *testing.T) {
		t.Parallel()
		var g CheckGuard
		contractViolation(t, func() { g.Arm(nil) })
		assert.False(t, g.Armed())
	})
}

func TestCheckGuard_Rearm(t *testing.T) {
	t.Parallel()

	var g CheckGuard
	var calls atomic.Int32
	for range 3 {
		g.Arm(func(servicecontrol.Status) { calls.Add(1) })
		g.Complete(servicecontrol.OK())
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestCheckGuard_ConcurrentCompleters(t *testing.T) {
	t.Parallel()

	var g CheckGuard
	var calls, panics atomic.Int32
	g.Arm(func(servicecontrol.Status) { calls.Add(1) })

	const n = 16
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panics.Add(1)
				}
			}()
			g.Complete(servicecontrol.OK())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(n-1), panics.Load())
}
