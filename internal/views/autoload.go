package views

import "go.uber.org/atomic"

// AutoLoadState records whether the one automatic model load was used.
type AutoLoadState int32

const (
	AutoLoadNotAttempted AutoLoadState = iota
	AutoLoadAttempted
)

func (s AutoLoadState) String() string {
	if s == AutoLoadAttempted {
		return "attempted"
	}
	return "not_attempted"
}

func (s AutoLoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AutoLoadGuard moves from NotAttempted to Attempted exactly once.
type AutoLoadGuard struct {
	state atomic.Int32
}

// TryAcquire consumes the guard. Only the first caller gets true.
func (g *AutoLoadGuard) TryAcquire() bool {
	return g.state.CompareAndSwap(int32(AutoLoadNotAttempted), int32(AutoLoadAttempted))
}

func (g *AutoLoadGuard) State() AutoLoadState {
	return AutoLoadState(g.state.Load())
}
