package astm

import "sync/atomic"

// OpState is the lifecycle state of a Link.
type OpState uint32

const (
	ClosedState OpState = iota
	ClosingState
	OpeningState
	OpenedState
)

func (s OpState) String() string {
	switch s {
	case ClosedState:
		return "Closed"
	case ClosingState:
		return "Closing"
	case OpeningState:
		return "Opening"
	case OpenedState:
		return "Opened"
	default:
		return "Unknown"
	}
}

// atomicOpState is an OpState with compare-and-swap transitions
// Closed → Opening → Opened → Closing → Closed.
type atomicOpState struct {
	state atomic.Uint32
}

func (st *atomicOpState) String() string {
	return st.Get().String()
}

// Get returns the current state.
func (st *atomicOpState) Get() OpState {
	return OpState(st.state.Load())
}

func (st *atomicOpState) IsClosed() bool {
	return st.Get() == ClosedState
}

func (st *atomicOpState) IsOpened() bool {
	return st.Get() == OpenedState
}

func (st *atomicOpState) ToOpening() bool {
	return st.state.CompareAndSwap(uint32(ClosedState), uint32(OpeningState))
}

func (st *atomicOpState) ToOpened() bool {
	if st.IsOpened() {
		return true
	}

	return st.state.CompareAndSwap(uint32(OpeningState), uint32(OpenedState))
}

func (st *atomicOpState) ToClosing() bool {
	result := st.state.CompareAndSwap(uint32(OpenedState), uint32(ClosingState))
	if !result {
		return st.state.CompareAndSwap(uint32(OpeningState), uint32(ClosingState))
	}

	return result
}

func (st *atomicOpState) ToClosed() bool {
	if st.IsClosed() {
		return true
	}

	return st.state.CompareAndSwap(uint32(ClosingState), uint32(ClosedState))
}
