package voucher

// LifecycleState is the primary voucher state. Suspension and an in-flight
// transfer are orthogonal flags, not states.
type LifecycleState string

const (
	StateIssued   LifecycleState = "issued"
	StateLocked   LifecycleState = "locked"
	StateRedeemed LifecycleState = "redeemed"
)

// IsTerminal returns true for states with no outgoing transitions.
func (s LifecycleState) IsTerminal() bool {
	return s == StateRedeemed
}

// LifecycleEvent names a requested lifecycle transition.
type LifecycleEvent string

const (
	EventLock   LifecycleEvent = "lock"
	EventRedeem LifecycleEvent = "redeem"
)

// transitionKey identifies one edge of the lifecycle graph.
type transitionKey struct {
	from  LifecycleState
	event LifecycleEvent
}

// transitions is the full lifecycle graph in one place. Every state change
// goes through Apply, which consults only this table, so the set of legal
// transitions is visible and testable here rather than scattered across
// entity methods.
var transitions = map[transitionKey]LifecycleState{
	{StateIssued, EventLock}:   StateLocked,
	{StateLocked, EventRedeem}: StateRedeemed,
}

// NextState returns the target state for (from, event), or false when the
// edge does not exist.
func NextState(from LifecycleState, event LifecycleEvent) (LifecycleState, bool) {
	to, ok := transitions[transitionKey{from, event}]
	return to, ok
}

// LifecycleEvents returns the events defined on the transition table.
func LifecycleEvents() []LifecycleEvent {
	return []LifecycleEvent{EventLock, EventRedeem}
}
