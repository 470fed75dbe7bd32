package domain

import (
	"fmt"
	"time"
)

// OrderState is the lifecycle state of an order.
type OrderState string

const (
	StatePaymentAuthorized          OrderState = "PaymentAuthorized"
	StatePaymentSettled             OrderState = "PaymentSettled"
	StatePartiallyShipped           OrderState = "PartiallyShipped"
	StateShipped                    OrderState = "Shipped"
	StatePartiallyDelivered         OrderState = "PartiallyDelivered"
	StateDelivered                  OrderState = "Delivered"
	StateModifying                  OrderState = "Modifying"
	StateArrangingAdditionalPayment OrderState = "ArrangingAdditionalPayment"
	StateCancelled                  OrderState = "Cancelled"
)

// StateTransition is one entry in an order's transition history.
type StateTransition struct {
	From OrderState
	To   OrderState
	At   time.Time
}

// ErrInvalidTransition is wrapped by transition errors so callers can
// detect a rejected transition with errors.Is.
var ErrInvalidTransition = &Error{Code: ECONFLICT, Message: "Invalid order state transition"}

// modifiableStates are the states from which an operator may enter
// modification. Terminal and in-flight payment states are excluded.
var modifiableStates = map[OrderState]bool{
	StatePaymentAuthorized:  true,
	StatePaymentSettled:     true,
	StatePartiallyShipped:   true,
	StateShipped:            true,
	StatePartiallyDelivered: true,
	StateDelivered:          true,
}

// StateMachine validates and executes order state transitions.
type StateMachine struct {
	transitions map[OrderState][]OrderState
}

// NewStateMachine creates the order state machine. Modification is
// reachable from any modifiable state, and leaving Modifying may target
// ArrangingAdditionalPayment or any of the states modification was
// entered from (the net-zero/refund path restores the prior state).
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: map[OrderState][]OrderState{
			StatePaymentAuthorized: {StatePaymentSettled, StateCancelled},
			StatePaymentSettled:    {StatePartiallyShipped, StateShipped, StateCancelled},
			StatePartiallyShipped:  {StateShipped, StateCancelled},
			StateShipped:           {StatePartiallyDelivered, StateDelivered},
			StatePartiallyDelivered: {StateDelivered},
			StateDelivered:          {},
			StateModifying:          {StateArrangingAdditionalPayment},
			StateArrangingAdditionalPayment: {StatePaymentSettled, StateCancelled},
			StateCancelled:                  {},
		},
	}
	for from := range modifiableStates {
		sm.transitions[from] = append(sm.transitions[from], StateModifying)
		sm.transitions[StateModifying] = append(sm.transitions[StateModifying], from)
	}
	return sm
}

// CanTransition reports whether from -> to is a legal transition.
func (sm *StateMachine) CanTransition(from, to OrderState) bool {
	for _, s := range sm.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the order to a new state and appends a history entry.
// Returns an error wrapping ErrInvalidTransition when the move is not
// permitted; the order is left untouched in that case.
func (sm *StateMachine) Transition(order *Order, to OrderState) error {
	if !sm.CanTransition(order.State, to) {
		return &Error{
			Code:    ECONFLICT,
			Op:      "order.transition",
			Message: fmt.Sprintf("Cannot transition order from %s to %s", order.State, to),
			Err:     ErrInvalidTransition,
		}
	}
	order.History = append(order.History, StateTransition{
		From: order.State,
		To:   to,
		At:   time.Now().UTC(),
	})
	order.State = to
	return nil
}

// Modifiable reports whether modification may be entered from the state.
func Modifiable(s OrderState) bool {
	return modifiableStates[s]
}
