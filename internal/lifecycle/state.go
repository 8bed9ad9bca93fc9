// Package lifecycle drives a member through an event's participation flow:
// join, vote on a plan, confirm the booking, commit to attendance.
package lifecycle

import "linkup/client/internal/models"

// State is derived from server fields on every load; it is never persisted
// on its own.
type State string

const (
	StatePreJoin      State = "PRE_JOIN"
	StateVotingOpen   State = "VOTING_OPEN"
	StateVotingClosed State = "VOTING_CLOSED"
	StateBooked       State = "BOOKED"
	StateCommitted    State = "COMMITTED"
	StateCantMakeIt   State = "CANT_MAKE_IT"
)

// Derive maps the server's membership, voting and booking fields to exactly
// one State. isBooked/isCommitted come from booking info and only matter once
// voting is no longer open; isCommitted overrides isBooked.
func Derive(isMember bool, voting models.VotingState, isBooked, isCommitted bool) State {
	if !isMember {
		return StatePreJoin
	}
	if voting == models.VotingOpen {
		return StateVotingOpen
	}
	if isCommitted {
		return StateCommitted
	}
	if isBooked {
		return StateBooked
	}
	return StateVotingClosed
}
