package models

import "time"

// VotingState is the server-reported voting window state for an event.
type VotingState string

const (
	VotingNotStarted VotingState = "NOT_STARTED"
	VotingOpen       VotingState = "OPEN"
	VotingClosed     VotingState = "CLOSED"
)

type EventDetail struct {
	ID             string        `json:"id" validate:"required"`
	Title          string        `json:"title" validate:"required"`
	Description    string        `json:"description,omitempty"`
	ImageURL       string        `json:"imageUrl,omitempty"`
	VenueName      string        `json:"venueName,omitempty"`
	Address        string        `json:"address,omitempty"`
	Lat            float64       `json:"lat"`
	Lng            float64       `json:"lng"`
	StartsAt       time.Time     `json:"startsAt"`
	EndsAt         *time.Time    `json:"endsAt,omitempty"`
	VotingState    VotingState   `json:"votingState" validate:"required,oneof=NOT_STARTED OPEN CLOSED"`
	VotingEndsAt   *time.Time    `json:"votingEndsAt,omitempty"`
	SelectedPlanID string        `json:"selectedPlanId,omitempty"`
	Tags           []string      `json:"tags,omitempty"`
	Plans          []EventPlan   `json:"plans,omitempty"`
	IsMember       bool          `json:"isMember"`
	Participants   []Participant `json:"participants,omitempty"`
}

type EventPlan struct {
	ID          string `json:"id"`
	EventID     string `json:"eventId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Emoji       string `json:"emoji,omitempty"`
	Votes       int    `json:"votes"`
	IsSelected  bool   `json:"isSelected"`
}

type Participant struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	PhotoURL string    `json:"photoUrl,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// BookingInfo is the member's booking/commit status once voting has closed.
type BookingInfo struct {
	ExternalBookingURL string     `json:"externalBookingUrl,omitempty"`
	SelectedPlan       *EventPlan `json:"selectedPlan,omitempty"`
	IsBooked           bool       `json:"isBooked"`
	IsCommitted        bool       `json:"isCommitted"`
}

type MemberStatus struct {
	Status        string `json:"status"`
	BookingStatus string `json:"bookingStatus,omitempty"`
}

type VotingStatus struct {
	State  VotingState `json:"state"`
	EndsAt *time.Time  `json:"endsAt,omitempty"`
}

// JoinResult is the payload returned by the join endpoint.
type JoinResult struct {
	Member MemberStatus `json:"member"`
	Voting VotingStatus `json:"voting"`
}

type CommitDecision string

const (
	CommitIn  CommitDecision = "IN"
	CommitOut CommitDecision = "OUT"
)

type MessageKind string

const (
	MessageChat    MessageKind = "CHAT"
	MessageSystem  MessageKind = "SYSTEM"
	MessageVote    MessageKind = "VOTE"
	MessageBooking MessageKind = "BOOKING"
)

type ChatMessage struct {
	ID        string      `json:"id"`
	EventID   string      `json:"eventId"`
	UserID    string      `json:"userId,omitempty"`
	Kind      MessageKind `json:"kind"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"createdAt"`
}

type ChatPage struct {
	Items      []ChatMessage `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// PlanShares returns each plan's share of the total vote count, keyed by plan
// id. The denominator is floored at 1 so an event with no votes yet reports
// zero shares instead of dividing by zero.
func PlanShares(plans []EventPlan) map[string]float64 {
	total := 0
	for _, plan := range plans {
		total += plan.Votes
	}
	if total < 1 {
		total = 1
	}
	shares := make(map[string]float64, len(plans))
	for _, plan := range plans {
		shares[plan.ID] = float64(plan.Votes) / float64(total)
	}
	return shares
}
