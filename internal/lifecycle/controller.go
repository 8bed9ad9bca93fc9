package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"linkup/client/internal/chat"
	"linkup/client/internal/models"
	"linkup/client/internal/votecache"
)

const (
	defaultCountdownInterval = time.Second
	defaultPollInterval      = 10 * time.Second
	defaultLoadTimeout       = 15 * time.Second
)

// Gateway is the remote surface the controller drives. *gateway.Client
// implements it; tests substitute a fake.
type Gateway interface {
	GetEvent(ctx context.Context, eventID string) (models.EventDetail, error)
	Join(ctx context.Context, eventID string) (models.JoinResult, error)
	Leave(ctx context.Context, eventID string) error
	Vote(ctx context.Context, eventID, planID string) error
	ListPlans(ctx context.Context, eventID string) ([]models.EventPlan, error)
	BookingInfo(ctx context.Context, eventID string) (models.BookingInfo, error)
	ConfirmBooking(ctx context.Context, eventID, bookingRef string) error
	Commit(ctx context.Context, eventID string, decision models.CommitDecision) error
	chat.Service
}

// Snapshot is the read-only view the render layer consumes.
type Snapshot struct {
	State          State
	Event          models.EventDetail
	Plans          []models.EventPlan
	SelectedPlanID string
	Countdown      string
	Messages       []models.ChatMessage
}

type Options struct {
	Logger            *slog.Logger
	Cache             votecache.Cache
	ChatLimit         int
	CountdownInterval time.Duration
	PollInterval      time.Duration
	LoadTimeout       time.Duration
	Now               func() time.Time
	// OnChange is invoked with a fresh snapshot after every applied change.
	OnChange func(Snapshot)
}

// Controller owns the participation state for one event instance. One
// controller per event id per process; views are pure renderers of its
// snapshots.
type Controller struct {
	gw          Gateway
	cache       votecache.Cache
	logger      *slog.Logger
	eventID     string
	now         func() time.Time
	onChange    func(Snapshot)
	feed        *chat.Feed
	sched       *scheduler
	loadTimeout time.Duration

	mu             sync.Mutex
	state          State
	event          models.EventDetail
	plans          []models.EventPlan
	selectedPlanID string
	countdown      string
	votingEndsAt   *time.Time
	issuedSeq      uint64
	appliedSeq     uint64
	closed         bool
}

func NewController(eventID string, gw Gateway, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := opts.Cache
	if cache == nil {
		cache = votecache.NewMemory()
	}
	countdownEvery := opts.CountdownInterval
	if countdownEvery <= 0 {
		countdownEvery = defaultCountdownInterval
	}
	pollEvery := opts.PollInterval
	if pollEvery <= 0 {
		pollEvery = defaultPollInterval
	}
	loadTimeout := opts.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		gw:          gw,
		cache:       cache,
		logger:      logger.With("event_id", eventID),
		eventID:     eventID,
		now:         now,
		onChange:    opts.OnChange,
		feed:        chat.NewFeed(gw, eventID, opts.ChatLimit),
		loadTimeout: loadTimeout,
		state:       StatePreJoin,
		countdown:   FormatCountdown(0),
	}
	c.sched = newScheduler(countdownEvery, pollEvery, c.countdownTick, c.pollTick)
	return c
}

// Load fetches the event detail and re-derives the state. It is safe to call
// concurrently: each call takes a sequence number and a response only applies
// if nothing newer has landed, so racing ticker and user loads settle on the
// latest one.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.issuedSeq++
	seq := c.issuedSeq
	c.mu.Unlock()

	detail, err := c.gw.GetEvent(ctx, c.eventID)
	if err != nil {
		return &ActionError{Kind: KindLoadFailed, Err: err}
	}

	// Booking flags only exist once voting is no longer open; a failed fetch
	// is swallowed and reads as neither booked nor committed.
	isBooked, isCommitted := false, false
	if detail.IsMember && detail.VotingState != models.VotingOpen {
		info, err := c.gw.BookingInfo(ctx, c.eventID)
		if err != nil {
			c.logger.Warn("booking_info_error", "error", err)
		} else {
			isBooked, isCommitted = info.IsBooked, info.IsCommitted
		}
	}

	// Prefer the server's echoed selection; fall back to the local cache
	// while the vote window is still open.
	selected := detail.SelectedPlanID
	if selected == "" && detail.VotingState == models.VotingOpen {
		if planID, ok, err := c.cache.Get(ctx, c.eventID); err == nil && ok {
			selected = planID
		}
	}
	if detail.VotingState == models.VotingClosed {
		if err := c.cache.Clear(ctx, c.eventID); err != nil {
			c.logger.Debug("vote_cache_clear_error", "error", err)
		}
	}

	state := Derive(detail.IsMember, detail.VotingState, isBooked, isCommitted)

	c.mu.Lock()
	if c.closed || seq <= c.appliedSeq {
		c.mu.Unlock()
		return nil
	}
	c.appliedSeq = seq
	c.state = state
	c.event = detail
	c.plans = detail.Plans
	c.selectedPlanID = selected
	c.votingEndsAt = detail.VotingEndsAt
	c.refreshCountdownLocked()
	c.armSchedulerLocked()
	c.mu.Unlock()

	// Chat rides along on every post-join load; a failure degrades to an
	// empty list and the lifecycle keeps going.
	if state != StatePreJoin {
		if err := c.feed.Load(ctx); err != nil {
			c.logger.Warn("chat_load_error", "kind", string(KindChatLoadFailed), "error", err)
		}
	}

	c.notify()
	return nil
}

// Join is valid only from PRE_JOIN; anywhere else it is a no-op.
func (c *Controller) Join(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StatePreJoin {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("join_skipped", "state", string(state))
		return nil
	}
	c.mu.Unlock()

	result, err := c.gw.Join(ctx, c.eventID)
	if err != nil {
		return &ActionError{Kind: KindRemoteActionFailed, Err: err}
	}

	c.mu.Lock()
	c.bumpLocked()
	c.state = StateVotingOpen
	c.votingEndsAt = result.Voting.EndsAt
	c.refreshCountdownLocked()
	// Arm the tickers here, not just in the reload: if the follow-up Load
	// fails, the poll ticker is still what brings the view back in sync.
	c.armSchedulerLocked()
	c.mu.Unlock()
	c.notify()

	// Full reload picks up the authoritative voting window, plans and chat.
	return c.Load(ctx)
}

// Leave returns a member to PRE_JOIN while voting is still open.
func (c *Controller) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateVotingOpen {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("leave_skipped", "state", string(state))
		return nil
	}
	c.mu.Unlock()

	if err := c.gw.Leave(ctx, c.eventID); err != nil {
		return &ActionError{Kind: KindRemoteActionFailed, Err: err}
	}

	if err := c.cache.Clear(ctx, c.eventID); err != nil {
		c.logger.Debug("vote_cache_clear_error", "error", err)
	}

	c.mu.Lock()
	c.bumpLocked()
	c.state = StatePreJoin
	c.plans = nil
	c.selectedPlanID = ""
	c.votingEndsAt = nil
	c.refreshCountdownLocked()
	c.armSchedulerLocked()
	c.mu.Unlock()
	c.notify()
	return nil
}

// Vote records the member's one-time plan choice. Once a selection is set,
// from the server echo or the local cache, further calls are silent no-ops
// and never reach the network.
func (c *Controller) Vote(ctx context.Context, planID string) error {
	c.mu.Lock()
	if c.state != StateVotingOpen || c.selectedPlanID != "" {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.gw.Vote(ctx, c.eventID, planID); err != nil {
		return &ActionError{Kind: KindRemoteActionFailed, Err: err}
	}

	if err := c.cache.Set(ctx, c.eventID, planID); err != nil {
		c.logger.Warn("vote_cache_write_error", "error", err)
	}

	c.mu.Lock()
	c.selectedPlanID = planID
	c.mu.Unlock()

	// Refresh the counts; the top-level state is not re-derived here.
	plans, err := c.gw.ListPlans(ctx, c.eventID)
	if err != nil {
		c.logger.Warn("plans_refresh_error", "error", err)
	} else {
		c.mu.Lock()
		c.plans = plans
		c.mu.Unlock()
	}
	c.notify()
	return nil
}

// BookingInfo exposes the booking details for the confirmation screen. It
// needs VOTING_CLOSED; other states have no booking to show.
func (c *Controller) BookingInfo(ctx context.Context) (models.BookingInfo, error) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateVotingClosed {
		return models.BookingInfo{}, fmt.Errorf("booking info in state %s: %w", state, ErrInvalidTransition)
	}
	info, err := c.gw.BookingInfo(ctx, c.eventID)
	if err != nil {
		return models.BookingInfo{}, &ActionError{Kind: KindRemoteActionFailed, Err: err}
	}
	return info, nil
}

// ConfirmBooking is valid only from VOTING_CLOSED; on success the state moves
// to BOOKED and a full reload runs.
func (c *Controller) ConfirmBooking(ctx context.Context, bookingRef string) error {
	c.mu.Lock()
	if c.state != StateVotingClosed {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("confirm_booking_skipped", "state", string(state))
		return nil
	}
	c.mu.Unlock()

	if err := c.gw.ConfirmBooking(ctx, c.eventID, bookingRef); err != nil {
		return &ActionError{Kind: KindRemoteActionFailed, Err: err}
	}

	c.mu.Lock()
	c.bumpLocked()
	c.state = StateBooked
	c.mu.Unlock()
	c.notify()

	return c.Load(ctx)
}

// Commit is valid only from BOOKED: IN lands on COMMITTED, OUT on
// CANT_MAKE_IT. Both are terminal; calls from a terminal state are no-ops.
func (c *Controller) Commit(ctx context.Context, decision models.CommitDecision) error {
	if decision != models.CommitIn && decision != models.CommitOut {
		return fmt.Errorf("invalid commit decision %q", decision)
	}

	c.mu.Lock()
	if c.state != StateBooked {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("commit_skipped", "state", string(state), "decision", string(decision))
		return nil
	}
	c.mu.Unlock()

	if err := c.gw.Commit(ctx, c.eventID, decision); err != nil {
		return &ActionError{Kind: KindRemoteActionFailed, Err: err}
	}

	c.mu.Lock()
	c.bumpLocked()
	if decision == models.CommitIn {
		c.state = StateCommitted
	} else {
		c.state = StateCantMakeIt
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// SendChat posts to the event room. Before joining there is no room, so the
// call is a no-op; empty text is handled inside the feed.
func (c *Controller) SendChat(ctx context.Context, text string) error {
	c.mu.Lock()
	joined := c.state != StatePreJoin
	c.mu.Unlock()
	if !joined {
		return nil
	}
	if err := c.feed.Send(ctx, text); err != nil {
		return &ActionError{Kind: KindChatSendFailed, Err: err}
	}
	c.notify()
	return nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	snap := Snapshot{
		State:          c.state,
		Event:          c.event,
		Plans:          append([]models.EventPlan(nil), c.plans...),
		SelectedPlanID: c.selectedPlanID,
		Countdown:      c.countdown,
	}
	c.mu.Unlock()
	snap.Messages = c.feed.Messages()
	return snap
}

// Close cancels both tickers and freezes the controller. In-flight HTTP calls
// are not cancelled; their responses are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.sched.disarm()
}

// bumpLocked fences off in-flight loads issued before a direct transition so
// a stale response cannot roll the state back.
func (c *Controller) bumpLocked() {
	c.issuedSeq++
	c.appliedSeq = c.issuedSeq
}

func (c *Controller) refreshCountdownLocked() {
	c.countdown = FormatCountdown(remainingSeconds(c.votingEndsAt, c.now()))
}

// armSchedulerLocked aligns the tickers with the current state while c.mu is
// held, so a concurrent transition cannot leave a stale ticker behind.
func (c *Controller) armSchedulerLocked() {
	if c.state != StateVotingOpen {
		c.sched.disarm()
		return
	}
	c.sched.ensurePoll()
	if c.votingEndsAt != nil && remainingSeconds(c.votingEndsAt, c.now()) > 0 {
		c.sched.ensureCountdown()
	}
}

func (c *Controller) countdownTick() {
	c.mu.Lock()
	if c.closed || c.state != StateVotingOpen {
		c.mu.Unlock()
		return
	}
	c.refreshCountdownLocked()
	expired := remainingSeconds(c.votingEndsAt, c.now()) == 0
	c.mu.Unlock()
	c.notify()

	if !expired {
		return
	}
	// Natural expiry: stop counting and run one load to observe the close.
	c.sched.stopCountdown()
	ctx, cancel := context.WithTimeout(context.Background(), c.loadTimeout)
	defer cancel()
	if err := c.Load(ctx); err != nil {
		c.logger.Warn("countdown_expiry_load_error", "error", err)
	}
}

func (c *Controller) pollTick() {
	ctx, cancel := context.WithTimeout(context.Background(), c.loadTimeout)
	defer cancel()
	if err := c.Load(ctx); err != nil {
		c.logger.Warn("poll_load_error", "error", err)
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.Snapshot())
	}
}
