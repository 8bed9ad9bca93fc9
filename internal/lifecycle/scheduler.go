package lifecycle

import (
	"sync"
	"time"
)

// scheduler owns the two VOTING_OPEN tickers: the 1 s countdown and the 10 s
// poll. Each can be started idempotently and both are cancelled together when
// the state is left.
type scheduler struct {
	countdownEvery time.Duration
	pollEvery      time.Duration
	onCountdown    func()
	onPoll         func()

	mu            sync.Mutex
	countdownStop chan struct{}
	pollStop      chan struct{}
}

func newScheduler(countdownEvery, pollEvery time.Duration, onCountdown, onPoll func()) *scheduler {
	return &scheduler{
		countdownEvery: countdownEvery,
		pollEvery:      pollEvery,
		onCountdown:    onCountdown,
		onPoll:         onPoll,
	}
}

func (s *scheduler) ensureCountdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdownStop != nil {
		return
	}
	s.countdownStop = make(chan struct{})
	go s.run(s.countdownEvery, s.countdownStop, s.onCountdown)
}

func (s *scheduler) ensurePoll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pollStop != nil {
		return
	}
	s.pollStop = make(chan struct{})
	go s.run(s.pollEvery, s.pollStop, s.onPoll)
}

// stopCountdown cancels only the countdown ticker; the poll ticker keeps
// running until the state exits VOTING_OPEN.
func (s *scheduler) stopCountdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdownStop != nil {
		close(s.countdownStop)
		s.countdownStop = nil
	}
}

func (s *scheduler) disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdownStop != nil {
		close(s.countdownStop)
		s.countdownStop = nil
	}
	if s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
}

func (s *scheduler) run(every time.Duration, stop chan struct{}, fire func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fire()
		}
	}
}
