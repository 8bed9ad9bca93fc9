// Package stub is a deterministic in-process event gateway used by
// integration tests and the demo binary. It implements the same HTTP/JSON
// surface the real backend exposes and offers direct mutators so tests can
// push the event through its voting window.
package stub

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"linkup/client/internal/models"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

type Server struct {
	secret   string
	validate *validator.Validate
	router   chi.Router

	mu        sync.Mutex
	event     models.EventDetail
	booking   models.BookingInfo
	messages  []models.ChatMessage
	decision  models.CommitDecision
	nextMsgID int
}

func NewServer(event models.EventDetail, secret string) *Server {
	s := &Server{
		secret:    secret,
		validate:  validator.New(),
		event:     event,
		nextMsgID: 1,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(s.authMiddleware)
	r.Route("/events/{id}", func(r chi.Router) {
		r.Get("/", s.getEvent)
		r.Post("/join", s.join)
		r.Post("/leave", s.leave)
		r.Get("/plans", s.listPlans)
		r.Post("/plans/{planId}/vote", s.vote)
		r.Get("/booking", s.getBooking)
		r.Post("/booking/confirm", s.confirmBooking)
		r.Post("/commit", s.commit)
		r.Get("/chat", s.listChat)
		r.Post("/chat", s.sendChat)
	})
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// SignToken mints a short-lived bearer token the stub will accept.
func (s *Server) SignToken(userID string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// CloseVoting flips the event to CLOSED and marks the winning plan, the way
// the real backend does when the window expires.
func (s *Server) CloseVoting(selectedPlanID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.event.VotingState = models.VotingClosed
	s.event.SelectedPlanID = selectedPlanID
	for i := range s.event.Plans {
		s.event.Plans[i].IsSelected = s.event.Plans[i].ID == selectedPlanID
	}
}

// SetBooking overrides the booking info the stub serves.
func (s *Server) SetBooking(info models.BookingInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.booking = info
}

// Decision returns the last commit decision received, if any.
func (s *Server) Decision() models.CommitDecision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decision
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeError(w, http.StatusUnauthorized, "invalid Authorization")
			return
		}
		_, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(s.secret), nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireEvent(w http.ResponseWriter, r *http.Request) bool {
	if chi.URLParam(r, "id") != s.event.ID {
		writeError(w, http.StatusNotFound, "event not found")
		return false
	}
	return true
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireEvent(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, s.event)
}

func (s *Server) join(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireEvent(w, r) {
		return
	}
	s.event.IsMember = true
	if s.event.VotingState == models.VotingNotStarted {
		s.event.VotingState = models.VotingOpen
		if s.event.VotingEndsAt == nil {
			endsAt := time.Now().Add(2 * time.Minute)
			s.event.VotingEndsAt = &endsAt
		}
	}
	writeJSON(w, http.StatusOK, models.JoinResult{
		Member: models.MemberStatus{Status: "JOINED"},
		Voting: models.VotingStatus{State: s.event.VotingState, EndsAt: s.event.VotingEndsAt},
	})
}

func (s *Server) leave(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireEvent(w, r) {
		return
	}
	s.event.IsMember = false
	s.event.SelectedPlanID = ""
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireEvent(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, s.event.Plans)
}

func (s *Server) vote(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireEvent(w, r) {
		return
	}
	if s.event.VotingState != models.VotingOpen {
		writeError(w, http.StatusConflict, "voting is not open")
		return
	}
	planID := chi.URLParam(r, "planId")
	for i := range s.event.Plans {
		if s.event.Plans[i].ID == planID {
			s.event.Plans[i].Votes++
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
			return
		}
	}
	writeError(w, http.StatusNotFound, "plan not found")
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireEvent(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, s.booking)
}

type confirmBookingRequest struct {
	BookingRef string `json:"bookingRef" validate:"omitempty,max=128"`
}

func (s *Server) confirmBooking(w http.ResponseWriter, r *http.Request) {
	var req confirmBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking ref")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireEvent(w, r) {
		return
	}
	if s.event.VotingState != models.VotingClosed {
		writeError(w, http.StatusConflict, "voting is still open")
		return
	}
	s.booking.IsBooked = true
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type commitRequest struct {
	Decision models.CommitDecision `json:"decision" validate:"required,oneof=IN OUT"`
}

func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid decision")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireEvent(w, r) {
		return
	}
	if !s.booking.IsBooked {
		writeError(w, http.StatusConflict, "not booked")
		return
	}
	s.decision = req.Decision
	s.booking.IsCommitted = req.Decision == models.CommitIn
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) listChat(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireEvent(w, r) {
		return
	}
	items := make([]models.ChatMessage, len(s.messages))
	copy(items, s.messages)
	writeJSON(w, http.StatusOK, models.ChatPage{Items: items})
}

type sendChatRequest struct {
	Text string `json:"text" validate:"required"`
}

func (s *Server) sendChat(w http.ResponseWriter, r *http.Request) {
	var req sendChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "empty text")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.requireEvent(w, r) {
		return
	}
	msg := models.ChatMessage{
		ID:        fmt.Sprintf("msg-%d", s.nextMsgID),
		EventID:   s.event.ID,
		Kind:      models.MessageChat,
		Text:      req.Text,
		CreatedAt: time.Now().UTC(),
	}
	s.nextMsgID++
	s.messages = append(s.messages, msg)
	writeJSON(w, http.StatusOK, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
