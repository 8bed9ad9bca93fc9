// Command lifecycle-demo walks one event through the full participation
// flow: load, join, vote, voting close, booking confirm, commit. Without a
// configured GATEWAY_URL it runs against the in-process stub gateway.
package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"linkup/client/internal/config"
	"linkup/client/internal/gateway"
	"linkup/client/internal/lifecycle"
	"linkup/client/internal/logging"
	"linkup/client/internal/models"
	"linkup/client/internal/stub"
	"linkup/client/internal/votecache"

	"github.com/joho/godotenv"
)

const demoEventID = "evt-demo"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("log error: %v", err)
	}
	defer func() {
		_ = cleanup()
	}()
	logger = logger.With("service", "lifecycle-demo")
	slog.SetDefault(logger)

	baseURL := cfg.GatewayURL
	token := cfg.AuthToken
	eventID := os.Getenv("EVENT_ID")
	if eventID == "" {
		eventID = demoEventID
	}

	var stubServer *stub.Server
	if baseURL == "" {
		stubServer = stub.NewServer(demoEvent(eventID), "demo-secret")
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logger.Error("stub_listen_error", "error", err)
			os.Exit(1)
		}
		srv := &http.Server{Handler: stubServer.Handler()}
		go func() {
			_ = srv.Serve(listener)
		}()
		defer srv.Close()
		baseURL = "http://" + listener.Addr().String()
		token, err = stubServer.SignToken("demo-user", time.Hour)
		if err != nil {
			logger.Error("stub_token_error", "error", err)
			os.Exit(1)
		}
		logger.Info("stub_gateway_started", "url", baseURL)
	}

	cache, err := votecache.OpenSQLite(cfg.VoteCachePath)
	if err != nil {
		logger.Error("vote_cache_error", "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	client := gateway.NewClient(gateway.Config{BaseURL: baseURL}, gateway.NewTokenSource(token, nil), nil, logger)

	ctrl := lifecycle.NewController(eventID, client, lifecycle.Options{
		Logger:       logger,
		Cache:        cache,
		ChatLimit:    cfg.ChatPageSize,
		PollInterval: cfg.PollInterval,
		OnChange: func(snap lifecycle.Snapshot) {
			logger.Info("snapshot",
				"state", string(snap.State),
				"countdown", snap.Countdown,
				"selected_plan", snap.SelectedPlanID,
				"messages", len(snap.Messages))
		},
	})
	defer ctrl.Close()

	ctx := context.Background()
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			logger.Error("step_failed", "step", name, "error", err)
			os.Exit(1)
		}
		logger.Info("step_done", "step", name)
	}

	step("load", func() error { return ctrl.Load(ctx) })
	step("join", func() error { return ctrl.Join(ctx) })
	step("vote", func() error { return ctrl.Vote(ctx, "p2") })
	step("chat", func() error { return ctrl.SendChat(ctx, "see you there") })

	if stubServer != nil {
		stubServer.CloseVoting("p2")
	}
	step("reload", func() error { return ctrl.Load(ctx) })
	step("confirm_booking", func() error { return ctrl.ConfirmBooking(ctx, "ref-42") })
	step("commit", func() error { return ctrl.Commit(ctx, models.CommitIn) })

	logger.Info("demo_done", "final_state", string(ctrl.Snapshot().State))
}

func demoEvent(eventID string) models.EventDetail {
	return models.EventDetail{
		ID:          eventID,
		Title:       "Friday ramen night",
		Description: "Pick a spot, then show up.",
		VenueName:   "TBD by vote",
		StartsAt:    time.Now().Add(24 * time.Hour),
		VotingState: models.VotingNotStarted,
		Tags:        []string{"food", "friday"},
		Plans: []models.EventPlan{
			{ID: "p1", EventID: eventID, Title: "Ichiran downtown", Emoji: "🍜", Votes: 3},
			{ID: "p2", EventID: eventID, Title: "Menya back alley", Emoji: "🍥", Votes: 1},
		},
		Participants: []models.Participant{
			{UserID: "u-ada", Name: "Ada", JoinedAt: time.Now().Add(-time.Hour)},
			{UserID: "u-lin", Name: "Lin", JoinedAt: time.Now().Add(-30 * time.Minute)},
		},
	}
}
