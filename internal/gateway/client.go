package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"linkup/client/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const defaultChatLimit = 50

type Config struct {
	BaseURL string
}

// Client talks HTTP/JSON to the event gateway. Every call carries a bearer
// token; a 401 invalidates the cached token and the call is retried exactly
// once with a fresh one.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenSource
	limiter    *rate.Limiter
	validate   *validator.Validate
	logger     *slog.Logger
	newID      func() string
}

func NewClient(cfg Config, tokens *TokenSource, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: httpClient,
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		validate:   validator.New(),
		logger:     logger,
		newID:      uuid.NewString,
	}
}

func (c *Client) GetEvent(ctx context.Context, eventID string) (models.EventDetail, error) {
	var out models.EventDetail
	body, err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID), nil)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode event response: %w", err)
	}
	if err := c.validate.Struct(out); err != nil {
		return out, fmt.Errorf("invalid event payload: %w", err)
	}
	return out, nil
}

func (c *Client) Join(ctx context.Context, eventID string) (models.JoinResult, error) {
	var out models.JoinResult
	body, err := c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/join", nil)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode join response: %w", err)
	}
	return out, nil
}

func (c *Client) Leave(ctx context.Context, eventID string) error {
	_, err := c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/leave", nil)
	return err
}

func (c *Client) Vote(ctx context.Context, eventID, planID string) error {
	pathPart := "/events/" + url.PathEscape(eventID) + "/plans/" + url.PathEscape(planID) + "/vote"
	body, err := c.do(ctx, http.MethodPost, pathPart, nil)
	if err != nil {
		return err
	}
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode vote response: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("vote not acknowledged")
	}
	return nil
}

func (c *Client) ListPlans(ctx context.Context, eventID string) ([]models.EventPlan, error) {
	body, err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID)+"/plans", nil)
	if err != nil {
		return nil, err
	}
	var plans []models.EventPlan
	if err := json.Unmarshal(body, &plans); err != nil {
		return nil, fmt.Errorf("decode plans response: %w", err)
	}
	return plans, nil
}

func (c *Client) BookingInfo(ctx context.Context, eventID string) (models.BookingInfo, error) {
	var out models.BookingInfo
	body, err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID)+"/booking", nil)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode booking response: %w", err)
	}
	return out, nil
}

func (c *Client) ConfirmBooking(ctx context.Context, eventID, bookingRef string) error {
	payload, err := json.Marshal(struct {
		BookingRef string `json:"bookingRef,omitempty"`
	}{BookingRef: strings.TrimSpace(bookingRef)})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/booking/confirm", payload)
	return err
}

func (c *Client) Commit(ctx context.Context, eventID string, decision models.CommitDecision) error {
	payload, err := json.Marshal(struct {
		Decision models.CommitDecision `json:"decision"`
	}{Decision: decision})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/commit", payload)
	return err
}

func (c *Client) ListChat(ctx context.Context, eventID, cursor string, limit int) (models.ChatPage, error) {
	var out models.ChatPage
	if limit <= 0 {
		limit = defaultChatLimit
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	pathPart := "/events/" + url.PathEscape(eventID) + "/chat?" + query.Encode()
	body, err := c.do(ctx, http.MethodGet, pathPart, nil)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode chat response: %w", err)
	}
	return out, nil
}

func (c *Client) SendChat(ctx context.Context, eventID, text string) (models.ChatMessage, error) {
	var out models.ChatMessage
	payload, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return out, err
	}
	body, err := c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/chat", payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode chat send response: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, pathPart string, payload []byte) ([]byte, error) {
	if c.tokens == nil {
		return nil, fmt.Errorf("gateway token source is required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// The idempotency key survives the 401 retry so the server sees one
	// logical mutation.
	var idemKey string
	if method != http.MethodGet {
		idemKey = c.newID()
	}

	body, err := c.attempt(ctx, method, pathPart, payload, idemKey)
	if IsStatus(err, http.StatusUnauthorized) {
		c.tokens.Invalidate()
		body, err = c.attempt(ctx, method, pathPart, payload, idemKey)
	}
	return body, err
}

func (c *Client) attempt(ctx context.Context, method, pathPart string, payload []byte, idemKey string) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if len(payload) > 0 {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+pathPart, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if c.logger != nil {
		c.logger.Debug("gateway_response", "method", method, "path", pathPart, "status", resp.StatusCode)
	}
	return body, nil
}
