// Package discord implements messaging.Messenger on the Discord REST API.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/felixgeelhaar/campusbot/internal/messaging"
	"github.com/felixgeelhaar/campusbot/pkg/observability"
)

// DefaultBaseURL is the versioned REST endpoint.
const DefaultBaseURL = "https://discord.com/api/v10"

// Channel types that accept messages.
var textChannelTypes = map[int]bool{
	0:  true, // guild text
	1:  true, // DM
	2:  true, // guild voice
	3:  true, // group DM
	5:  true, // announcement
	10: true, // announcement thread
	11: true, // public thread
	12: true, // private thread
	13: true, // stage voice
}

// Config configures the Discord client.
type Config struct {
	Token      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client talks to Discord with a bot token.
type Client struct {
	http    *resty.Client
	logger  *slog.Logger
	metrics observability.Metrics
}

// New creates a Discord client.
func New(cfg Config, logger *slog.Logger, metrics observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthScheme("Bot").
		SetAuthToken(cfg.Token).
		SetHeader("User-Agent", "DiscordBot (https://github.com/felixgeelhaar/campusbot, 1.0)").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(rateLimited).
		SetRetryAfter(retryAfter)

	return &Client{
		http:    client,
		logger:  logger.With("component", "discord"),
		metrics: metrics,
	}
}

// rateLimited retries only 429 responses. Transport errors are not
// retried: Discord may already have accepted a POST that timed out.
func rateLimited(r *resty.Response, err error) bool {
	return err == nil && r != nil && r.StatusCode() == http.StatusTooManyRequests
}

// request starts a call whose success body is decoded as JSON whatever
// Content-Type the response declares.
func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		ForceContentType("application/json")
}

type channelResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

type messageResponse struct {
	ID string `json:"id"`
}

// FetchChannel returns channel metadata. Unknown channels yield
// messaging.ErrNotFound.
func (c *Client) FetchChannel(ctx context.Context, channelID string) (*messaging.Channel, error) {
	var out channelResponse
	res, err := c.request(ctx).
		SetPathParam("channel", channelID).
		SetResult(&out).
		Get("/channels/{channel}")
	if err := c.check("fetch_channel", res, err); err != nil {
		return nil, err
	}
	return &messaging.Channel{
		ID:        out.ID,
		Name:      out.Name,
		TextBased: textChannelTypes[out.Type],
	}, nil
}

// SendMessage posts msg and returns the new message ID.
func (c *Client) SendMessage(ctx context.Context, channelID string, msg messaging.Message) (string, error) {
	var out messageResponse
	res, err := c.request(ctx).
		SetPathParam("channel", channelID).
		SetBody(msg).
		SetResult(&out).
		Post("/channels/{channel}/messages")
	if err := c.check("send_message", res, err); err != nil {
		return "", err
	}
	if out.ID == "" {
		c.metrics.Counter(observability.MetricDiscordErrors, 1, observability.T("op", "send_message"))
		return "", fmt.Errorf("discord send_message: response carried no message id")
	}
	return out.ID, nil
}

// EditMessage replaces the content and embeds of an existing message.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, msg messaging.Message) error {
	res, err := c.request(ctx).
		SetPathParams(map[string]string{"channel": channelID, "message": messageID}).
		SetBody(msg).
		Patch("/channels/{channel}/messages/{message}")
	return c.check("edit_message", res, err)
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	res, err := c.request(ctx).
		SetPathParams(map[string]string{"channel": channelID, "message": messageID}).
		Delete("/channels/{channel}/messages/{message}")
	return c.check("delete_message", res, err)
}

// check maps transport failures and non-2xx statuses to errors.
func (c *Client) check(op string, res *resty.Response, err error) error {
	tags := []observability.Tag{observability.T("op", op)}
	c.metrics.Counter(observability.MetricDiscordRequests, 1, tags...)

	if err != nil {
		c.metrics.Counter(observability.MetricDiscordErrors, 1, tags...)
		return fmt.Errorf("discord %s: %w", op, err)
	}
	if !res.IsError() {
		return nil
	}

	c.metrics.Counter(observability.MetricDiscordErrors, 1, tags...)
	apiErr := &messaging.APIError{StatusCode: res.StatusCode(), Body: string(res.Body())}
	if res.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("discord %s: %w: %w", op, messaging.ErrNotFound, apiErr)
	}
	return fmt.Errorf("discord %s: %w", op, apiErr)
}

// retryAfter honours the rate limit hint in the body or Retry-After header.
func retryAfter(_ *resty.Client, res *resty.Response) (time.Duration, error) {
	if res == nil {
		return 0, nil
	}
	var body struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if json.Unmarshal(res.Body(), &body) == nil && body.RetryAfter > 0 {
		return time.Duration(body.RetryAfter * float64(time.Second)), nil
	}
	if secs, err := strconv.ParseFloat(res.Header().Get("Retry-After"), 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, nil
}

var _ messaging.Messenger = (*Client)(nil)
