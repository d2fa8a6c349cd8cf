// Package line is the outbound client for the LINE Messaging API: replying
// to webhook events, pushing messages, and verifying webhook signatures.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// maxMessagesPerCall is the platform limit on messages per reply/push.
const maxMessagesPerCall = 5

// Client sends reply and push messages on behalf of the bot
type Client struct {
	channelToken string
	baseURL      string
	client       *http.Client
}

// NewClient creates a new messaging client authenticated by the channel token
func NewClient(channelToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.line.me"
	}
	return &Client{
		channelToken: channelToken,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

// Reply sends text messages keyed by the event's reply token
func (c *Client) Reply(ctx context.Context, replyToken string, texts ...string) error {
	body := replyRequest{
		ReplyToken: replyToken,
		Messages:   toMessages(texts),
	}
	return c.post(ctx, "/v2/bot/message/reply", body)
}

// Push sends text messages directly to a user
func (c *Client) Push(ctx context.Context, userID string, texts ...string) error {
	body := pushRequest{
		To:       userID,
		Messages: toMessages(texts),
	}
	return c.post(ctx, "/v2/bot/message/push", body)
}

func toMessages(texts []string) []textMessage {
	if len(texts) > maxMessagesPerCall {
		texts = texts[:maxMessagesPerCall]
	}
	messages := make([]textMessage, 0, len(texts))
	for _, t := range texts {
		messages = append(messages, textMessage{Type: "text", Text: t})
	}
	return messages
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Debug().
			Str("path", path).
			Int("status", resp.StatusCode).
			Bytes("body", detail).
			Msg("line API rejected request")
		return fmt.Errorf("line API returned status %d", resp.StatusCode)
	}

	return nil
}
