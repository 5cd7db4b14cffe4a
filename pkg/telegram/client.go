package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.telegram.org"
	parseModeHTML               = "HTML"
	responseBodyReadLimit int64 = 1024
)

var errBotTokenRequired = errors.New("telegram bot token is required")

// Client wraps the Telegram Bot API calls used for admin notifications.
type Client struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Bot API base URL. Useful for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Telegram client given a bot token.
func NewClient(botToken string, opts ...Option) (*Client, error) {
	trimmedToken := strings.TrimSpace(botToken)
	if trimmedToken == "" {
		return nil, errBotTokenRequired
	}

	client := &Client{
		botToken:   trimmedToken,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// SendMessage posts an HTML-formatted message to the given chat and returns the message ID.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (int64, error) {
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "telegram client not configured")
	}
	if strings.TrimSpace(chatID) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "chat ID is required")
	}
	if strings.TrimSpace(text) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: parseModeHTML,
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal sendMessage request")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(c.baseURL, "/"), c.botToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build sendMessage request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute sendMessage request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "sendMessage request failed")
	}

	var apiResp sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode sendMessage response")
	}
	if !apiResp.OK {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("telegram rejected sendMessage: %s", apiResp.Description))
	}

	return apiResp.Result.MessageID, nil
}
