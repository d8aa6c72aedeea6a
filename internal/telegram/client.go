package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// ErrAPI is returned when the Bot API answers with a non-success status or ok=false.
var ErrAPI = errors.New("telegram api error")

// Config controls the Bot API client.
type Config struct {
	Token   string
	BaseURL string
}

// Client calls the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// NewClient builds a Client. A nil httpClient falls back to http.DefaultClient.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{token: cfg.Token, baseURL: base, http: httpClient}, nil
}

// GetFile resolves a file identifier to its download path.
func (c *Client) GetFile(ctx context.Context, fileID string) (File, error) {
	if fileID == "" {
		return File{}, fmt.Errorf("file id is required")
	}
	endpoint := c.methodURL("getFile") + "?file_id=" + url.QueryEscape(fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return File{}, fmt.Errorf("build getFile request: %w", err)
	}
	var file File
	if err := c.do(req, &file); err != nil {
		return File{}, fmt.Errorf("getFile: %w", err)
	}
	if file.FilePath == "" {
		return File{}, fmt.Errorf("getFile: %w: empty file_path", ErrAPI)
	}
	return file, nil
}

// FileURL returns the download URL for a path returned by GetFile.
func (c *Client) FileURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, strings.TrimLeft(filePath, "/"))
}

// SendMessage posts plain text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID string, text string) error {
	if chatID == "" {
		return fmt.Errorf("chat id is required")
	}
	payload, err := json.Marshal(map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendMessage"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", redactURL(err, c.token))
	}
	defer resp.Body.Close() //nolint:errcheck // body fully consumed below

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("%w: status %d", ErrAPI, resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !envelope.OK {
		return fmt.Errorf("%w: status %d: %s", ErrAPI, resp.StatusCode, envelope.Description)
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// redactURL strips the bot token from the URL carried by transport errors so it never
// reaches logs.
func redactURL(err error, token string) error {
	var uerr *url.Error
	if token != "" && errors.As(err, &uerr) {
		uerr.URL = strings.ReplaceAll(uerr.URL, token, "<token>")
	}
	return err
}

// RedactError removes the client's token from URLs inside err.
func (c *Client) RedactError(err error) error {
	return redactURL(err, c.token)
}
