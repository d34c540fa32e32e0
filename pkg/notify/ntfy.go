// Package notify posts push notifications to an ntfy server.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	anyascii "github.com/anyascii/go"
)

// Priority levels for ntfy.
type Priority int

const (
	PriorityMin     Priority = 1
	PriorityLow     Priority = 2
	PriorityDefault Priority = 3
	PriorityHigh    Priority = 4
	PriorityUrgent  Priority = 5
)

// Config holds ntfy client configuration.
type Config struct {
	ServerURL string
	Enabled   bool
}

// Client posts plain-text messages to per-topic ntfy endpoints. It is safe
// for concurrent use.
type Client struct {
	serverURL  string
	enabled    bool
	httpClient *http.Client
}

// Message is one push. Topic is required; everything else is optional.
type Message struct {
	Topic    string
	Title    string
	Body     string
	Click    string
	Tags     []string
	Priority Priority
}

// NewClient creates an ntfy client.
func NewClient(config Config) *Client {
	if config.ServerURL == "" {
		config.ServerURL = "https://ntfy.sh"
	}
	return &Client{
		serverURL: strings.TrimSuffix(config.ServerURL, "/"),
		enabled:   config.Enabled,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether the client posts at all.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Publish posts one message. Disabled clients and empty topics are silent
// no-ops; a non-2xx response is returned as an error for the caller to log.
func (c *Client) Publish(ctx context.Context, msg Message) error {
	if !c.enabled || msg.Topic == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.serverURL+"/"+msg.Topic, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("failed to create ntfy request: %w", err)
	}

	// ntfy headers only carry latin-1, so titles with accented airport
	// names are transliterated.
	if msg.Title != "" {
		req.Header.Set("Title", anyascii.Transliterate(msg.Title))
	}
	if msg.Click != "" {
		req.Header.Set("Click", msg.Click)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	priority := msg.Priority
	if priority == 0 {
		priority = PriorityDefault
	}
	req.Header.Set("Priority", strconv.Itoa(int(priority)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ntfy returned error status: %d", resp.StatusCode)
	}
	return nil
}
