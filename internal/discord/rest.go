package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPageSize = 50

// REST operations are asynchronous: the caller supplies a completion
// callback invoked exactly once, on success or failure, from a per-request
// goroutine. Failures arrive as *RequestError through the callback, never
// across the goroutine boundary. There is no mid-flight cancellation; the
// transport timeout is the only timeout.

// MessagesCallback receives a fetched message page, newest first.
type MessagesCallback func(msgs []Message, err error)

// MessageCallback receives the created message echoed by the service.
type MessageCallback func(msg *Message, err error)

// FetchMessages fetches the most recent message page of a channel.
func (c *Client) FetchMessages(channelID Snowflake, cb MessagesCallback) {
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, defaultPageSize)
	go c.fetchMessagePage(path, channelID, cb)
}

// FetchMessagesBefore fetches the message page preceding the given cursor.
func (c *Client) FetchMessagesBefore(channelID, before Snowflake, cb MessagesCallback) {
	path := fmt.Sprintf("/channels/%s/messages?limit=%d&before=%s", channelID, defaultPageSize, before)
	go c.fetchMessagePage(path, channelID, cb)
}

func (c *Client) fetchMessagePage(path string, channelID Snowflake, cb MessagesCallback) {
	route := "GET /channels/messages"

	body, status, err := c.doRequest(http.MethodGet, path, route, nil)
	if err != nil {
		cb(nil, &RequestError{Op: route, Status: status, Err: err})
		return
	}

	var msgs []Message
	if err := json.Unmarshal(body, &msgs); err != nil {
		cb(nil, &RequestError{Op: route, Err: err})
		return
	}

	c.logger.Debug("fetched message page",
		zap.String("channel_id", channelID.String()),
		zap.Int("count", len(msgs)),
	)
	cb(msgs, nil)
}

// SendChatMessage posts a chat message to a channel. The generated nonce
// lets the echoed dispatch event be correlated with this request.
func (c *Client) SendChatMessage(content string, channelID Snowflake, cb MessageCallback) {
	body := CreateMessageBody{
		Content: content,
		Nonce:   uuid.NewString(),
	}

	go func() {
		route := "POST /channels/messages"

		payload, err := json.Marshal(body)
		if err != nil {
			cb(nil, &RequestError{Op: route, Err: err})
			return
		}

		path := fmt.Sprintf("/channels/%s/messages", channelID)
		respBody, status, err := c.doRequest(http.MethodPost, path, route, payload)
		if err != nil {
			cb(nil, &RequestError{Op: route, Status: status, Err: err})
			return
		}

		var msg Message
		if err := json.Unmarshal(respBody, &msg); err != nil {
			cb(nil, &RequestError{Op: route, Err: err})
			return
		}
		cb(&msg, nil)
	}()
}

// EditChatMessage rewrites the content of an existing message. Only the
// fields set on the edit body reach the wire, so untouched fields keep
// their server-side values.
func (c *Client) EditChatMessage(channelID, messageID Snowflake, body EditMessageBody, cb MessageCallback) {
	go func() {
		route := "PATCH /channels/messages"

		payload, err := json.Marshal(body)
		if err != nil {
			cb(nil, &RequestError{Op: route, Err: err})
			return
		}

		path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
		respBody, status, err := c.doRequest(http.MethodPatch, path, route, payload)
		if err != nil {
			cb(nil, &RequestError{Op: route, Status: status, Err: err})
			return
		}

		var msg Message
		if err := json.Unmarshal(respBody, &msg); err != nil {
			cb(nil, &RequestError{Op: route, Err: err})
			return
		}
		cb(&msg, nil)
	}()
}

// doRequest performs one authorized REST call, paced by the rate limiter.
func (c *Client) doRequest(method, path, route string, body []byte) ([]byte, int, error) {
	ctx := context.Background()
	if err := c.limiter.Wait(ctx, route); err != nil {
		return nil, 0, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.restBaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.tokenSnapshot())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	c.limiter.Update(route, resp.Header)
	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.Throttle(route, resp.Header)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	return respBody, resp.StatusCode, nil
}
