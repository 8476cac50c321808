// Package client talks to the room server over HTTP. It implements the
// backends the session manager and the scene view depend on.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"showroom/internal/model"
)

const (
	DefaultTimeout             = 10 * time.Second
	DefaultReconnectInitial    = 250 * time.Millisecond
	DefaultReconnectMaxBackoff = 5 * time.Second
	DefaultReconnectGiveUp     = 2 * time.Minute
)

// StatusError is a non-2xx response. It unwraps to the sentinel the server
// reported, when there is one.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Options configure a Client.
type Options struct {
	BaseURL string
	// Timeout bounds unary requests. Streams are bounded only by their context.
	Timeout time.Duration

	ReconnectInitial    time.Duration
	ReconnectMaxBackoff time.Duration
	// ReconnectGiveUp is how long a dropped stream keeps retrying before its
	// channel is closed.
	ReconnectGiveUp time.Duration
}

// Client is a room server client. It is safe for concurrent use.
type Client struct {
	api    *resty.Client
	stream *resty.Client
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ReconnectInitial <= 0 {
		opts.ReconnectInitial = DefaultReconnectInitial
	}
	if opts.ReconnectMaxBackoff <= 0 {
		opts.ReconnectMaxBackoff = DefaultReconnectMaxBackoff
	}
	if opts.ReconnectGiveUp <= 0 {
		opts.ReconnectGiveUp = DefaultReconnectGiveUp
	}
	api := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetError(&model.ErrorResponse{})
	stream := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "text/event-stream")
	return &Client{api: api, stream: stream, opts: opts, logger: logger}
}

// Rooms lists every room.
func (c *Client) Rooms(ctx context.Context) ([]model.RoomSnapshot, error) {
	var out []model.RoomSnapshot
	resp, err := c.api.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/stores")
	if err := check(resp, err); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return out, nil
}

// Room fetches one room's snapshot.
func (c *Client) Room(ctx context.Context, roomID string) (model.RoomSnapshot, error) {
	var out model.RoomSnapshot
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParam("id", roomID).
		SetResult(&out).
		Get("/stores/{id}")
	if err := check(resp, err); err != nil {
		return model.RoomSnapshot{}, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return out, nil
}

// JoinRoom claims an occupancy slot. A full room yields model.ErrRoomFull.
func (c *Client) JoinRoom(ctx context.Context, roomID, userID string) (model.EnterResult, error) {
	var out model.EnterResult
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParam("id", roomID).
		SetBody(model.EnterRequest{UserID: userID}).
		SetResult(&out).
		Post("/stores/{id}/enter")
	if err := check(resp, err); err != nil {
		return model.EnterResult{}, fmt.Errorf("join room %s: %w", roomID, err)
	}
	return out, nil
}

// LeaveRoom releases a session. The server treats unknown sessions as left.
func (c *Client) LeaveRoom(ctx context.Context, roomID, sessionID string) error {
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParam("id", roomID).
		SetBody(model.ExitRequest{SessionID: sessionID}).
		Post("/stores/{id}/exit")
	if err := check(resp, err); err != nil {
		return fmt.Errorf("leave room %s: %w", roomID, err)
	}
	return nil
}

// RenewSession extends a held session's lease. ErrSessionNotFound means the
// server already reclaimed it.
func (c *Client) RenewSession(ctx context.Context, roomID, sessionID string) error {
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": roomID, "sid": sessionID}).
		Post("/stores/{id}/sessions/{sid}/renew")
	if err := check(resp, err); err != nil {
		return fmt.Errorf("renew session in room %s: %w", roomID, err)
	}
	return nil
}

// CommitPosition persists an object's canonical position. It is not retried.
func (c *Client) CommitPosition(ctx context.Context, roomID, object string, pos model.Canonical, userID string) error {
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": roomID, "name": object}).
		SetBody(model.PositionRequest{Position: pos, UserID: userID}).
		Post("/stores/{id}/models/{name}/position")
	if err := check(resp, err); err != nil {
		return fmt.Errorf("commit %s in room %s: %w", object, roomID, err)
	}
	return nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	if body, ok := resp.Error().(*model.ErrorResponse); ok && (body.Code != "" || body.Error != "") {
		return &StatusError{Code: resp.StatusCode(), Err: model.DecodeError(*body)}
	}
	return &StatusError{Code: resp.StatusCode(), Err: errors.New(http.StatusText(resp.StatusCode()))}
}

// SubscribeRoom streams room snapshots. The first connection must succeed;
// later drops are retried with exponential backoff. The channel is closed
// when ctx is done or reconnection gives up.
func (c *Client) SubscribeRoom(ctx context.Context, roomID string) (<-chan model.RoomSnapshot, error) {
	body, err := c.openStream(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("subscribe room %s: %w", roomID, err)
	}
	out := make(chan model.RoomSnapshot)
	go c.pump(ctx, roomID, body, out)
	return out, nil
}

func (c *Client) openStream(ctx context.Context, roomID string) (io.ReadCloser, error) {
	resp, err := c.stream.R().
		SetContext(ctx).
		SetPathParam("id", roomID).
		SetDoNotParseResponse(true).
		Get("/stores/{id}/stream")
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		var msg model.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(body, 4096)).Decode(&msg)
		_ = body.Close()
		if msg.Code == "" && msg.Error == "" {
			msg.Error = http.StatusText(resp.StatusCode())
		}
		return nil, &StatusError{Code: resp.StatusCode(), Err: model.DecodeError(msg)}
	}
	return body, nil
}

func (c *Client) pump(ctx context.Context, roomID string, body io.ReadCloser, out chan<- model.RoomSnapshot) {
	defer close(out)
	logger := c.logger.With(zap.String("room_id", roomID))

	for {
		err := readEvents(body, func(ev sseEvent) error {
			if ev.name != "store" {
				return nil
			}
			var snap model.RoomSnapshot
			if err := json.Unmarshal(ev.data, &snap); err != nil {
				logger.Warn("malformed room snapshot", zap.Error(err))
				return nil
			}
			select {
			case out <- snap:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		_ = body.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Warn("room stream dropped; reconnecting", zap.Error(err))

		body, err = backoff.Retry(ctx, func() (io.ReadCloser, error) {
			b, err := c.openStream(ctx, roomID)
			if errors.Is(err, model.ErrRoomNotFound) {
				return nil, backoff.Permanent(err)
			}
			return b, err
		},
			backoff.WithBackOff(c.newBackOff()),
			backoff.WithMaxElapsedTime(c.opts.ReconnectGiveUp),
			backoff.WithNotify(func(err error, next time.Duration) {
				logger.Debug("reconnect failed", zap.Error(err), zap.Duration("retry_in", next))
			}),
		)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("room stream lost", zap.Error(err))
			}
			return
		}
		logger.Info("room stream reconnected")
	}
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.ReconnectInitial
	b.MaxInterval = c.opts.ReconnectMaxBackoff
	return b
}
