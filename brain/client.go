package brain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client talks to the decision/training service over one persistent stream
// connection. The wire format carries no request identifier, so requests
// and responses must not interleave: every operation holds one mutex across
// its write and the single read that answers it. Concurrent callers queue.
type Client struct {
	mu    sync.Mutex
	conn  net.Conn
	codec codec
	log   *zap.Logger
}

// Dial connects to the service. A failure here is a ConnectionError and
// fatal to this client instance.
func Dial(addr string, enc Encoding, timeout time.Duration, log *zap.Logger) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	return NewClient(conn, enc, log), nil
}

// NewClient wraps an established connection. Used by tests with net.Pipe.
func NewClient(conn net.Conn, enc Encoding, log *zap.Logger) *Client {
	return &Client{
		conn:  conn,
		codec: newCodec(enc, conn),
		log:   log.Named("brain"),
	}
}

// Close tears down the connection. Any in-flight operation fails with a
// ConnectionError.
func (c *Client) Close() error {
	return c.conn.Close()
}

// InitBrains registers policy weights for one or more creatures. Results
// report per-id acceptance; registration is best-effort.
func (c *Client) InitBrains(brains []BrainInit) (map[int64]bool, error) {
	req := initRequest{Type: kindInit, Brains: brains}
	var resp initResponse
	if err := c.roundTrip("init", req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusInitialized {
		return nil, &ProtocolError{Op: "init", Msg: fmt.Sprintf("unexpected status %q", resp.Status)}
	}
	return resp.Results, nil
}

// EvaluateBrains runs one batched observation -> action round trip. An
// empty result set for a non-empty batch is a protocol error; the caller
// keeps using its previous action map on any failure.
func (c *Client) EvaluateBrains(sensors []Sensors) (map[int64]JetForces, error) {
	req := evaluateRequest{Type: kindEvaluate, Sensors: sensors}
	var resp evaluateResponse
	if err := c.roundTrip("evaluate", req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusEvaluated {
		return nil, &ProtocolError{Op: "evaluate", Msg: fmt.Sprintf("unexpected status %q", resp.Status)}
	}
	if len(sensors) > 0 && len(resp.Results) == 0 {
		return nil, &ProtocolError{Op: "evaluate", Msg: "empty result set"}
	}
	return resp.Results, nil
}

// TrainBrains ships one batch of transitions for off-process learning. A
// failure is reported but never retried; a dropped batch is an accepted
// loss.
func (c *Client) TrainBrains(transitions []Transition) error {
	req := trainRequest{Type: kindTrain, Training: transitions}
	var resp trainResponse
	if err := c.roundTrip("train", req, &resp); err != nil {
		return err
	}
	if resp.Status != statusTrained {
		return &ProtocolError{Op: "train", Msg: fmt.Sprintf("unexpected status %q", resp.Status)}
	}
	return nil
}

// roundTrip writes one request and reads the one response that answers it,
// under the connection mutex.
func (c *Client) roundTrip(op string, req any, resp interface{ errorField() string }) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return &ProtocolError{Op: op, Msg: "encoding request", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.codec.writeMessage(payload); err != nil {
		return &ConnectionError{Op: op, Err: err}
	}

	body, err := c.codec.readMessage()
	if err != nil {
		return classifyReadError(op, err)
	}
	if len(body) == 0 {
		return &ProtocolError{Op: op, Msg: "empty response"}
	}

	if err := json.Unmarshal(body, resp); err != nil {
		return &ProtocolError{Op: op, Msg: "decoding response", Err: err}
	}
	if msg := resp.errorField(); msg != "" {
		return &ProtocolError{Op: op, Msg: "service error: " + msg}
	}
	return nil
}

// classifyReadError separates dropped connections from short reads and
// malformed frames.
func classifyReadError(op string, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &ProtocolError{Op: op, Msg: "short read", Err: err}
	}
	if errors.Is(err, io.EOF) {
		return &ConnectionError{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ConnectionError{Op: op, Err: err}
	}
	return &ProtocolError{Op: op, Msg: "reading response", Err: err}
}

func (r *initResponse) errorField() string     { return r.Error }
func (r *evaluateResponse) errorField() string { return r.Error }
func (r *trainResponse) errorField() string    { return r.Error }
