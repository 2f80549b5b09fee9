// Package hub is the JSON RPC client for a smart-home hub's websocket API.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hubctl/hubctl/internal/schema"
)

// Methods the client calls on its own behalf.
const (
	MethodLogin  = "auth.login"
	MethodSchema = "rpc.schema"
)

const (
	defaultCallTimeout = 30 * time.Second
	readLimit          = 16 << 20
)

// ErrClosed is returned by Call after Close.
var ErrClosed = errors.New("hub client closed")

// Config holds connection parameters for one hub.
type Config struct {
	URL         string
	Email       string
	Password    string
	Serial      string
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// Request is an RPC request frame.
type Request struct {
	ID     uint64      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is an RPC response frame.
type Response struct {
	ID        uint64          `json:"id"`
	IsSuccess bool            `json:"isSuccess"`
	Code      int             `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Err returns a *RemoteError when the hub reported failure.
func (r *Response) Err(method string) error {
	if r.IsSuccess {
		return nil
	}
	return &RemoteError{Method: method, Code: r.Code, Message: r.Message}
}

// Decode unmarshals the response data into v.
func (r *Response) Decode(v interface{}) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("response has no data")
	}
	return json.Unmarshal(r.Data, v)
}

// RemoteError is a failure reported by the hub.
type RemoteError struct {
	Method  string
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code %d)", e.Method, msg, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Method, msg)
}

// Client is a lazily connected RPC client. The websocket is dialed and the
// session authenticated on the first Call. Calls are serialized.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64
	closed bool
}

// New returns a client for cfg. No connection is made until the first Call.
func New(cfg Config) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{cfg: cfg, logger: logger}
}

// Call sends one request and waits for its response. A response with
// isSuccess=false is returned as-is; use Response.Err to check it. Every
// returned error starts with the method name.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("%s: %w", method, ErrClosed)
	}
	if err := c.connect(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return c.roundTrip(ctx, method, params)
}

// Schema fetches the hub's method schema.
func (c *Client) Schema(ctx context.Context) (*schema.Document, []byte, error) {
	resp, err := c.Call(ctx, MethodSchema, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := resp.Err(MethodSchema); err != nil {
		return nil, nil, err
	}
	doc, err := schema.Parse(resp.Data)
	if err != nil {
		return nil, nil, err
	}
	return doc, resp.Data, nil
}

// Close releases the connection. It is safe to call more than once and
// never fails; close errors are only logged.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(websocket.StatusNormalClosure, ""); err != nil {
		c.logger.Debug("websocket close", "url", c.cfg.URL, "err", err)
	}
	c.conn = nil
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	c.logger.Debug("connecting to hub", "url", c.cfg.URL)
	conn, _, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.cfg.URL, err)
	}
	conn.SetReadLimit(readLimit)
	c.conn = conn

	resp, err := c.roundTrip(ctx, MethodLogin, map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.Password,
		"serial":   c.cfg.Serial,
	})
	if err == nil {
		err = resp.Err(MethodLogin)
	}
	if err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		c.conn = nil
		return err
	}
	c.logger.Debug("hub session established", "serial", c.cfg.Serial)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method string, params interface{}) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	c.nextID++
	req := Request{ID: c.nextID, Method: method, Params: params}

	start := time.Now()
	if err := wsjson.Write(ctx, c.conn, req); err != nil {
		return nil, fmt.Errorf("%s: send: %w", method, err)
	}

	for {
		var resp Response
		if err := wsjson.Read(ctx, c.conn, &resp); err != nil {
			return nil, fmt.Errorf("%s: receive: %w", method, err)
		}
		if resp.ID != req.ID {
			c.logger.Debug("skipping unrelated frame", "id", resp.ID, "want", req.ID)
			continue
		}
		c.logger.Debug("rpc call", "method", method, "ok", resp.IsSuccess, "elapsed", time.Since(start))
		return &resp, nil
	}
}

// WithClient runs fn with a client for cfg and always closes it afterwards.
func WithClient(cfg Config, fn func(*Client) error) error {
	client := New(cfg)
	defer client.Close()
	return fn(client)
}
