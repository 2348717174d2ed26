// Package client is a small Go SDK for the proofdeck realtime API. It wraps
// a websocket connection with automatic reconnection: the broker forgets a
// connection's room memberships the moment it drops, so the client keeps its
// own record and re-issues join-project after every successful redial.
package client

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

// Event names understood by the broker. Kept in sync with the server's
// event catalog by hand; an unknown name is dropped server-side.
const (
	JoinProject  = "join-project"
	LeaveProject = "leave-project"

	AddAnnotation           = "addAnnotation"
	ResolveAnnotation       = "resolveAnnotation"
	AddAnnotationReply      = "addAnnotationReply"
	AnnotationStatusChanged = "annotationStatusChanged"
	UpdateElementStatus     = "updateElementStatus"
	ReviewStatusChanged     = "reviewStatusChanged"
	Typing                  = "typing"
)

// Message is the wire envelope in both directions.
type Message struct {
	Event     string `json:"event"`
	ProjectID string `json:"projectId"`
	Data      any    `json:"data"`
}

// Options tunes the reconnection policy.
type Options struct {
	// MaxAttempts bounds how many redials one disconnect may trigger
	// before the client gives up and surfaces the disconnected state.
	MaxAttempts uint

	// InitialBackoff is the delay before the first redial. Subsequent
	// delays grow exponentially up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	HandshakeTimeout time.Duration
}

func defaultOptions() Options {
	return Options{
		MaxAttempts:      8,
		InitialBackoff:   500 * time.Millisecond,
		MaxBackoff:       30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

type Client struct {
	baseURL string
	opts    Options
	dialer  websocket.Dialer

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	// primary is the project whose path the connection was dialed on.
	primary string
	// joined is every project room this client believes it is in; replayed
	// on reconnect.
	joined map[string]struct{}

	messageHandler    func(Message)
	disconnectHandler func(error)
	reconnectHandler  func()
}

func New(baseURL string, opts Options) *Client {
	def := defaultOptions()
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = def.InitialBackoff
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = def.MaxBackoff
	}
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = def.HandshakeTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    opts,
		dialer: websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		joined: make(map[string]struct{}),
	}
}

// SetMessageHandler registers the callback invoked for every broker event.
func (c *Client) SetMessageHandler(handler func(Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageHandler = handler
}

// SetDisconnectHandler registers the callback invoked when the connection
// is lost for good: either Close was called or every reconnect attempt
// failed.
func (c *Client) SetDisconnectHandler(handler func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectHandler = handler
}

// SetReconnectHandler registers the callback invoked after a successful
// redial and room re-join.
func (c *Client) SetReconnectHandler(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectHandler = handler
}

// Connect dials the realtime endpoint for a project and starts listening.
// The server places the connection in the project's room immediately.
func (c *Client) Connect(ctx context.Context, projectID string) error {
	if projectID == "" {
		return fmt.Errorf("project ID is required")
	}

	conn, err := c.dial(ctx, projectID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.closed = false
	c.primary = projectID
	c.joined[projectID] = struct{}{}
	c.mu.Unlock()

	go c.listen(ctx, conn)

	return nil
}

func (c *Client) dial(ctx context.Context, projectID string) (*websocket.Conn, error) {
	wsURL := c.baseURL
	if after, ok := strings.CutPrefix(wsURL, "https://"); ok {
		wsURL = "wss://" + after
	} else if after, ok := strings.CutPrefix(wsURL, "http://"); ok {
		wsURL = "ws://" + after
	}

	path := fmt.Sprintf("%s/api/projects/%s/ws", wsURL, url.PathEscape(projectID))

	conn, _, err := c.dialer.DialContext(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to websocket: %w", err)
	}

	return conn, nil
}

// JoinProject subscribes to another project's room on the same connection.
func (c *Client) JoinProject(projectID string) error {
	if err := c.send(Message{Event: JoinProject, ProjectID: projectID}); err != nil {
		return err
	}

	c.mu.Lock()
	c.joined[projectID] = struct{}{}
	c.mu.Unlock()

	return nil
}

// LeaveProject unsubscribes from a project's room.
func (c *Client) LeaveProject(projectID string) error {
	if err := c.send(Message{Event: LeaveProject, ProjectID: projectID}); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.joined, projectID)
	c.mu.Unlock()

	return nil
}

// Emit sends a collaboration event into a project's room.
func (c *Client) Emit(event, projectID string, data any) error {
	return c.send(Message{Event: event, ProjectID: projectID, Data: data})
}

// Connected reports whether the client currently holds a live connection.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close tears down the connection and disables reconnection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.connected = false

	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		return fmt.Errorf("websocket connection is closed")
	}

	return c.conn.WriteJSON(msg)
}

func (c *Client) listen(ctx context.Context, conn *websocket.Conn) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.connected = false
			c.mu.Unlock()

			if closed {
				c.notifyDisconnect(nil)
				return
			}

			c.reconnect(ctx, err)
			return
		}

		c.mu.RLock()
		handler := c.messageHandler
		c.mu.RUnlock()

		if handler != nil {
			handler(msg)
		}
	}
}

// reconnect redials with exponential backoff. On success it re-issues
// join-project for every room the client was in; the broker keeps no
// membership state across connections. After the attempt budget is spent
// the client stays down and the disconnect handler fires.
func (c *Client) reconnect(ctx context.Context, cause error) {
	c.mu.RLock()
	primary := c.primary
	c.mu.RUnlock()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.InitialBackoff
	policy.MaxInterval = c.opts.MaxBackoff

	conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()
		if closed {
			return nil, backoff.Permanent(fmt.Errorf("client closed"))
		}

		return c.dial(ctx, primary)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.opts.MaxAttempts),
	)
	if err != nil {
		log.Printf("giving up reconnecting after %d attempts: %v (cause: %v)", c.opts.MaxAttempts, err, cause)
		c.notifyDisconnect(cause)
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	rooms := make([]string, 0, len(c.joined))
	for projectID := range c.joined {
		rooms = append(rooms, projectID)
	}
	c.mu.Unlock()

	for _, projectID := range rooms {
		// The dial path already re-joined the primary room server-side,
		// but join-project is idempotent so replaying it is harmless.
		if err := c.send(Message{Event: JoinProject, ProjectID: projectID}); err != nil {
			log.Printf("failed to re-join project %s after reconnect: %v", projectID, err)
		}
	}

	c.mu.RLock()
	onReconnect := c.reconnectHandler
	c.mu.RUnlock()
	if onReconnect != nil {
		onReconnect()
	}

	go c.listen(ctx, conn)
}

func (c *Client) notifyDisconnect(cause error) {
	c.mu.RLock()
	handler := c.disconnectHandler
	c.mu.RUnlock()

	if handler != nil {
		handler(cause)
	}
}
