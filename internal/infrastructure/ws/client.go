package ws

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection lifecycle. There is no transition out of StateClosed;
// StateClosing guards against concurrent disconnect handling so that
// teardown runs exactly once even if the transport reports the close
// more than once.
const (
	StateOpen int32 = iota
	StateClosing
	StateClosed
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one live duplex connection between a browser tab and the broker.
// Room membership is owned by the Registry; the rooms set here is the
// connection's view of it and is only mutated under the Registry lock.
type Client struct {
	ID string

	conn  *connWrapper
	send  chan *Message
	done  chan struct{}
	state atomic.Int32

	rooms map[string]struct{}
}

func NewClient(conn *websocket.Conn, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}

	c := &Client{
		ID:    uuid.NewString(),
		send:  make(chan *Message, sendBuffer), // buffered to avoid dead-locks on slow clients
		done:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}
	if conn != nil {
		c.conn = newConnWrapper(conn)
	}
	c.state.Store(StateOpen)

	return c
}

func (c *Client) State() int32 {
	return c.state.Load()
}

// deliver queues a message for the write pump. Non-blocking: a slow client
// loses the message rather than stalling the broadcast (at-most-once).
func (c *Client) deliver(msg *Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// beginClose moves open → closing. Returns false if teardown already ran.
func (c *Client) beginClose() bool {
	return c.state.CompareAndSwap(StateOpen, StateClosing)
}

func (c *Client) finishClose() {
	c.state.Store(StateClosed)
	close(c.done)
}

// ReadPump reads client events and hands them to the hub until the
// transport fails or closes. Closing the underlying connection unblocks
// the read immediately, and disconnect cleanup runs exactly once.
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.Disconnect(c)
		_ = c.conn.Close()
	}()

	c.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.conn.SetPongHandler(func(string) error {
		c.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warnf("ws read error (connection %s): %v", c.ID, err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.logger.Warnf("malformed frame from connection %s: %v", c.ID, err)
			continue
		}

		h.HandleEvent(c, env)
	}
}

// WritePump drains the send queue into the transport and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
