package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dom/gauntlet/internal/websocket"
	gorillaWS "github.com/gorilla/websocket"
)

// WSClient is a live-channel viewer used by tests. Incoming frames are
// decoded on a background goroutine and queued until a test expects them.
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *websocket.Message
	errors   chan error
	done     chan struct{}
	mu       sync.Mutex
}

// NewWSClient dials url and closes the connection when the test ends.
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	dialer := *gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:        t,
		conn:     conn,
		messages: make(chan *websocket.Message, 100),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
	go client.readPump()
	t.Cleanup(client.Close)

	return client
}

func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case c.errors <- err:
			}
			return
		}

		var msg websocket.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		select {
		case c.messages <- &msg:
		case <-c.done:
			return
		}
	}
}

// Close sends a close frame and drops the connection.
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

func (c *WSClient) send(msgType websocket.MessageType, payload interface{}) {
	c.t.Helper()

	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		c.t.Fatalf("failed to build %s message: %v", msgType, err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		c.t.Fatalf("failed to marshal message: %v", err)
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()
	if err != nil {
		c.t.Fatalf("failed to send %s: %v", msgType, err)
	}
}

// JoinTourney moves the connection onto a tourney's live channel.
func (c *WSClient) JoinTourney(tourneyID uint) {
	c.send(websocket.MessageTypeJoinTourney, websocket.JoinTourneyPayload{TourneyID: tourneyID})
}

func (c *WSClient) Leave() {
	c.send(websocket.MessageTypeLeaveTourney, nil)
}

// SyncState asks for a fresh snapshot of the joined tourney.
func (c *WSClient) SyncState() {
	c.send(websocket.MessageTypeSyncState, nil)
}

// ExpectMessage waits for a message of msgType, skipping any other type.
func (c *WSClient) ExpectMessage(msgType websocket.MessageType, timeout time.Duration) *websocket.Message {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				c.t.Fatalf("connection closed while waiting for %s", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", msgType, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for message type %s", msgType)
		}
	}
}

func expectPayload[T any](c *WSClient, msgType websocket.MessageType, timeout time.Duration) *T {
	c.t.Helper()

	msg := c.ExpectMessage(msgType, timeout)
	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode %s payload: %v", msgType, err)
	}
	return &payload
}

func (c *WSClient) ExpectStateSync(timeout time.Duration) *websocket.StateSyncPayload {
	c.t.Helper()
	return expectPayload[websocket.StateSyncPayload](c, websocket.MessageTypeStateSync, timeout)
}

func (c *WSClient) ExpectError(timeout time.Duration) *websocket.ErrorPayload {
	c.t.Helper()
	return expectPayload[websocket.ErrorPayload](c, websocket.MessageTypeError, timeout)
}

// ExpectChange waits for a CHANGE on table, skipping changes to other tables.
func (c *WSClient) ExpectChange(table string, timeout time.Duration) *websocket.ChangePayload {
	c.t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.t.Fatalf("timeout waiting for change on %s", table)
		}
		payload := expectPayload[websocket.ChangePayload](c, websocket.MessageTypeChange, remaining)
		if payload.Table == table {
			return payload
		}
	}
}

// ExpectNoMessage fails if anything arrives within timeout.
func (c *WSClient) ExpectNoMessage(timeout time.Duration) {
	c.t.Helper()

	select {
	case msg := <-c.messages:
		if msg != nil {
			c.t.Fatalf("unexpected message received: %s", msg.Type)
		}
	case <-time.After(timeout):
	}
}

// DrainMessages discards queued messages until none arrive for 50ms.
func (c *WSClient) DrainMessages() {
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				return
			}
			deadline = time.After(50 * time.Millisecond)
		case <-deadline:
			return
		case <-c.done:
			return
		}
	}
}
