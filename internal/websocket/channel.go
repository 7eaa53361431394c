package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dom/gauntlet/internal/changefeed"
	"github.com/dom/gauntlet/internal/reconcile"
)

// Channel is the live view of one tourney. It owns the tourney's mirror and
// the clients watching it; all mutation happens on the Run goroutine.
type Channel struct {
	tourneyID uint
	mirror    *reconcile.Mirror
	loader    StateLoader
	clients   map[*Client]bool
	logger    *slog.Logger

	join      chan *Client
	leave     chan *Client
	syncState chan *Client
	events    chan changefeed.Event
	resync    chan struct{}
	stop      chan struct{}
	done      chan struct{}

	mu sync.RWMutex
}

const (
	reloadTimeout = 10 * time.Second
	reloadRetry   = time.Second
)

func NewChannel(tourneyID uint, initial reconcile.State, loader StateLoader, logger *slog.Logger) *Channel {
	return &Channel{
		tourneyID: tourneyID,
		mirror:    reconcile.NewMirror(tourneyID, initial),
		loader:    loader,
		clients:   make(map[*Client]bool),
		logger:    logger.With("tourney_id", tourneyID),
		join:      make(chan *Client),
		leave:     make(chan *Client),
		syncState: make(chan *Client),
		events:    make(chan changefeed.Event, 256),
		resync:    make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (c *Channel) Run() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return

		case client := <-c.join:
			c.handleJoin(client)

		case client := <-c.leave:
			c.handleLeave(client)

		case client := <-c.syncState:
			c.sendStateSync(client)

		case ev := <-c.events:
			c.handleEvent(ev)

		case <-c.resync:
			c.reload()
		}
	}
}

// requestResync asks Run to reload the snapshot from storage. It never
// blocks; requests made before the reload starts collapse into one.
func (c *Channel) requestResync() {
	select {
	case c.resync <- struct{}{}:
	default:
	}
}

// reload replaces the mirror with fresh state after events were lost and
// pushes it to every viewer. Queued events are older than the reload and are
// discarded.
func (c *Channel) reload() {
	for drained := false; !drained; {
		select {
		case <-c.events:
		default:
			drained = true
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	state, err := c.loader.LoadState(ctx, c.tourneyID)
	if err != nil {
		c.logger.Error("failed to reload tourney state", "error", err)
		time.AfterFunc(reloadRetry, c.requestResync)
		return
	}
	c.mirror.Reset(state)
	c.logger.Info("reloaded tourney state")

	c.mu.RLock()
	clients := make([]*Client, 0, len(c.clients))
	for client := range c.clients {
		clients = append(clients, client)
	}
	c.mu.RUnlock()
	for _, client := range clients {
		c.sendStateSync(client)
	}
}

func (c *Channel) Stop() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

func (c *Channel) Wait() {
	<-c.done
}

// Snapshot returns the current mirrored state.
func (c *Channel) Snapshot() reconcile.State {
	return c.mirror.Snapshot()
}

func (c *Channel) Viewers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}

func (c *Channel) handleJoin(client *Client) {
	c.mu.Lock()
	c.clients[client] = true
	c.mu.Unlock()

	c.logger.Debug("client joined", "user_id", client.userID)
	c.sendStateSync(client)
}

func (c *Channel) handleLeave(client *Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.clients, client)
}

func (c *Channel) handleEvent(ev changefeed.Event) {
	applied, err := c.mirror.Apply(ev)
	if err != nil {
		c.logger.Warn("dropping change event", "table", ev.Table, "kind", ev.Kind, "error", err)
		return
	}
	if !applied {
		return
	}

	msg, err := NewMessage(MessageTypeChange, ChangePayload{
		TourneyID: c.tourneyID,
		Table:     ev.Table,
		Kind:      ev.Kind,
		Row:       ev.Row,
		At:        ev.At,
	})
	if err != nil {
		c.logger.Error("failed to encode change", "error", err)
		return
	}
	c.broadcast(msg)
}

func (c *Channel) broadcast(msg *Message) {
	data, _ := json.Marshal(msg)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for client := range c.clients {
		client.trySend(data)
	}
}

func (c *Channel) sendStateSync(client *Client) {
	msg, err := NewMessage(MessageTypeStateSync, StateSyncPayload{
		TourneyID: c.tourneyID,
		State:     c.mirror.Snapshot(),
		Viewers:   c.Viewers(),
	})
	if err != nil {
		c.logger.Error("failed to encode state sync", "error", err)
		return
	}
	data, _ := json.Marshal(msg)
	client.trySend(data)
}
