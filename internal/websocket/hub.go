package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dom/gauntlet/internal/changefeed"
	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/reconcile"
)

// StateLoader hydrates the initial snapshot of a tourney channel.
type StateLoader interface {
	LoadState(ctx context.Context, tourneyID uint) (reconcile.State, error)
}

type Hub struct {
	channels    map[uint]*Channel
	clients     map[*Client]bool
	register    chan *Client
	unregister  chan *Client
	joinTourney chan *JoinRequest
	leave       chan *Client
	events      chan changefeed.Event
	opened      chan *openResult
	loading     map[uint]*pendingOpen
	stop        chan struct{}
	done        chan struct{} // closed when Run() exits
	stopped     bool
	loader      StateLoader
	logger      *slog.Logger
	mu          sync.RWMutex
}

// pendingOpen collects joins and change events for a tourney whose channel
// is still loading.
type pendingOpen struct {
	joins  []*JoinRequest
	events []changefeed.Event
}

type openResult struct {
	tourneyID uint
	state     reconcile.State
	err       error
}

// JoinRequest moves a client into a tourney channel. A zero TourneyID asks
// for a fresh snapshot of the channel the client is already in.
type JoinRequest struct {
	Client    *Client
	TourneyID uint
}

func NewHub(loader StateLoader, logger *slog.Logger) *Hub {
	return &Hub{
		channels:    make(map[uint]*Channel),
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		joinTourney: make(chan *JoinRequest),
		leave:       make(chan *Client),
		events:      make(chan changefeed.Event, 1024),
		opened:      make(chan *openResult),
		loading:     make(map[uint]*pendingOpen),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		loader:      loader,
		logger:      logger,
	}
}

func (h *Hub) Run() {
	defer close(h.done) // Signal that Run() has exited

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			channels := h.channels
			h.channels = make(map[uint]*Channel)
			h.mu.Unlock()

			for _, ch := range channels {
				ch.Stop()
			}
			// Wait for all channels to exit before closing client queues
			for _, ch := range channels {
				ch.Wait()
			}

			h.mu.Lock()
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok && !h.stopped {
				delete(h.clients, client)
				client.Close()
				if client.channel != nil {
					client.channel.leave <- client
				}
			}
			h.mu.Unlock()

		case req := <-h.joinTourney:
			h.handleJoin(req)

		case res := <-h.opened:
			h.handleOpened(res)

		case client := <-h.leave:
			if client.channel != nil {
				client.channel.leave <- client
				client.channel = nil
			}

		case ev := <-h.events:
			h.forward(ev)
		}
	}
}

// Stop gracefully shuts down the hub and all its channels.
// It blocks until the hub has fully shut down.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

// HandleEvent queues a change-feed event for every open channel. It is meant
// to be passed to changefeed.Subscriber.Subscribe and never blocks. When the
// queue is full the event is dropped and every channel reloads its state.
func (h *Hub) HandleEvent(ev changefeed.Event) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("hub event queue full, resyncing channels", "table", ev.Table, "kind", ev.Kind)
		h.mu.RLock()
		for _, ch := range h.channels {
			ch.requestResync()
		}
		h.mu.RUnlock()
	}
}

// forward hands ev to every open channel without blocking the hub. A channel
// that cannot keep up reloads its state instead.
func (h *Hub) forward(ev changefeed.Event) {
	for _, pending := range h.loading {
		pending.events = append(pending.events, ev)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.channels {
		select {
		case ch.events <- ev:
		default:
			h.logger.Warn("channel event queue full, resyncing", "tourney_id", ch.tourneyID)
			ch.requestResync()
		}
	}
}

func (h *Hub) handleJoin(req *JoinRequest) {
	if req.TourneyID == 0 {
		if req.Client.channel == nil {
			req.Client.sendError("NOT_JOINED", "Join a tourney first")
			return
		}
		req.Client.channel.syncState <- req.Client
		return
	}

	if ch := h.Channel(req.TourneyID); ch != nil {
		h.attach(req.Client, ch)
		return
	}

	if pending, ok := h.loading[req.TourneyID]; ok {
		pending.joins = append(pending.joins, req)
		return
	}
	h.loading[req.TourneyID] = &pendingOpen{joins: []*JoinRequest{req}}
	go h.load(req.TourneyID)
}

// load hydrates a tourney off the hub goroutine and reports back on opened.
func (h *Hub) load(tourneyID uint) {
	state, err := h.loader.LoadState(context.Background(), tourneyID)
	select {
	case h.opened <- &openResult{tourneyID: tourneyID, state: state, err: err}:
	case <-h.stop:
	}
}

func (h *Hub) handleOpened(res *openResult) {
	pending := h.loading[res.tourneyID]
	delete(h.loading, res.tourneyID)
	if pending == nil {
		return
	}

	if res.err != nil {
		code, text := "INTERNAL", "Failed to load tourney"
		if errors.Is(res.err, domain.ErrNotFound) {
			code, text = "TOURNEY_NOT_FOUND", "Tourney does not exist"
		} else {
			h.logger.Error("failed to open tourney channel", "tourney_id", res.tourneyID, "error", res.err)
		}
		for _, req := range pending.joins {
			req.Client.sendError(code, text)
		}
		return
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	ch := NewChannel(res.tourneyID, res.state, h.loader, h.logger)
	h.channels[res.tourneyID] = ch
	h.mu.Unlock()

	// Changes seen while loading may postdate the snapshot.
	for _, ev := range pending.events {
		select {
		case ch.events <- ev:
		default:
			ch.requestResync()
		}
	}
	go ch.Run()
	h.logger.Info("opened tourney channel", "tourney_id", res.tourneyID)

	for _, req := range pending.joins {
		h.mu.RLock()
		_, live := h.clients[req.Client]
		h.mu.RUnlock()
		// Clients that disconnected during the load are skipped.
		if live {
			h.attach(req.Client, ch)
		}
	}
}

func (h *Hub) attach(client *Client, ch *Channel) {
	if client.channel == ch {
		ch.syncState <- client
		return
	}
	if client.channel != nil {
		client.channel.leave <- client
	}
	client.channel = ch
	ch.join <- client
}

// Channel returns the open channel of a tourney, or nil.
func (h *Hub) Channel(tourneyID uint) *Channel {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channels[tourneyID]
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Join(client *Client, tourneyID uint) {
	select {
	case h.joinTourney <- &JoinRequest{Client: client, TourneyID: tourneyID}:
	case <-h.done:
	}
}

func (h *Hub) Leave(client *Client) {
	select {
	case h.leave <- client:
	case <-h.done:
	}
}

// Unregister safely unregisters a client, handling the case where the hub may be stopped.
func (h *Hub) Unregister(client *Client) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	if stopped {
		return
	}

	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
