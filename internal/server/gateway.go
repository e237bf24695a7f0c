package server

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/teris-io/shortid"
	"github.com/verichat/go-verichat/internal/database"
	"github.com/verichat/go-verichat/internal/progress"
	"github.com/verichat/go-verichat/internal/stats"
	"github.com/verichat/go-verichat/internal/token"
)

const (
	statActiveConnections = "ActiveConnections"
	statActiveRooms       = "ActiveRooms"
	statMessagesRelayed   = "MessagesRelayed"
	statRoomsCreated      = "RoomsCreated"
)

// Gateway owns every live connection and the broadcast group registry.
// Groups map a room id to the set of currently-joined connections;
// joinGroup and leaveGroup are the only mutators. The store remains the
// single source of truth for room state.
type Gateway struct {
	log        *log.Logger
	db         database.VerichatRepository
	tokens     *token.Codec
	progress   *progress.Engine
	stats      stats.Provider
	roomTTL    time.Duration
	sid        *shortid.Shortid
	clients    map[*Client]struct{}
	clientLock sync.Mutex
	groups     map[string]map[*Client]struct{}
	groupLock  sync.RWMutex
}

func NewGateway(logger *log.Logger, db database.VerichatRepository, codec *token.Codec, engine *progress.Engine, su stats.Provider, roomTTL time.Duration) (*Gateway, error) {
	sid, err := shortid.New(1, shortid.DefaultABC, uint64(time.Now().UnixNano()))
	if err != nil {
		return nil, fmt.Errorf("shortid: %w", err)
	}

	gw := &Gateway{
		log:      logger,
		db:       db,
		tokens:   codec,
		progress: engine,
		stats:    su,
		roomTTL:  roomTTL,
		sid:      sid,
		clients:  make(map[*Client]struct{}),
		groups:   make(map[string]map[*Client]struct{}),
	}

	su.RegisterMetric(statActiveConnections)
	su.RegisterMetric(statActiveRooms)
	su.RegisterMetric(statMessagesRelayed)
	su.RegisterMetric(statRoomsCreated)

	return gw, nil
}

func (gw *Gateway) RegisterClient(c *Client) {
	gw.clientLock.Lock()
	defer gw.clientLock.Unlock()
	gw.clients[c] = struct{}{}
	gw.stats.Incr(statActiveConnections)
}

// DeregisterClient removes the connection from the client set and from
// its broadcast group, if any. It has no effect on persisted state.
func (gw *Gateway) DeregisterClient(c *Client) {
	gw.clientLock.Lock()
	if _, ok := gw.clients[c]; ok {
		delete(gw.clients, c)
		gw.stats.Decr(statActiveConnections)
	}
	gw.clientLock.Unlock()

	if b := c.binding; b != nil {
		gw.leaveGroup(b.roomId, c)
	}
}

// createRoom inserts the room with its TTL fixed at creation.
func (gw *Gateway) createRoom(candidateRef string) (database.Room, error) {
	externalId, err := gw.sid.Generate()
	if err != nil {
		return database.Room{}, fmt.Errorf("generate room id: %w", err)
	}

	room, err := gw.db.CreateRoom(database.CreateRoomParams{
		ExternalId:   externalId,
		CandidateRef: candidateRef,
		ExpiresAt:    time.Now().UTC().Add(gw.roomTTL),
	})
	if err != nil {
		return database.Room{}, err
	}

	gw.stats.Incr(statRoomsCreated)
	gw.log.Printf("created room %q for candidate %q", room.ExternalId, candidateRef)

	return room, nil
}

func (gw *Gateway) joinGroup(roomId string, c *Client) {
	gw.groupLock.Lock()
	defer gw.groupLock.Unlock()

	group, ok := gw.groups[roomId]
	if !ok {
		group = make(map[*Client]struct{})
		gw.groups[roomId] = group
		gw.stats.Incr(statActiveRooms)
	}
	group[c] = struct{}{}
}

func (gw *Gateway) leaveGroup(roomId string, c *Client) {
	gw.groupLock.Lock()
	defer gw.groupLock.Unlock()

	group, ok := gw.groups[roomId]
	if !ok {
		return
	}

	delete(group, c)
	if len(group) == 0 {
		delete(gw.groups, roomId)
		gw.stats.Decr(statActiveRooms)
	}
}

// Broadcast queues the events, in order, to every connection currently
// joined to the room's group. Ordering is preserved per observer: each
// client receives the events on its send channel in the order given.
func (gw *Gateway) Broadcast(roomId string, events ...*ServerEvent) {
	gw.groupLock.RLock()
	members := make([]*Client, 0, len(gw.groups[roomId]))
	for c := range gw.groups[roomId] {
		members = append(members, c)
	}
	gw.groupLock.RUnlock()

	for _, c := range members {
		for _, event := range events {
			c.queueEvent(event)
		}
	}
}

// Shutdown stops every client connection and waits for the group
// registry to drain or the context to expire.
func (gw *Gateway) Shutdown(ctx context.Context) error {
	gw.clientLock.Lock()
	for c := range gw.clients {
		c.stopClient()
	}
	gw.clientLock.Unlock()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		gw.groupLock.RLock()
		remaining := len(gw.groups)
		gw.groupLock.RUnlock()
		if remaining == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("gateway shutdown: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
