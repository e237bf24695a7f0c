package server

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/verichat/go-verichat/internal/database"
	"github.com/verichat/go-verichat/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// binding pairs a connection with its role and room. It is set at most
// once per connection, by the read loop, so a connection can never be
// re-bound or hold two rooms.
type binding struct {
	role   types.Role
	roomId string
}

type Client struct {
	conn    *websocket.Conn
	gateway *Gateway
	log     *log.Logger
	send    chan *ServerEvent
	// binding is nil while the connection is unbound. Only the read loop
	// writes it.
	binding *binding
	stop    chan struct{}
}

func NewClient(conn *websocket.Conn, gw *Gateway, l *log.Logger) *Client {
	return &Client{
		conn:    conn,
		gateway: gw,
		log:     l,
		send:    make(chan *ServerEvent, 256),
		stop:    make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeEvent(event)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var event ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.log.Println("error parsing event:", err)
			c.queueEvent(ErrInternalError())
			continue
		}

		// events from one connection are processed strictly in arrival
		// order: each handler runs to completion before the next read
		switch {
		case event.CreateRoom != nil:
			c.handleCreateRoom(event.CreateRoom)
		case event.JoinRoom != nil:
			c.handleJoinRoom(event.JoinRoom)
		case event.JoinWithToken != nil:
			c.handleJoinWithToken(event.JoinWithToken)
		case event.SendMessage != nil:
			c.handleSendMessage(event.SendMessage)
		}
	}
}

// handleCreateRoom creates a room with the fixed questionnaire seeded,
// binds the connection as HR and announces the initial pending progress
// to the room's group.
func (c *Client) handleCreateRoom(req *CreateRoom) {
	if c.binding != nil {
		c.log.Printf("create_room from bound connection to %q ignored", c.binding.roomId)
		return
	}

	room, err := c.gateway.createRoom(req.CandidateRef)
	if err != nil {
		c.log.Println("create room:", err)
		c.queueEvent(ErrInternalError())
		return
	}

	c.binding = &binding{role: types.RoleHR, roomId: room.ExternalId}
	c.gateway.joinGroup(room.ExternalId, c)

	c.queueEvent(RoomCreatedEvent(room.ExternalId))
	c.gateway.Broadcast(room.ExternalId, ProgressEvent(types.Progress{Answered: 0, Status: types.StatusPending}))
}

// handleJoinRoom re-attaches the initiating party to an existing room.
// An unknown, closed or expired room never binds the connection; the
// caller is told to create a new room instead.
func (c *Client) handleJoinRoom(req *JoinRoom) {
	if c.binding != nil {
		c.log.Printf("join_existing_room from bound connection to %q ignored", c.binding.roomId)
		return
	}

	state, err := c.gateway.db.GetRoomState(req.RoomId)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			c.log.Println("get room state:", err)
		}
		c.queueEvent(ForceCreateRoomEvent())
		return
	}

	if state.IsClosed || state.Expired(time.Now()) {
		c.queueEvent(ForceCreateRoomEvent())
		return
	}

	c.binding = &binding{role: types.RoleHR, roomId: req.RoomId}
	c.gateway.joinGroup(req.RoomId, c)

	c.queueEvent(JoinedRoomEvent(req.RoomId, types.RoleHR))
}

// handleJoinWithToken admits the invited party. The token gate
// (signature, expiry) and the room gate (existence, closure, TTL) are
// checked independently: a still-valid token must not outlive a closed
// or expired room.
func (c *Client) handleJoinWithToken(req *JoinWithToken) {
	if c.binding != nil {
		c.log.Printf("join_with_token from bound connection to %q ignored", c.binding.roomId)
		return
	}

	claims, err := c.gateway.tokens.Verify(req.Token)
	if err != nil {
		c.queueEvent(ErrInvalidInvite())
		return
	}

	state, err := c.gateway.db.GetRoomState(claims.RoomId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.queueEvent(ErrRoomNotFound())
		} else {
			c.log.Println("get room state:", err)
			c.queueEvent(ErrInternalError())
		}
		return
	}

	if state.IsClosed {
		c.queueEvent(ErrVerificationCompleted())
		return
	}

	if state.Expired(time.Now()) {
		c.queueEvent(ErrInviteExpired())
		return
	}

	c.binding = &binding{role: claims.Role, roomId: claims.RoomId}
	c.gateway.joinGroup(claims.RoomId, c)

	c.queueEvent(JoinedRoomEvent(claims.RoomId, claims.Role))
}

func (c *Client) queueEvent(event *ServerEvent) bool {
	select {
	case c.send <- event:
	default:
		c.log.Println("failed to queue event, channel is full")
		return false
	}

	return true
}

func serializeEvent(event *ServerEvent) ([]byte, error) {
	return json.Marshal(event)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

// cleanup releases connection resources and removes group membership.
// Persisted room state is never touched on disconnect.
func (c *Client) cleanup() {
	c.gateway.DeregisterClient(c)
	c.stopClient()
}
