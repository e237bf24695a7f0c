package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/verichat/go-verichat/internal/database"
	"github.com/verichat/go-verichat/internal/server"
	"github.com/verichat/go-verichat/internal/types"
)

type CreateInviteRequest struct {
	RoomId string `json:"room_id"`
}

type CreateInviteResponse struct {
	InviteLink string `json:"invite_link"`
}

func (s *VerichatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *VerichatApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// listMessages returns the room's history in ascending creation order.
// Store failures degrade to an empty list rather than a 5xx so a client
// rendering history never breaks on a transient read error.
func (s *VerichatApp) listMessages(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("roomId")

	messages, err := s.db.ListMessages(roomId)
	if err != nil {
		s.log.Println("list messages:", err)
		s.writeJson(w, http.StatusOK, []types.MessageView{})
		return
	}

	views := make([]types.MessageView, len(messages))
	for i, msg := range messages {
		views[i] = types.MessageView{
			Sender:   msg.SenderRole,
			Text:     msg.Content,
			IsAnswer: msg.IsAnswer,
		}
	}

	s.writeJson(w, http.StatusOK, views)
}

// createInvite issues a signed referee invite for a live room. The
// token's validity is independent of the room's: the gateway re-checks
// room liveness whenever the token is used.
func (s *VerichatApp) createInvite(w http.ResponseWriter, r *http.Request) {
	var req CreateInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.RoomId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	state, err := s.db.GetRoomState(req.RoomId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if state.IsClosed {
		errResp := NewRoomClosedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if state.Expired(time.Now()) {
		errResp := NewRoomExpiredError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	tok, err := s.tokens.Issue(req.RoomId, types.RoleReferee, inviteTokenTTL)
	if err != nil {
		s.log.Println("issue invite token:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.stats.Incr(statInvitesIssued)

	s.writeJson(w, http.StatusOK, CreateInviteResponse{
		InviteLink: fmt.Sprintf("%s/verify?token=%s", s.inviteBaseURL, tok),
	})
}

func (s *VerichatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(conn, s.gateway, s.log)

	s.gateway.RegisterClient(client)
	go client.Write()
	go client.Read()
}
