package database

import (
	"time"

	"github.com/verichat/go-verichat/internal/types"
)

type Room struct {
	Id           int
	ExternalId   string
	CandidateRef string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	IsClosed     bool
}

// RoomState is the subset of room columns the gateway re-checks on every
// join and invite.
type RoomState struct {
	ExpiresAt time.Time
	IsClosed  bool
}

// Expired reports whether the room's TTL elapsed at the given instant.
func (rs RoomState) Expired(now time.Time) bool {
	return !rs.ExpiresAt.IsZero() && rs.ExpiresAt.Before(now)
}

type Message struct {
	Id            int
	RoomId        int
	SenderRole    types.Role
	Content       string
	IsAnswer      bool
	QuestionIndex *int
	CreatedAt     time.Time
}

type CreateRoomParams struct {
	ExternalId   string
	CandidateRef string
	ExpiresAt    time.Time
}

type AppendMessageParams struct {
	RoomId        string
	SenderRole    types.Role
	Content       string
	IsAnswer      bool
	QuestionIndex *int
}
