package database

import "errors"

// ErrNotFound is returned when a room id is unknown.
var ErrNotFound = errors.New("room not found")

// VerichatRepository is the room store. Rooms are addressed by their
// external id everywhere above this interface.
type VerichatRepository interface {
	Ping() error
	// CreateRoom inserts the room and seeds the full questionnaire in one
	// transaction: either the room and all question rows exist, or none do.
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomState(externalId string) (RoomState, error)
	// CountAnswers returns the persisted count of messages with
	// is_answer = true for the room.
	CountAnswers(externalId string) (int, error)
	// CloseRoom is idempotent; a closed room never reopens.
	CloseRoom(externalId string) error
	AppendMessage(params AppendMessageParams) (Message, error)
	// ListMessages returns the room's messages ascending by creation time.
	ListMessages(externalId string) ([]Message, error)
}
