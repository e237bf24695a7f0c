package server

import (
	"time"

	"github.com/verichat/go-verichat/internal/types"
)

// ClientEvent is the envelope for everything a connection can send.
// Exactly one field is expected to be set.
type ClientEvent struct {
	CreateRoom    *CreateRoom    `json:"create_room,omitempty"`
	JoinRoom      *JoinRoom      `json:"join_existing_room,omitempty"`
	JoinWithToken *JoinWithToken `json:"join_with_token,omitempty"`
	SendMessage   *SendMessage   `json:"send_message,omitempty"`
}

type CreateRoom struct {
	CandidateRef string `json:"candidate_ref"`
}

type JoinRoom struct {
	RoomId string `json:"room_id"`
}

type JoinWithToken struct {
	Token string `json:"token"`
}

type SendMessage struct {
	Text          string `json:"text"`
	QuestionIndex *int   `json:"question_index,omitempty"`
}

// ServerEvent is the envelope for everything the gateway emits, either
// to a single connection or to a room's broadcast group.
type ServerEvent struct {
	Timestamp       time.Time        `json:"timestamp"`
	RoomCreated     *RoomCreated     `json:"room_created,omitempty"`
	JoinedRoom      *JoinedRoom      `json:"joined_room,omitempty"`
	ForceCreateRoom *ForceCreateRoom `json:"force_create_room,omitempty"`
	Error           *ErrorEvent      `json:"error,omitempty"`
	ReceiveMessage  *ReceiveMessage  `json:"receive_message,omitempty"`
	Progress        *types.Progress  `json:"verification_progress,omitempty"`
}

type RoomCreated struct {
	RoomId string `json:"room_id"`
}

type JoinedRoom struct {
	RoomId string     `json:"room_id"`
	Role   types.Role `json:"role"`
}

// ForceCreateRoom tells the initiating party its room is unusable and a
// new one must be created.
type ForceCreateRoom struct{}

type ErrorEvent struct {
	Message string `json:"message"`
}

type ReceiveMessage struct {
	Sender        types.Role `json:"sender"`
	Text          string     `json:"text"`
	IsAnswer      bool       `json:"is_answer"`
	QuestionIndex *int       `json:"question_index,omitempty"`
}

func RoomCreatedEvent(roomId string) *ServerEvent {
	return &ServerEvent{
		Timestamp:   Now(),
		RoomCreated: &RoomCreated{RoomId: roomId},
	}
}

func JoinedRoomEvent(roomId string, role types.Role) *ServerEvent {
	return &ServerEvent{
		Timestamp:  Now(),
		JoinedRoom: &JoinedRoom{RoomId: roomId, Role: role},
	}
}

func ForceCreateRoomEvent() *ServerEvent {
	return &ServerEvent{
		Timestamp:       Now(),
		ForceCreateRoom: &ForceCreateRoom{},
	}
}

func ProgressEvent(progress types.Progress) *ServerEvent {
	return &ServerEvent{
		Timestamp: Now(),
		Progress:  &progress,
	}
}

func ReceiveMessageEvent(sender types.Role, text string, isAnswer bool, questionIndex *int) *ServerEvent {
	return &ServerEvent{
		Timestamp: Now(),
		ReceiveMessage: &ReceiveMessage{
			Sender:        sender,
			Text:          text,
			IsAnswer:      isAnswer,
			QuestionIndex: questionIndex,
		},
	}
}

func errorEvent(message string) *ServerEvent {
	return &ServerEvent{
		Timestamp: Now(),
		Error:     &ErrorEvent{Message: message},
	}
}

func ErrRoomNotFound() *ServerEvent { return errorEvent("Room not found") }

func ErrInviteExpired() *ServerEvent { return errorEvent("Invite expired") }

func ErrVerificationCompleted() *ServerEvent { return errorEvent("Verification completed") }

func ErrInvalidInvite() *ServerEvent { return errorEvent("Invalid or expired invite") }

func ErrInternalError() *ServerEvent { return errorEvent("internal server error") }

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
