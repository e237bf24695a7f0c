package server

import (
	"github.com/verichat/go-verichat/internal/database"
	"github.com/verichat/go-verichat/internal/types"
)

// handleSendMessage persists the text under the connection's bound role,
// recomputes progress from the store and fans both out to the room's
// group. Every observer sees the message event before the progress
// event. Unbound connections and empty texts are dropped.
func (c *Client) handleSendMessage(req *SendMessage) {
	b := c.binding
	if b == nil || req.Text == "" {
		return
	}

	isAnswer := b.role == types.RoleReferee
	msg, err := c.gateway.db.AppendMessage(database.AppendMessageParams{
		RoomId:        b.roomId,
		SenderRole:    b.role,
		Content:       req.Text,
		IsAnswer:      isAnswer,
		QuestionIndex: req.QuestionIndex,
	})
	if err != nil {
		// not applied: report to the sender, broadcast nothing
		c.log.Println("append message:", err)
		c.queueEvent(ErrInternalError())
		return
	}

	c.gateway.stats.Incr(statMessagesRelayed)

	events := []*ServerEvent{
		ReceiveMessageEvent(msg.SenderRole, msg.Content, msg.IsAnswer, msg.QuestionIndex),
	}

	progress, err := c.gateway.progress.Evaluate(b.roomId)
	if err != nil {
		// the message is durable; deliver it and let the next answer's
		// evaluation repair the status
		c.log.Println("evaluate progress:", err)
	} else {
		events = append(events, ProgressEvent(progress))
	}

	c.gateway.Broadcast(b.roomId, events...)
}
