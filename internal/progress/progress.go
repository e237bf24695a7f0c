// Package progress derives a room's verification status from the
// persisted answer count. The count is re-read from the store on every
// evaluation so that concurrent evaluations from multiple connections
// always converge on what is durably stored.
package progress

import (
	"fmt"
	"log"

	"github.com/verichat/go-verichat/internal/database"
	"github.com/verichat/go-verichat/internal/types"
)

type Engine struct {
	log *log.Logger
	db  database.VerichatRepository
}

func NewEngine(logger *log.Logger, db database.VerichatRepository) *Engine {
	return &Engine{log: logger, db: db}
}

// Evaluate recomputes the room's progress. Transitioning into completed
// closes the room; CloseRoom is idempotent, so concurrent evaluations of
// a finished room are harmless.
func (e *Engine) Evaluate(roomId string) (types.Progress, error) {
	answered, err := e.db.CountAnswers(roomId)
	if err != nil {
		return types.Progress{}, fmt.Errorf("count answers: %w", err)
	}

	status := types.StatusPending
	switch {
	case answered >= types.TotalQuestions:
		status = types.StatusCompleted
		if err := e.db.CloseRoom(roomId); err != nil {
			return types.Progress{}, fmt.Errorf("close room %q: %w", roomId, err)
		}
		e.log.Printf("room %q completed with %d answers", roomId, answered)
	case answered > 0:
		status = types.StatusPartial
	}

	return types.Progress{Answered: answered, Status: status}, nil
}
