package progress

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/verichat/go-verichat/internal/database"
	"github.com/verichat/go-verichat/internal/testutil"
	"github.com/verichat/go-verichat/internal/types"
)

func TestEvaluate(t *testing.T) {
	tcases := []struct {
		name           string
		answered       int
		expectedStatus types.Status
		closesRoom     bool
	}{
		{
			name:           "no answers is pending",
			answered:       0,
			expectedStatus: types.StatusPending,
		},
		{
			name:           "one answer is partial",
			answered:       1,
			expectedStatus: types.StatusPartial,
		},
		{
			name:           "four answers is partial",
			answered:       types.TotalQuestions - 1,
			expectedStatus: types.StatusPartial,
		},
		{
			name:           "all answers is completed and closes the room",
			answered:       types.TotalQuestions,
			expectedStatus: types.StatusCompleted,
			closesRoom:     true,
		},
		{
			name:           "extra answers stay completed",
			answered:       types.TotalQuestions + 2,
			expectedStatus: types.StatusCompleted,
			closesRoom:     true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockVerichatRepository{}
			defer db.AssertExpectations(t)

			db.On("CountAnswers", "room-1").Return(tc.answered, nil).Once()
			if tc.closesRoom {
				db.On("CloseRoom", "room-1").Return(nil).Once()
			}

			engine := NewEngine(testutil.TestLogger(t), db)
			progress, err := engine.Evaluate("room-1")
			assert.NoError(t, err, "expected no error evaluating progress")
			assert.Equal(t, tc.answered, progress.Answered, "expected answered count to match the store")
			assert.Equal(t, tc.expectedStatus, progress.Status, "expected status to match")
		})
	}
}

func TestEvaluateIsRecomputedFromStore(t *testing.T) {
	// the status follows the persisted count, monotonic across answers
	db := &database.MockVerichatRepository{}
	defer db.AssertExpectations(t)

	engine := NewEngine(testutil.TestLogger(t), db)

	expected := []types.Status{
		types.StatusPartial,
		types.StatusPartial,
		types.StatusPartial,
		types.StatusPartial,
		types.StatusCompleted,
	}

	for i, want := range expected {
		db.On("CountAnswers", "room-1").Return(i+1, nil).Once()
		if want == types.StatusCompleted {
			db.On("CloseRoom", "room-1").Return(nil).Once()
		}

		progress, err := engine.Evaluate("room-1")
		assert.NoError(t, err, "expected no error evaluating progress")
		assert.Equal(t, i+1, progress.Answered, "expected answered count to increment")
		assert.Equal(t, want, progress.Status, "expected status for %d answers", i+1)
	}
}

func TestEvaluateCompletedIsIdempotent(t *testing.T) {
	db := &database.MockVerichatRepository{}
	defer db.AssertExpectations(t)

	db.On("CountAnswers", "room-1").Return(types.TotalQuestions, nil).Twice()
	db.On("CloseRoom", "room-1").Return(nil).Twice()

	engine := NewEngine(testutil.TestLogger(t), db)

	first, err := engine.Evaluate("room-1")
	assert.NoError(t, err, "expected no error on first evaluation")
	second, err := engine.Evaluate("room-1")
	assert.NoError(t, err, "expected no error re-evaluating a completed room")
	assert.Equal(t, first, second, "expected re-evaluation to yield the same result")
	assert.Equal(t, types.StatusCompleted, second.Status, "expected room to remain completed")
}

func TestEvaluateCountError(t *testing.T) {
	db := &database.MockVerichatRepository{}
	defer db.AssertExpectations(t)

	db.On("CountAnswers", "room-1").Return(0, errors.New("db error")).Once()

	engine := NewEngine(testutil.TestLogger(t), db)
	_, err := engine.Evaluate("room-1")
	assert.Error(t, err, "expected count failure to propagate")
}

func TestEvaluateCloseError(t *testing.T) {
	db := &database.MockVerichatRepository{}
	defer db.AssertExpectations(t)

	db.On("CountAnswers", "room-1").Return(types.TotalQuestions, nil).Once()
	db.On("CloseRoom", "room-1").Return(errors.New("db error")).Once()

	engine := NewEngine(testutil.TestLogger(t), db)
	_, err := engine.Evaluate("room-1")
	assert.Error(t, err, "expected close failure to propagate")
}
