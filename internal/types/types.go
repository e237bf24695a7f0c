package types

// Role identifies the sender of a message or the party bound to a
// connection. SYSTEM is only used for the seeded questionnaire.
type Role string

const (
	RoleHR      Role = "HR"
	RoleReferee Role = "REFEREE"
	RoleSystem  Role = "SYSTEM"
)

func (r Role) Valid() bool {
	switch r {
	case RoleHR, RoleReferee, RoleSystem:
		return true
	}
	return false
}

// Status summarizes how far the referee has progressed through the
// questionnaire.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusCompleted Status = "completed"
)

// TotalQuestions is the number of questions seeded into every room.
// A room is complete once this many answers are persisted.
const TotalQuestions = 5

// VerificationQuestions is the fixed questionnaire. Seed order defines
// each question's index.
var VerificationQuestions = [TotalQuestions]string{
	"Can you confirm the candidate's job title?",
	"What was the employment duration (from - to)?",
	"Can you briefly describe their responsibilities?",
	"How would you rate their performance?",
	"Would you rehire this candidate? (Yes / No / Neutral)",
}

type Progress struct {
	Answered int    `json:"answered"`
	Status   Status `json:"status"`
}

// MessageView is the read-model returned by the message history endpoint.
type MessageView struct {
	Sender   Role   `json:"sender"`
	Text     string `json:"text"`
	IsAnswer bool   `json:"is_answer"`
}
