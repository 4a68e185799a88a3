package quiz

import (
	"time"

	"github.com/google/uuid"
)

// Question is a single question of a Bank.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
	Answer  int      `json:"-"` // index into Choices; never serialized to clients
	Points  int      `json:"points"`
}

// Bank is an instructor-owned set of questions a lobby can run.
type Bank struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	OwnerID   string     `json:"owner_id"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"created_at"` // UTC
	UpdatedAt time.Time  `json:"updated_at"` // UTC
}

// MaxScore is the total number of points obtainable in the bank.
func (b Bank) MaxScore() int {
	var total int
	for _, q := range b.Questions {
		total += q.Points
	}
	return total
}

// Grade is one student's accepted result for one lobby.
// There is at most one Grade per (LobbyID, UserID) pair.
type Grade struct {
	LobbyID     uuid.UUID `json:"lobby_id"`
	UserID      string    `json:"user_id"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"` // UTC
}
