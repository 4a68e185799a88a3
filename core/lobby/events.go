package lobby

import (
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
)

// Client → server commands
const (
	CmdCreateLobby = "create-lobby"
	CmdJoinLobby   = "join-lobby"
	CmdLeaveLobby  = "leave-lobby"
	CmdStartQuiz   = "start-quiz"
	CmdEndQuiz     = "end-quiz"
	CmdDeleteLobby = "delete-lobby"
	CmdUpdateBank  = "update-bank"
	CmdSubmitGrade = "submit-grade"
)

// Server → client events
const (
	EvtLobbyUpdate  = "lobby-update"
	EvtLobbyCreated = "lobby-created"
	EvtLobbyDeleted = "lobby-deleted"
	EvtJoinSuccess  = "join-success"
	EvtJoinError    = "join-error"
	EvtQuizStarted  = "quiz-started"
	EvtQuizEnded    = "quiz-ended"
)

// Event is the wire envelope pushed to clients.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Command payloads. The acting user is always the authenticated connection's
// stable user id; client-supplied ids are never trusted for authorization.

type CreateLobby struct {
	Name        string `json:"name" validate:"required,max=100,alphanum_"`
	DurationMin int    `json:"duration_minutes" validate:"required,min=1,max=480"`
	BankID      int    `json:"bank_id" validate:"required,min=1"`
}

func (cl *CreateLobby) Validate() error {
	cl.Name = core.CleanString(cl.Name)
	return core.TranslateValidationErrors(core.Validate.Struct(cl))
}

type JoinLobby struct {
	LobbyID  uuid.UUID `json:"lobby_id" validate:"required"`
	Username string    `json:"username" validate:"required,max=100"`
}

func (jl *JoinLobby) Validate() error {
	jl.Username = core.CleanString(jl.Username)
	return core.TranslateValidationErrors(core.Validate.Struct(jl))
}

type LeaveLobby struct {
	LobbyID uuid.UUID `json:"lobby_id" validate:"required"`
}

func (ll *LeaveLobby) Validate() error {
	return core.TranslateValidationErrors(core.Validate.Struct(ll))
}

type StartQuiz struct {
	LobbyID uuid.UUID `json:"lobby_id" validate:"required"`
}

func (sq *StartQuiz) Validate() error {
	return core.TranslateValidationErrors(core.Validate.Struct(sq))
}

type EndQuiz struct {
	LobbyID uuid.UUID `json:"lobby_id" validate:"required"`
}

func (eq *EndQuiz) Validate() error {
	return core.TranslateValidationErrors(core.Validate.Struct(eq))
}

type DeleteLobby struct {
	LobbyID uuid.UUID `json:"lobby_id" validate:"required"`
}

func (dl *DeleteLobby) Validate() error {
	return core.TranslateValidationErrors(core.Validate.Struct(dl))
}

type UpdateBank struct {
	LobbyID uuid.UUID `json:"lobby_id" validate:"required"`
	BankID  int       `json:"bank_id" validate:"required,min=1"`
}

func (ub *UpdateBank) Validate() error {
	return core.TranslateValidationErrors(core.Validate.Struct(ub))
}

type SubmitGrade struct {
	LobbyID uuid.UUID `json:"lobby_id" validate:"required"`
	Score   int       `json:"score" validate:"min=0"`
}

func (sg *SubmitGrade) Validate() error {
	return core.TranslateValidationErrors(core.Validate.Struct(sg))
}

// Server event payloads.

type QuizStarted struct {
	LobbyID     uuid.UUID `json:"lobby_id"`
	StartTime   time.Time `json:"start_time"`
	DurationMin int       `json:"duration_minutes"`
}

type QuizEnded struct {
	LobbyID uuid.UUID `json:"lobby_id"`
}

type JoinSuccess struct {
	LobbyID   uuid.UUID `json:"lobby_id"`
	LobbyName string    `json:"lobby_name"`
	Lobby     Lobby     `json:"lobby"`
	// Started repeats the quiz-started data for late joiners so they derive
	// the same wall-clock deadline as everyone else.
	Started *QuizStarted `json:"started,omitempty"`
}

type JoinError struct {
	Message string                 `json:"message"`
	Fields  map[string]string      `json:"fields,omitempty"`
	Extra   map[string]interface{} `json:"extra,omitempty"`
}

type LobbyCreated struct {
	Lobby Lobby `json:"lobby"`
}

type LobbyDeleted struct {
	LobbyID uuid.UUID `json:"lobby_id"`
}

type LobbyUpdate struct {
	Lobbies []Lobby `json:"lobbies"`
}
