package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/lobby"
	"github.com/trezcool/darasa/core/quiz"
	"github.com/trezcool/darasa/core/user"
)

// In-memory stand-ins for the SQL repositories. Used by API tests and local
// hacking; nothing here survives a restart.
type (
	DB struct {
		user  *userTable
		lobby *lobbyTable
		grade *gradeTable
		bank  *bankTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	lobbyTable struct {
		sync.RWMutex
		table map[uuid.UUID]*lobby.Lobby
	}

	gradeTable struct {
		sync.RWMutex
		table map[gradeKey]*quiz.Grade
	}

	gradeKey struct {
		lobbyID uuid.UUID
		userID  string
	}

	bankTable struct {
		sync.RWMutex
		table map[int]*quiz.Bank
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:  &userTable{table: make(map[string]*user.User)},
		lobby: &lobbyTable{table: make(map[uuid.UUID]*lobby.Lobby)},
		grade: &gradeTable{table: make(map[gradeKey]*quiz.Grade)},
		bank:  &bankTable{table: make(map[int]*quiz.Bank)},
	}
	return db, nil
}
