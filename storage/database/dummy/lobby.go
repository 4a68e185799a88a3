package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/lobby"
)

type lobbyRepository struct {
	db *lobbyTable
}

var _ lobby.Repository = (*lobbyRepository)(nil) // interface compliance check

func NewLobbyRepository(db *DB) *lobbyRepository {
	return &lobbyRepository{db: db.lobby}
}

func (repo *lobbyRepository) UpsertLobby(_ context.Context, l lobby.Lobby) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := l.Clone()
	repo.db.table[l.ID] = &cp
	return nil
}

func (repo *lobbyRepository) DeleteLobby(_ context.Context, id uuid.UUID) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.table, id)
	return nil
}

func (repo *lobbyRepository) QueryLobbies(_ context.Context) ([]lobby.Lobby, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lobbies := make([]lobby.Lobby, 0, len(repo.db.table))
	for _, l := range repo.db.table {
		lobbies = append(lobbies, l.Clone())
	}
	sort.Slice(lobbies, func(i, j int) bool { return lobbies[i].CreatedAt.Before(lobbies[j].CreatedAt) })
	return lobbies, nil
}
