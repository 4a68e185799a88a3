package sqlxrepos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/lobby"
)

type lobbyRow struct {
	ID          uuid.UUID       `db:"id"`
	Name        string          `db:"name"`
	OwnerID     string          `db:"owner_id"`
	BankID      int             `db:"bank_id"`
	DurationMin int             `db:"duration_min"`
	Status      string          `db:"status"`
	StartedAt   null.Time       `db:"started_at"`
	EndedAt     null.Time       `db:"ended_at"`
	Members     json.RawMessage `db:"members"`
	CreatedAt   null.Time       `db:"created_at"`
}

// lobbyRepository is a write-through journal of in-memory lobby state; the
// live coordinator never reads it back, it only feeds reporting and recovery.
type lobbyRepository struct {
	db *sqlx.DB
}

var _ lobby.Repository = (*lobbyRepository)(nil) // interface compliance check

func NewLobbyRepository(db *sqlx.DB) *lobbyRepository {
	return &lobbyRepository{db: db}
}

func (repo lobbyRepository) pack(l lobby.Lobby) (lobbyRow, error) {
	members, err := json.Marshal(l.Members)
	if err != nil {
		return lobbyRow{}, errors.Wrap(err, "encoding lobby members")
	}
	return lobbyRow{
		ID:          l.ID,
		Name:        l.Name,
		OwnerID:     l.OwnerID,
		BankID:      l.BankID,
		DurationMin: l.DurationMin,
		Status:      string(l.Status),
		StartedAt:   null.NewTime(l.StartedAt.UTC(), !l.StartedAt.IsZero()),
		EndedAt:     null.NewTime(l.EndedAt.UTC(), !l.EndedAt.IsZero()),
		Members:     members,
		CreatedAt:   null.NewTime(l.CreatedAt.UTC(), !l.CreatedAt.IsZero()),
	}, nil
}

func (repo lobbyRepository) unpack(row lobbyRow) (lobby.Lobby, error) {
	var members []lobby.Member
	if len(row.Members) > 0 {
		if err := json.Unmarshal(row.Members, &members); err != nil {
			return lobby.Lobby{}, errors.Wrap(err, "decoding lobby members")
		}
	}
	return lobby.Lobby{
		ID:          row.ID,
		Name:        row.Name,
		OwnerID:     row.OwnerID,
		BankID:      row.BankID,
		DurationMin: row.DurationMin,
		Status:      lobby.Status(row.Status),
		StartedAt:   row.StartedAt.Time,
		EndedAt:     row.EndedAt.Time,
		Members:     members,
		CreatedAt:   row.CreatedAt.Time,
	}, nil
}

func (repo lobbyRepository) UpsertLobby(ctx context.Context, l lobby.Lobby) error {
	row, err := repo.pack(l)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO lobby (id, name, owner_id, bank_id, duration_min, status, started_at, ended_at, members, created_at)
		VALUES (:id, :name, :owner_id, :bank_id, :duration_min, :status, :started_at, :ended_at, :members, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			bank_id = EXCLUDED.bank_id,
			duration_min = EXCLUDED.duration_min,
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at,
			members = EXCLUDED.members`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, query, row); err != nil {
		return errors.Wrap(err, "upserting lobby")
	}
	return nil
}

func (repo lobbyRepository) DeleteLobby(ctx context.Context, id uuid.UUID) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM lobby WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting lobby")
	}
	return nil
}

// QueryLobbies returns all persisted lobby records, oldest first. Used by the
// admin tooling; the live coordinator keeps its own state.
func (repo lobbyRepository) QueryLobbies(ctx context.Context) ([]lobby.Lobby, error) {
	var rows []lobbyRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM lobby ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying lobbies")
	}
	lobbies := make([]lobby.Lobby, 0, len(rows))
	for _, row := range rows {
		l, err := repo.unpack(row)
		if err != nil {
			return nil, err
		}
		lobbies = append(lobbies, l)
	}
	return lobbies, nil
}
