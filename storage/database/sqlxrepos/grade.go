package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/quiz"
)

type gradeRow struct {
	LobbyID     uuid.UUID `db:"lobby_id"`
	UserID      string    `db:"user_id"`
	Score       int       `db:"score"`
	SubmittedAt time.Time `db:"submitted_at"`
}

type gradeRepository struct {
	db *sqlx.DB
}

var _ quiz.GradeRepository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

// CreateGrade records a student's result. The write is idempotent: a retry
// after a half-failed attempt must not alter an already persisted row.
func (repo gradeRepository) CreateGrade(ctx context.Context, grade quiz.Grade) error {
	query := `
		INSERT INTO grade (lobby_id, user_id, score, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lobby_id, user_id) DO NOTHING`
	_, err := repo.db.ExecContext(ctx, query, grade.LobbyID, grade.UserID, grade.Score, grade.SubmittedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "inserting grade")
	}
	return nil
}

func (repo gradeRepository) QueryLobbyGrades(ctx context.Context, lobbyID uuid.UUID) ([]quiz.Grade, error) {
	var rows []gradeRow
	query := `SELECT * FROM grade WHERE lobby_id = $1 ORDER BY submitted_at`
	if err := repo.db.SelectContext(ctx, &rows, query, lobbyID); err != nil {
		return nil, errors.Wrap(err, "querying lobby grades")
	}
	grades := make([]quiz.Grade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, quiz.Grade{
			LobbyID:     row.LobbyID,
			UserID:      row.UserID,
			Score:       row.Score,
			SubmittedAt: row.SubmittedAt,
		})
	}
	return grades, nil
}
