package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/quiz"
)

type bankRow struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	OwnerID   string    `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type questionRow struct {
	ID      int            `db:"id"`
	BankID  int            `db:"bank_id"`
	Text    string         `db:"text"`
	Choices pq.StringArray `db:"choices"`
	Answer  int            `db:"answer"`
	Points  int            `db:"points"`
}

type bankRepository struct {
	db *sqlx.DB
}

var _ quiz.BankRepository = (*bankRepository)(nil) // interface compliance check

func NewBankRepository(db *sqlx.DB) *bankRepository {
	return &bankRepository{db: db}
}

func (repo bankRepository) unpack(row bankRow, questions []questionRow) quiz.Bank {
	bank := quiz.Bank{
		ID:        row.ID,
		Name:      row.Name,
		OwnerID:   row.OwnerID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Questions: make([]quiz.Question, 0, len(questions)),
	}
	for _, q := range questions {
		bank.Questions = append(bank.Questions, quiz.Question{
			ID:      q.ID,
			Text:    q.Text,
			Choices: q.Choices,
			Answer:  q.Answer,
			Points:  q.Points,
		})
	}
	return bank
}

func (repo bankRepository) GetBankByID(ctx context.Context, id int) (quiz.Bank, error) {
	var row bankRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM bank WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return quiz.Bank{}, quiz.ErrBankNotFound
		}
		return quiz.Bank{}, errors.Wrap(err, "finding bank by ID")
	}

	var questions []questionRow
	query := `SELECT * FROM question WHERE bank_id = $1 ORDER BY id`
	if err := repo.db.SelectContext(ctx, &questions, query, id); err != nil {
		return quiz.Bank{}, errors.Wrap(err, "querying bank questions")
	}
	return repo.unpack(row, questions), nil
}

func (repo bankRepository) QueryOwnerBanks(ctx context.Context, ownerID string) ([]quiz.Bank, error) {
	var rows []bankRow
	query := `SELECT * FROM bank WHERE owner_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, errors.Wrap(err, "querying owner banks")
	}
	if len(rows) == 0 {
		return []quiz.Bank{}, nil
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	in, args, err := sqlx.In(`SELECT * FROM question WHERE bank_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building bank questions query")
	}
	var questions []questionRow
	if err := repo.db.SelectContext(ctx, &questions, repo.db.Rebind(in), args...); err != nil {
		return nil, errors.Wrap(err, "querying bank questions")
	}

	byBank := make(map[int][]questionRow, len(rows))
	for _, q := range questions {
		byBank[q.BankID] = append(byBank[q.BankID], q)
	}
	banks := make([]quiz.Bank, 0, len(rows))
	for _, row := range rows {
		banks = append(banks, repo.unpack(row, byBank[row.ID]))
	}
	return banks, nil
}
