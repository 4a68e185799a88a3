package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/quiz"
)

type bankRepository struct {
	db *bankTable
}

var _ quiz.BankRepository = (*bankRepository)(nil) // interface compliance check

func NewBankRepository(db *DB) *bankRepository {
	return &bankRepository{db: db.bank}
}

// SeedBank registers a bank, for tests and local hacking.
func (repo *bankRepository) SeedBank(bank quiz.Bank) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[bank.ID] = &bank
}

func (repo *bankRepository) GetBankByID(_ context.Context, id int) (quiz.Bank, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if bank, ok := repo.db.table[id]; ok {
		return *bank, nil
	}
	return quiz.Bank{}, quiz.ErrBankNotFound
}

func (repo *bankRepository) QueryOwnerBanks(_ context.Context, ownerID string) ([]quiz.Bank, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	banks := make([]quiz.Bank, 0, len(repo.db.table))
	for _, bank := range repo.db.table {
		if bank.OwnerID == ownerID {
			banks = append(banks, *bank)
		}
	}
	sort.Slice(banks, func(i, j int) bool { return banks[i].ID < banks[j].ID })
	return banks, nil
}

type gradeRepository struct {
	db *gradeTable
}

var _ quiz.GradeRepository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{db: db.grade}
}

func (repo *gradeRepository) CreateGrade(_ context.Context, grade quiz.Grade) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := gradeKey{lobbyID: grade.LobbyID, userID: grade.UserID}
	if _, ok := repo.db.table[key]; ok {
		// keep the first accepted write
		return nil
	}
	repo.db.table[key] = &grade
	return nil
}

func (repo *gradeRepository) QueryLobbyGrades(_ context.Context, lobbyID uuid.UUID) ([]quiz.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	grades := make([]quiz.Grade, 0)
	for key, grade := range repo.db.table {
		if key.lobbyID == lobbyID {
			grades = append(grades, *grade)
		}
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].SubmittedAt.Before(grades[j].SubmittedAt) })
	return grades, nil
}
