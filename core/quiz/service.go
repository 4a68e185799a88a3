package quiz

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// errors
	ErrBankNotFound  = errors.New("question bank not found")
	ErrGradeNotFound = errors.New("grade not found")
)

type (
	BankRepository interface {
		GetBankByID(ctx context.Context, id int) (Bank, error)
		QueryOwnerBanks(ctx context.Context, ownerID string) ([]Bank, error)
	}

	GradeRepository interface {
		CreateGrade(ctx context.Context, grade Grade) error
		QueryLobbyGrades(ctx context.Context, lobbyID uuid.UUID) ([]Grade, error)
	}

	Service struct {
		banks  BankRepository
		grades GradeRepository
	}
)

func NewService(banks BankRepository, grades GradeRepository) *Service {
	return &Service{banks: banks, grades: grades}
}

func (svc *Service) GetBank(ctx context.Context, id int) (Bank, error) {
	return svc.banks.GetBankByID(ctx, id)
}

func (svc *Service) OwnerBanks(ctx context.Context, ownerID string) ([]Bank, error) {
	return svc.banks.QueryOwnerBanks(ctx, ownerID)
}

func (svc *Service) LobbyGrades(ctx context.Context, lobbyID uuid.UUID) ([]Grade, error) {
	return svc.grades.QueryLobbyGrades(ctx, lobbyID)
}
