package lobby

import (
	"testing"

	"github.com/google/uuid"
)

func TestCreateLobby_Validate(t *testing.T) {
	tests := []struct {
		name    string
		data    CreateLobby
		wantErr bool
	}{
		{"valid", CreateLobby{Name: "Algebra quiz", DurationMin: 10, BankID: 5}, false},
		{"trims name", CreateLobby{Name: "  Algebra quiz  ", DurationMin: 10, BankID: 5}, false},
		{"missing name", CreateLobby{DurationMin: 10, BankID: 5}, true},
		{"zero duration", CreateLobby{Name: "Quiz", BankID: 5}, true},
		{"excessive duration", CreateLobby{Name: "Quiz", DurationMin: 1000, BankID: 5}, true},
		{"missing bank", CreateLobby{Name: "Quiz", DurationMin: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJoinLobby_Validate(t *testing.T) {
	if err := (&JoinLobby{LobbyID: uuid.New(), Username: "alice"}).Validate(); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}
	if err := (&JoinLobby{Username: "alice"}).Validate(); err == nil {
		t.Error("missing lobby id should be rejected")
	}
	if err := (&JoinLobby{LobbyID: uuid.New()}).Validate(); err == nil {
		t.Error("missing username should be rejected")
	}
}

func TestSubmitGrade_Validate(t *testing.T) {
	if err := (&SubmitGrade{LobbyID: uuid.New(), Score: 0}).Validate(); err != nil {
		t.Errorf("zero score should be allowed: %v", err)
	}
	if err := (&SubmitGrade{LobbyID: uuid.New(), Score: -1}).Validate(); err == nil {
		t.Error("negative score should be rejected")
	}
}
