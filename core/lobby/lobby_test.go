package lobby

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newLobby(status Status) *Lobby {
	return &Lobby{
		ID:          uuid.New(),
		Name:        "L1",
		OwnerID:     "instr1",
		BankID:      5,
		DurationMin: 10,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestLobby_Join_NeverDuplicatesMembers(t *testing.T) {
	l := newLobby(StatusOpen)
	now := time.Now()

	if _, err := l.Join("u1", "alice", now); err != nil {
		t.Fatalf("Join(u1) failed: %v", err)
	}
	if _, err := l.Join("u2", "bob", now); err != nil {
		t.Fatalf("Join(u2) failed: %v", err)
	}

	rejoined, err := l.Join("u1", "alice", now)
	if err != nil {
		t.Fatalf("re-Join(u1) failed: %v", err)
	}
	if !rejoined {
		t.Error("re-Join(u1) should report rejoined")
	}
	if len(l.Members) != 2 {
		t.Errorf("members = %d; want 2", len(l.Members))
	}
	if l.Members[0].UserID != "u1" || l.Members[1].UserID != "u2" {
		t.Errorf("member order = %+v; want join order", l.Members)
	}
}

func TestLobby_Join_TerminalStatusesRejected(t *testing.T) {
	for _, status := range []Status{StatusFinished, StatusCancelled} {
		l := newLobby(status)
		if _, err := l.Join("u1", "alice", time.Now()); err != ErrLobbyClosed {
			t.Errorf("Join on %s lobby: err = %v; want ErrLobbyClosed", status, err)
		}
	}
}

func TestLobby_Join_AcceptedWhileRunning(t *testing.T) {
	l := newLobby(StatusRunning)
	l.StartedAt = time.Now().UTC().Add(-5 * time.Minute)

	if _, err := l.Join("late", "zed", time.Now()); err != nil {
		t.Fatalf("late Join failed: %v", err)
	}
	// the deadline does not move for late joiners
	want := l.StartedAt.Add(10 * time.Minute)
	if !l.Deadline().Equal(want) {
		t.Errorf("Deadline = %v; want %v", l.Deadline(), want)
	}
}

func TestLobby_Leave_NonMemberIsNoop(t *testing.T) {
	l := newLobby(StatusOpen)
	if _, err := l.Join("u1", "alice", time.Now()); err != nil {
		t.Fatal(err)
	}

	if removed := l.Leave("ghost"); removed {
		t.Error("Leave(ghost) should be a no-op")
	}
	if removed := l.Leave("u1"); !removed {
		t.Error("Leave(u1) should remove the member")
	}
	if len(l.Members) != 0 {
		t.Errorf("members = %d; want 0", len(l.Members))
	}
}

func TestLobby_Start(t *testing.T) {
	tests := []struct {
		name      string
		status    Status
		requester string
		wantErr   error
	}{
		{"owner starts open lobby", StatusOpen, "instr1", nil},
		{"non-owner rejected", StatusOpen, "u1", ErrNotOwner},
		{"second start rejected", StatusRunning, "instr1", ErrAlreadyStarted},
		{"finished lobby rejected", StatusFinished, "instr1", ErrLobbyClosed},
		{"cancelled lobby rejected", StatusCancelled, "instr1", ErrLobbyClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLobby(tt.status)
			now := time.Now()

			err := l.Start(tt.requester, now)
			if err != tt.wantErr {
				t.Fatalf("Start() err = %v; want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				if l.Status != StatusRunning {
					t.Errorf("status = %s; want running", l.Status)
				}
				if !l.StartedAt.Equal(now.UTC()) {
					t.Errorf("StartedAt = %v; want %v", l.StartedAt, now.UTC())
				}
			}
		})
	}
}

func TestLobby_Start_StartedAtSetExactlyOnce(t *testing.T) {
	l := newLobby(StatusOpen)
	first := time.Now()

	if err := l.Start("instr1", first); err != nil {
		t.Fatal(err)
	}
	if err := l.Start("instr1", first.Add(time.Minute)); err != ErrAlreadyStarted {
		t.Fatalf("second Start err = %v; want ErrAlreadyStarted", err)
	}
	if !l.StartedAt.Equal(first.UTC()) {
		t.Errorf("StartedAt changed to %v; want %v", l.StartedAt, first.UTC())
	}
}

func TestLobby_Finish_OnlyFromRunning(t *testing.T) {
	l := newLobby(StatusRunning)
	if ok := l.Finish(time.Now()); !ok {
		t.Fatal("Finish on running lobby should transition")
	}
	if l.Status != StatusFinished || l.EndedAt.IsZero() {
		t.Errorf("lobby = %s ended=%v; want finished with EndedAt set", l.Status, l.EndedAt)
	}

	// a second trigger is a no-op
	ended := l.EndedAt
	if ok := l.Finish(time.Now().Add(time.Hour)); ok {
		t.Error("second Finish should be a no-op")
	}
	if !l.EndedAt.Equal(ended) {
		t.Error("EndedAt must not change on a no-op Finish")
	}

	open := newLobby(StatusOpen)
	if ok := open.Finish(time.Now()); ok {
		t.Error("Finish on open lobby should be a no-op")
	}
}

func TestLobby_Cancel(t *testing.T) {
	for _, status := range []Status{StatusOpen, StatusRunning} {
		l := newLobby(status)
		if ok := l.Cancel(time.Now()); !ok {
			t.Errorf("Cancel from %s should transition", status)
		}
		if l.Status != StatusCancelled {
			t.Errorf("status = %s; want cancelled", l.Status)
		}
	}

	done := newLobby(StatusFinished)
	if ok := done.Cancel(time.Now()); ok {
		t.Error("Cancel on finished lobby should be a no-op")
	}
	if done.Status != StatusFinished {
		t.Errorf("status = %s; want finished", done.Status)
	}
}

func TestLobby_SetBank_LockedOnceRunning(t *testing.T) {
	l := newLobby(StatusOpen)
	if err := l.SetBank("instr1", 7); err != nil {
		t.Fatalf("SetBank on open lobby failed: %v", err)
	}
	if l.BankID != 7 {
		t.Errorf("BankID = %d; want 7", l.BankID)
	}

	if err := l.SetBank("u1", 5); err != ErrNotOwner {
		t.Errorf("SetBank by non-owner err = %v; want ErrNotOwner", err)
	}

	if err := l.Start("instr1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := l.SetBank("instr1", 5); err != ErrBankLocked {
		t.Errorf("SetBank on running lobby err = %v; want ErrBankLocked", err)
	}
	if l.BankID != 7 {
		t.Errorf("BankID changed to %d; want 7", l.BankID)
	}
}

func TestLobby_Clone_IsolatesMembers(t *testing.T) {
	l := newLobby(StatusOpen)
	if _, err := l.Join("u1", "alice", time.Now()); err != nil {
		t.Fatal(err)
	}

	cp := l.Clone()
	l.Leave("u1")

	if len(cp.Members) != 1 {
		t.Errorf("clone members = %d; want 1", len(cp.Members))
	}
}
