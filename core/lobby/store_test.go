package lobby

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// nullEmitter drops everything; store tests don't care about delivery.
type nullEmitter struct{}

func (nullEmitter) ToUsers(userIDs []string, evt Event) {}
func (nullEmitter) Global(evt Event)                    {}

func storeLobby(owner, name string, status Status) *Lobby {
	return &Lobby{
		ID:          uuid.New(),
		Name:        name,
		OwnerID:     owner,
		BankID:      5,
		DurationMin: 10,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestStore_CreateRejectsDuplicateOpenName(t *testing.T) {
	s := NewStore(nullEmitter{})

	if err := s.Create(storeLobby("instr1", "L1", StatusOpen)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// same name, same owner, open -> duplicate
	if err := s.Create(storeLobby("instr1", "L1", StatusOpen)); err != ErrDuplicateName {
		t.Errorf("duplicate Create err = %v; want ErrDuplicateName", err)
	}
	// same name, different owner -> fine
	if err := s.Create(storeLobby("instr2", "L1", StatusOpen)); err != nil {
		t.Errorf("Create for other owner failed: %v", err)
	}
	// same name, same owner, but the existing one is no longer open -> fine
	s2 := NewStore(nullEmitter{})
	if err := s2.Create(storeLobby("instr1", "L1", StatusRunning)); err != nil {
		t.Fatal(err)
	}
	if err := s2.Create(storeLobby("instr1", "L1", StatusOpen)); err != nil {
		t.Errorf("Create with non-open namesake failed: %v", err)
	}
}

func TestStore_ListPreservesCreationOrder(t *testing.T) {
	s := NewStore(nullEmitter{})
	l1 := storeLobby("instr1", "A", StatusOpen)
	l2 := storeLobby("instr1", "B", StatusOpen)
	l3 := storeLobby("instr1", "C", StatusOpen)
	for _, l := range []*Lobby{l1, l2, l3} {
		if err := s.Create(l); err != nil {
			t.Fatal(err)
		}
	}
	s.Remove(l2.ID)

	list := s.List()
	if len(list) != 2 || list[0].ID != l1.ID || list[1].ID != l3.ID {
		t.Errorf("List order wrong: %+v", list)
	}
}

func TestStore_RemoveMakesLobbyUnreachable(t *testing.T) {
	s := NewStore(nullEmitter{})
	l := storeLobby("instr1", "L1", StatusOpen)
	if err := s.Create(l); err != nil {
		t.Fatal(err)
	}

	s.Remove(l.ID)

	if _, err := s.Get(l.ID); err != ErrNotFound {
		t.Errorf("Get after Remove err = %v; want ErrNotFound", err)
	}
	if _, err := s.Update(l.ID, func(l *Lobby, emit Emitter) error { return nil }); err != ErrNotFound {
		t.Errorf("Update after Remove err = %v; want ErrNotFound", err)
	}
}

func TestStore_UpdateSerializesPerLobby(t *testing.T) {
	s := NewStore(nullEmitter{})
	l := storeLobby("instr1", "L1", StatusOpen)
	if err := s.Create(l); err != nil {
		t.Fatal(err)
	}

	// hammer the same lobby from many goroutines; joins of the same id must
	// never yield duplicates and the count must equal distinct joiners
	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%8)) // 8 distinct users, heavy duplication
			_, _ = s.Update(l.ID, func(l *Lobby, emit Emitter) error {
				_, err := l.Join(id, id, time.Now())
				return err
			})
		}(i)
	}
	wg.Wait()

	got, err := s.Get(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Members) != 8 {
		t.Errorf("members = %d; want 8 distinct", len(got.Members))
	}
	seen := make(map[string]bool)
	for _, m := range got.Members {
		if seen[m.UserID] {
			t.Errorf("duplicate member %q", m.UserID)
		}
		seen[m.UserID] = true
	}
}

func TestStore_UpdateErrorLeavesStateUntouched(t *testing.T) {
	s := NewStore(nullEmitter{})
	l := storeLobby("instr1", "L1", StatusFinished)
	if err := s.Create(l); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Update(l.ID, func(l *Lobby, emit Emitter) error {
		_, err := l.Join("u1", "alice", time.Now())
		return err
	}); err != ErrLobbyClosed {
		t.Fatalf("Update err = %v; want ErrLobbyClosed", err)
	}

	got, _ := s.Get(l.ID)
	if len(got.Members) != 0 {
		t.Errorf("members = %d; want 0 (no partial application)", len(got.Members))
	}
}
