package lobby

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusRunning   Status = "running"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// Member is a participant of a Lobby, identified by their stable user id.
// Membership survives disconnects; only an explicit leave removes it.
type Member struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"` // UTC
}

type Lobby struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	OwnerID     string    `json:"owner_id"`
	BankID      int       `json:"bank_id"`
	DurationMin int       `json:"duration_minutes"`
	Status      Status    `json:"status"`
	StartedAt   time.Time `json:"started_at"` // zero until the quiz starts; set exactly once
	EndedAt     time.Time `json:"ended_at"`   // zero until a terminal status is reached
	Members     []Member  `json:"members"`    // join order, no duplicate user ids
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Deadline is the wall-clock instant the quiz expires. Zero while not started.
func (l *Lobby) Deadline() time.Time {
	if l.StartedAt.IsZero() {
		return time.Time{}
	}
	return l.StartedAt.Add(time.Duration(l.DurationMin) * time.Minute)
}

func (l *Lobby) IsMember(userID string) bool {
	for _, m := range l.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the member user ids in join order.
func (l *Lobby) MemberIDs() []string {
	ids := make([]string, 0, len(l.Members))
	for _, m := range l.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// Clone returns a deep copy safe to use outside the lobby's exclusion region.
func (l *Lobby) Clone() Lobby {
	cp := *l
	cp.Members = make([]Member, len(l.Members))
	copy(cp.Members, l.Members)
	return cp
}

// Join adds userID to the member set. Joining an already-joined lobby is
// idempotent and reported via rejoined. Joins are accepted while the lobby is
// open or running; late joiners keep the original deadline.
func (l *Lobby) Join(userID, username string, now time.Time) (rejoined bool, err error) {
	if l.Status.Terminal() {
		return false, ErrLobbyClosed
	}
	if l.IsMember(userID) {
		return true, nil
	}
	l.Members = append(l.Members, Member{UserID: userID, Username: username, JoinedAt: now.UTC()})
	return false, nil
}

// Leave removes userID from the member set. Removing a non-member is a no-op.
func (l *Lobby) Leave(userID string) (removed bool) {
	for i, m := range l.Members {
		if m.UserID == userID {
			l.Members = append(l.Members[:i], l.Members[i+1:]...)
			return true
		}
	}
	return false
}

// Start transitions open → running. Owner only; StartedAt is set exactly once.
func (l *Lobby) Start(requesterID string, now time.Time) error {
	if requesterID != l.OwnerID {
		return ErrNotOwner
	}
	switch l.Status {
	case StatusOpen:
	case StatusRunning:
		return ErrAlreadyStarted
	default:
		return ErrLobbyClosed
	}
	l.Status = StatusRunning
	l.StartedAt = now.UTC()
	return nil
}

// Finish transitions running → finished. It is a no-op (ok=false) in any
// other status so a concurrent instructor force-end and expiry sweep cannot
// finish a lobby twice.
func (l *Lobby) Finish(now time.Time) (ok bool) {
	if l.Status != StatusRunning {
		return false
	}
	l.Status = StatusFinished
	l.EndedAt = now.UTC()
	return true
}

// Cancel transitions open/running → cancelled. No-op in terminal statuses.
func (l *Lobby) Cancel(now time.Time) (ok bool) {
	if l.Status.Terminal() {
		return false
	}
	l.Status = StatusCancelled
	l.EndedAt = now.UTC()
	return true
}

// SetBank changes the question bank. Owner only, and only while open.
func (l *Lobby) SetBank(requesterID string, bankID int) error {
	if requesterID != l.OwnerID {
		return ErrNotOwner
	}
	if l.Status != StatusOpen {
		return ErrBankLocked
	}
	l.BankID = bankID
	return nil
}
