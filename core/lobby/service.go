package lobby

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/quiz"
	"github.com/trezcool/darasa/core/user"
)

// errNoTransition signals a sweep that found the lobby already out of the
// expected state; the caller treats it as a clean no-op.
var errNoTransition = errors.New("no transition")

type (
	// Repository is the external persistence collaborator for lobby records.
	// Calls are best-effort: a failure never rolls back in-memory state.
	Repository interface {
		UpsertLobby(ctx context.Context, l Lobby) error
		DeleteLobby(ctx context.Context, id uuid.UUID) error
	}

	// UserDirectory resolves stable user ids to full users (for the results
	// email). user.Service satisfies it.
	UserDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	ServiceOptions struct {
		Repo    Repository
		Banks   quiz.BankRepository
		Grades  quiz.GradeRepository
		Users   UserDirectory
		MailSvc core.EmailService
		Logger  core.Logger
		Conf    core.LobbyConfig
	}

	// Service coordinates the real-time quiz session protocol: membership,
	// lifecycle transitions, broadcasts and grade collection. Transitions are
	// computed inside the Store's per-lobby exclusion region; persistence and
	// email always happen after commit, from the committed snapshot.
	Service struct {
		repo    Repository
		banks   quiz.BankRepository
		grades  quiz.GradeRepository
		users   UserDirectory
		mailSvc core.EmailService
		logger  core.Logger
		conf    core.LobbyConfig

		registry  *Registry
		router    *Router
		store     *Store
		collector *Collector
	}
)

func NewService(opts ServiceOptions) *Service {
	registry := NewRegistry()
	router := NewRouter(registry, opts.Logger)
	svc := &Service{
		repo:      opts.Repo,
		banks:     opts.Banks,
		grades:    opts.Grades,
		users:     opts.Users,
		mailSvc:   opts.MailSvc,
		logger:    opts.Logger,
		conf:      opts.Conf,
		registry:  registry,
		router:    router,
		store:     NewStore(router),
		collector: NewCollector(opts.Grades, opts.Logger, opts.Conf),
	}
	return svc
}

func (svc *Service) Registry() *Registry { return svc.registry }
func (svc *Service) Router() *Router     { return svc.router }

// List returns all active lobbies in creation order (the public browser).
func (svc *Service) List() []Lobby {
	return svc.store.List()
}

func (svc *Service) Get(id uuid.UUID) (Lobby, error) {
	return svc.store.Get(id)
}

// Snapshot is the full lobby-update event sent to a freshly subscribed
// connection.
func (svc *Service) Snapshot() Event {
	return Event{Event: EvtLobbyUpdate, Data: LobbyUpdate{Lobbies: svc.store.List()}}
}

// Create opens a new lobby owned by ownerID.
func (svc *Service) Create(ctx context.Context, ownerID string, data CreateLobby) (Lobby, error) {
	if _, err := svc.banks.GetBankByID(ctx, data.BankID); err != nil {
		if err == quiz.ErrBankNotFound {
			return Lobby{}, core.NewValidationError(err, core.FieldError{Field: "bank_id", Error: err.Error()})
		}
		return Lobby{}, errors.Wrap(err, "fetching question bank")
	}

	l := &Lobby{
		ID:          uuid.New(),
		Name:        data.Name,
		OwnerID:     ownerID,
		BankID:      data.BankID,
		DurationMin: data.DurationMin,
		Status:      StatusOpen,
		CreatedAt:   core.NowFunc().UTC(),
	}
	if err := svc.store.Create(l); err != nil {
		return Lobby{}, err
	}

	snapshot := l.Clone()
	svc.router.Global(Event{Event: EvtLobbyCreated, Data: LobbyCreated{Lobby: snapshot}})
	svc.broadcastList()
	svc.persistLobby(snapshot)
	return snapshot, nil
}

// Join adds userID to the lobby. Re-joining is idempotent: the member set is
// untouched and the current snapshot is re-sent.
func (svc *Service) Join(ctx context.Context, userID string, data JoinLobby) (Lobby, error) {
	l, err := svc.store.Update(data.LobbyID, func(l *Lobby, emit Emitter) error {
		if _, err := l.Join(userID, data.Username, core.NowFunc()); err != nil {
			return err
		}
		js := JoinSuccess{LobbyID: l.ID, LobbyName: l.Name, Lobby: l.Clone()}
		if l.Status == StatusRunning {
			js.Started = &QuizStarted{LobbyID: l.ID, StartTime: l.StartedAt, DurationMin: l.DurationMin}
		}
		emit.ToUsers([]string{userID}, Event{Event: EvtJoinSuccess, Data: js})
		return nil
	})
	if err != nil {
		return Lobby{}, err
	}
	svc.broadcastList()
	return l, nil
}

// Leave removes userID from the lobby; leaving a lobby one is not a member of
// is a no-op.
func (svc *Service) Leave(ctx context.Context, userID string, data LeaveLobby) error {
	_, err := svc.store.Update(data.LobbyID, func(l *Lobby, emit Emitter) error {
		l.Leave(userID)
		return nil
	})
	if err != nil {
		return err
	}
	svc.broadcastList()
	return nil
}

// Start transitions the lobby to running and broadcasts quiz-started carrying
// the authoritative start time and duration, so every client derives the same
// countdown deadline regardless of local clock drift.
func (svc *Service) Start(ctx context.Context, requesterID string, data StartQuiz) (Lobby, error) {
	l, err := svc.store.Update(data.LobbyID, func(l *Lobby, emit Emitter) error {
		if err := l.Start(requesterID, core.NowFunc()); err != nil {
			return err
		}
		emit.ToUsers(l.MemberIDs(), Event{
			Event: EvtQuizStarted,
			Data:  QuizStarted{LobbyID: l.ID, StartTime: l.StartedAt, DurationMin: l.DurationMin},
		})
		return nil
	})
	if err != nil {
		return Lobby{}, err
	}
	svc.broadcastList()
	svc.persistLobby(l)
	return l, nil
}

// End force-ends a running quiz (owner only).
func (svc *Service) End(ctx context.Context, requesterID string, data EndQuiz) (Lobby, error) {
	l, err := svc.store.Update(data.LobbyID, func(l *Lobby, emit Emitter) error {
		if requesterID != l.OwnerID {
			return ErrNotOwner
		}
		if !l.Finish(core.NowFunc()) {
			if l.Status.Terminal() {
				return ErrLobbyClosed
			}
			return ErrNotRunning
		}
		emit.ToUsers(l.MemberIDs(), Event{Event: EvtQuizEnded, Data: QuizEnded{LobbyID: l.ID}})
		return nil
	})
	if err != nil {
		return Lobby{}, err
	}
	svc.finished(l)
	return l, nil
}

// Expire is the server-side wall-clock deadline check (running → finished).
// The server is authoritative for expiry; a lobby that already left running
// is a clean no-op, which makes concurrent triggers harmless.
func (svc *Service) Expire(id uuid.UUID) {
	l, err := svc.store.Update(id, func(l *Lobby, emit Emitter) error {
		if l.Status != StatusRunning || core.NowFunc().Before(l.Deadline()) {
			return errNoTransition
		}
		l.Finish(core.NowFunc())
		emit.ToUsers(l.MemberIDs(), Event{Event: EvtQuizEnded, Data: QuizEnded{LobbyID: l.ID}})
		return nil
	})
	if err != nil {
		if err != errNoTransition && err != ErrNotFound {
			svc.logger.Error("lobby: expiry failed", errors.Wrapf(err, "expiring lobby %s", id))
		}
		return
	}
	svc.finished(l)
}

// Delete cancels the lobby (owner only) and removes it from the store.
// Members receive lobby-deleted before the lobby becomes unreachable.
func (svc *Service) Delete(ctx context.Context, requesterID string, data DeleteLobby) error {
	_, err := svc.store.Update(data.LobbyID, func(l *Lobby, emit Emitter) error {
		if requesterID != l.OwnerID {
			return ErrNotOwner
		}
		l.Cancel(core.NowFunc())
		deleted := Event{Event: EvtLobbyDeleted, Data: LobbyDeleted{LobbyID: l.ID}}
		emit.ToUsers(l.MemberIDs(), deleted)
		emit.Global(deleted)
		return nil
	})
	if err != nil {
		return err
	}
	svc.store.Remove(data.LobbyID)
	svc.collector.DropLobby(data.LobbyID)
	svc.broadcastList()
	svc.deleteLobbyRecord(data.LobbyID)
	return nil
}

// SetBank swaps the question bank of an open lobby (owner only).
func (svc *Service) SetBank(ctx context.Context, requesterID string, data UpdateBank) (Lobby, error) {
	if _, err := svc.banks.GetBankByID(ctx, data.BankID); err != nil {
		if err == quiz.ErrBankNotFound {
			return Lobby{}, core.NewValidationError(err, core.FieldError{Field: "bank_id", Error: err.Error()})
		}
		return Lobby{}, errors.Wrap(err, "fetching question bank")
	}

	l, err := svc.store.Update(data.LobbyID, func(l *Lobby, emit Emitter) error {
		return l.SetBank(requesterID, data.BankID)
	})
	if err != nil {
		return Lobby{}, err
	}
	svc.broadcastList()
	svc.persistLobby(l)
	return l, nil
}

// SubmitGrade records userID's score for the lobby, exactly once per
// (lobby, user) pair. Submissions are accepted while the quiz is running and,
// as a grace for finishes racing the deadline, right after it finished.
func (svc *Service) SubmitGrade(ctx context.Context, userID string, data SubmitGrade) error {
	// guards run inside the lobby's exclusion region; no state is mutated
	if _, err := svc.store.Update(data.LobbyID, func(l *Lobby, emit Emitter) error {
		if !l.IsMember(userID) {
			return ErrNotMember
		}
		switch l.Status {
		case StatusRunning, StatusFinished:
			return nil
		case StatusOpen:
			return ErrNotRunning
		default:
			return ErrLobbyClosed
		}
	}); err != nil {
		return err
	}
	return svc.collector.Submit(ctx, data.LobbyID, userID, data.Score)
}

// RemoveTerminal drops a terminal lobby from the store once its grace period
// elapsed; the Sweeper calls this.
func (svc *Service) RemoveTerminal(id uuid.UUID) {
	l, err := svc.store.Get(id)
	if err != nil || !l.Status.Terminal() {
		return
	}
	svc.store.Remove(id)
	svc.collector.DropLobby(id)
	svc.router.Global(Event{Event: EvtLobbyDeleted, Data: LobbyDeleted{LobbyID: id}})
	svc.broadcastList()
}

// Shutdown flushes lobby state to persistence best-effort and waits for
// queued grade writes to drain.
func (svc *Service) Shutdown(ctx context.Context) error {
	for _, l := range svc.store.List() {
		if err := svc.repo.UpsertLobby(ctx, l); err != nil {
			svc.logger.Warn("lobby: shutdown flush failed", errors.Wrapf(err, "persisting lobby %s", l.ID))
		}
	}
	return svc.collector.Wait(ctx)
}

// finished handles the common post-commit work of both finish paths.
func (svc *Service) finished(l Lobby) {
	svc.broadcastList()
	svc.persistLobby(l)
	svc.sendResults(l)
}

func (svc *Service) broadcastList() {
	svc.router.Global(Event{Event: EvtLobbyUpdate, Data: LobbyUpdate{Lobbies: svc.store.List()}})
}

// persistLobby writes the committed snapshot through to the persistence
// collaborator without blocking the caller.
func (svc *Service) persistLobby(l Lobby) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.repo.UpsertLobby(ctx, l); err != nil {
			svc.logger.Warn("lobby: persistence write failed", errors.Wrapf(err, "persisting lobby %s", l.ID))
		}
	}()
}

func (svc *Service) deleteLobbyRecord(id uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.repo.DeleteLobby(ctx, id); err != nil {
			svc.logger.Warn("lobby: persistence delete failed", errors.Wrapf(err, "deleting lobby %s", id))
		}
	}()
}

// sendResults emails the owning instructor a summary of the accepted grades.
// Students who never submitted are omitted rather than given a zero score.
func (svc *Service) sendResults(l Lobby) {
	if svc.mailSvc == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		owner, err := svc.users.GetByID(ctx, l.OwnerID)
		if err != nil {
			svc.logger.Warn("lobby: results email skipped", errors.Wrapf(err, "fetching owner %s", l.OwnerID))
			return
		}
		grades, err := svc.grades.QueryLobbyGrades(ctx, l.ID)
		if err != nil {
			svc.logger.Warn("lobby: results email skipped", errors.Wrapf(err, "fetching grades for %s", l.ID))
			return
		}

		names := make(map[string]string, len(l.Members))
		for _, m := range l.Members {
			names[m.UserID] = m.Username
		}
		type line struct {
			Username string
			Score    int
		}
		lines := make([]line, 0, len(grades))
		for _, g := range grades {
			name := names[g.UserID]
			if name == "" {
				name = g.UserID
			}
			lines = append(lines, line{Username: name, Score: g.Score})
		}

		msg := &core.EmailMessage{
			To:       []mail.Address{{Name: owner.Name, Address: owner.Email}},
			Subject:  fmt.Sprintf("Quiz results: %s", l.Name),
			Template: resultsTmpl,
			TemplateData: map[string]interface{}{
				"LobbyName":   l.Name,
				"MemberCount": len(l.Members),
				"Results":     lines,
			},
		}
		svc.mailSvc.SendMessages(msg)
	}()
}
