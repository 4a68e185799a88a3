package lobby

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/quiz"
	"github.com/trezcool/darasa/core/user"
)

// fakeConn records delivered events in order.
type fakeConn struct {
	mu     sync.Mutex
	events []Event
	full   bool
	closed bool
}

func (c *fakeConn) Send(evt Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full || c.closed {
		return false
	}
	c.events = append(c.events, evt)
	return true
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) eventNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.events))
	for _, evt := range c.events {
		names = append(names, evt.Event)
	}
	return names
}

func (c *fakeConn) countEvent(name string) int {
	var n int
	for _, en := range c.eventNames() {
		if en == name {
			n++
		}
	}
	return n
}

// memLobbyRepo is an in-memory lobby.Repository with failure injection.
type memLobbyRepo struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]Lobby
	deleted []uuid.UUID
	failErr error
}

func newMemLobbyRepo() *memLobbyRepo {
	return &memLobbyRepo{lobbies: make(map[uuid.UUID]Lobby)}
}

func (r *memLobbyRepo) UpsertLobby(ctx context.Context, l Lobby) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.lobbies[l.ID] = l
	return nil
}

func (r *memLobbyRepo) DeleteLobby(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	delete(r.lobbies, id)
	r.deleted = append(r.deleted, id)
	return nil
}

// memGradeRepo is an in-memory quiz.GradeRepository; failures for the first
// failCount calls exercise the collector's retry queue.
type memGradeRepo struct {
	mu        sync.Mutex
	grades    []quiz.Grade
	failCount int
	failErr   error
}

func (r *memGradeRepo) CreateGrade(ctx context.Context, grade quiz.Grade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCount > 0 {
		r.failCount--
		return r.failErr
	}
	r.grades = append(r.grades, grade)
	return nil
}

func (r *memGradeRepo) QueryLobbyGrades(ctx context.Context, lobbyID uuid.UUID) ([]quiz.Grade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	grades := make([]quiz.Grade, 0, len(r.grades))
	for _, g := range r.grades {
		if g.LobbyID == lobbyID {
			grades = append(grades, g)
		}
	}
	return grades, nil
}

func (r *memGradeRepo) all() []quiz.Grade {
	r.mu.Lock()
	defer r.mu.Unlock()
	grades := make([]quiz.Grade, len(r.grades))
	copy(grades, r.grades)
	return grades
}

type memBankRepo struct {
	banks map[int]quiz.Bank
}

func (r *memBankRepo) GetBankByID(ctx context.Context, id int) (quiz.Bank, error) {
	b, ok := r.banks[id]
	if !ok {
		return quiz.Bank{}, quiz.ErrBankNotFound
	}
	return b, nil
}

func (r *memBankRepo) QueryOwnerBanks(ctx context.Context, ownerID string) ([]quiz.Bank, error) {
	var banks []quiz.Bank
	for _, b := range r.banks {
		if b.OwnerID == ownerID {
			banks = append(banks, b)
		}
	}
	return banks, nil
}

type memUserDir struct {
	users map[string]user.User
}

func (d *memUserDir) GetByID(ctx context.Context, id string) (user.User, error) {
	u, ok := d.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

type mailMock struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *mailMock) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}

type testEnv struct {
	svc       *Service
	lobbyRepo *memLobbyRepo
	gradeRepo *memGradeRepo
	bankRepo  *memBankRepo
	userDir   *memUserDir
	mail      *mailMock
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testConf() core.LobbyConfig {
	return core.LobbyConfig{
		SweepInterval:       10 * time.Millisecond,
		TerminalGracePeriod: time.Minute,
		SendQueueSize:       32,
		GradeRetryMax:       3,
		GradeRetryBackoff:   time.Millisecond,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		lobbyRepo: newMemLobbyRepo(),
		gradeRepo: &memGradeRepo{},
		bankRepo: &memBankRepo{banks: map[int]quiz.Bank{
			5: {ID: 5, Name: "Algebra I", OwnerID: "instr1"},
			7: {ID: 7, Name: "Geometry", OwnerID: "instr1"},
		}},
		userDir: &memUserDir{users: map[string]user.User{
			"instr1": {ID: "instr1", Name: "Ms. Instructor", Email: "instr1@test.cd", Roles: []string{user.RoleInstructor}},
		}},
		mail: &mailMock{},
	}
	env.svc = NewService(ServiceOptions{
		Repo:    env.lobbyRepo,
		Banks:   env.bankRepo,
		Grades:  env.gradeRepo,
		Users:   env.userDir,
		MailSvc: env.mail,
		Logger:  core.NewStdLogger(testLogger()),
		Conf:    testConf(),
	})
	return env
}

// connect registers a fake connection for userID and subscribes it to the
// lobby-list channel, like the websocket layer does.
func (env *testEnv) connect(userID string) *fakeConn {
	conn := &fakeConn{}
	env.svc.Registry().Register(userID, conn)
	env.svc.Router().Subscribe(conn)
	return conn
}

func (env *testEnv) createLobby(t *testing.T, ownerID, name string, durationMin, bankID int) Lobby {
	t.Helper()
	l, err := env.svc.Create(context.Background(), ownerID, CreateLobby{Name: name, DurationMin: durationMin, BankID: bankID})
	if err != nil {
		t.Fatalf("Create(%q) failed: %v", name, err)
	}
	return l
}

// mockNow pins core.NowFunc for the duration of the test.
func mockNow(t *testing.T, now time.Time) {
	t.Helper()
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}
