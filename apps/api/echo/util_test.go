package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lobby"
	"github.com/trezcool/darasa/core/quiz"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

const testBankID = 5

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app        Server
	conf       *core.Config
	usrSvc     *user.Service
	lobbySvc   *lobby.Service
	instructor user.User
	student    user.User
}

func testConf() *core.Config {
	return &core.Config{
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Darasa",
		SecretKey:        "secret",
		DefaultFromEmail: mail.Address{Name: "Darasa", Address: "noreply@localhost"},
		Server: core.ServerConfig{
			ShutdownTimeout:    5 * time.Second,
			JWTExpirationDelta: time.Hour,
		},
		Lobby: core.LobbyConfig{
			SweepInterval:       time.Second,
			TerminalGracePeriod: 2 * time.Minute,
			SendQueueSize:       32,
			GradeRetryMax:       3,
			GradeRetryBackoff:   time.Millisecond,
		},
	}
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	conf := testConf()
	logger := core.NewStdLogger(log.New(io.Discard, "", 0))
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	usrSvc := user.NewService(dummydb.NewUserRepository(db))
	instructor, err := usrSvc.Create(ctx, user.NewUser{
		Name:     "Jane Doe",
		Username: "jane",
		Email:    "jane@darasa.test",
		Password: "Str0ngPassword",
		Roles:    []string{user.RoleInstructor},
	})
	if err != nil {
		t.Fatalf("creating instructor failed: %v", err)
	}
	student, err := usrSvc.Create(ctx, user.NewUser{
		Name:     "John Doe",
		Username: "john",
		Email:    "john@darasa.test",
		Password: "Str0ngPassword",
		Roles:    []string{user.RoleStudent},
	})
	if err != nil {
		t.Fatalf("creating student failed: %v", err)
	}

	bankRepo := dummydb.NewBankRepository(db)
	bankRepo.SeedBank(quiz.Bank{
		ID:      testBankID,
		Name:    "Algebra I",
		OwnerID: instructor.ID,
		Questions: []quiz.Question{
			{ID: 1, Text: "2+2?", Choices: []string{"3", "4"}, Answer: 1, Points: 10},
		},
	})
	gradeRepo := dummydb.NewGradeRepository(db)
	quizSvc := quiz.NewService(bankRepo, gradeRepo)

	lobbySvc := lobby.NewService(lobby.ServiceOptions{
		Repo:    dummydb.NewLobbyRepository(db),
		Banks:   bankRepo,
		Grades:  gradeRepo,
		Users:   usrSvc,
		MailSvc: mailSvc,
		Logger:  logger,
		Conf:    conf.Lobby,
	})

	app := NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		QuizSvc:        quizSvc,
		LobbySvc:       lobbySvc,
	})

	return &testEnv{
		app:        app,
		conf:       conf,
		usrSvc:     usrSvc,
		lobbySvc:   lobbySvc,
		instructor: instructor,
		student:    student,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("%s: code = %d; want %d; body: %s", tt.name, rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData != nil {
		if got, want := bytes.TrimSpace(rec.Body.Bytes()), bytes.TrimSpace(tt.wantData); !bytes.Equal(got, want) {
			t.Errorf("%s: body = %s; want %s", tt.name, got, want)
		}
	}
}
