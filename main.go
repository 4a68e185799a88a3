package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lobby"
	"github.com/trezcool/darasa/core/quiz"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	"github.com/trezcool/darasa/storage/database/sqlxrepos"
)

// build is set via ldflags on release builds
var build = "dev"

func main() {
	conf := core.NewConfig(build)

	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if conf.Debug {
		logger = core.NewStdLogger(std)
	} else {
		rollbarLogger := logsvc.NewRollbarLogger(std, conf)
		rollbarLogger.Enable(conf.RollbarToken != "")
		logger = rollbarLogger
	}

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Set up DB

	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening DB", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing DB", err)
		}
	}()
	if err := database.Ping(db); err != nil {
		logger.Fatal("DB is unreachable", err)
	}
	sdb := sqlx.NewDb(db, conf.Database.Engine)

	// =========================================================================
	// Set up services

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(sdb))

	bankRepo := sqlxrepos.NewBankRepository(sdb)
	gradeRepo := sqlxrepos.NewGradeRepository(sdb)
	quizSvc := quiz.NewService(bankRepo, gradeRepo)

	lobbySvc := lobby.NewService(lobby.ServiceOptions{
		Repo:    sqlxrepos.NewLobbyRepository(sdb),
		Banks:   bankRepo,
		Grades:  gradeRepo,
		Users:   usrSvc,
		MailSvc: mailSvc,
		Logger:  logger,
		Conf:    conf.Lobby,
	})

	sweeper := lobby.NewSweeper(lobbySvc, conf.Lobby)
	go sweeper.Run()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:        conf.Server.Host,
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		QuizSvc:        quizSvc,
		LobbySvc:       lobbySvc,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
	})

	go app.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests and queued grade writes a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	sweeper.Stop()
	if err := app.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
	if err := lobbySvc.Shutdown(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not drain lobby state: %v", err), err)
	}
}
