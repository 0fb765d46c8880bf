package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/mavlabs/read/apps/api/echo"
	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/academic"
	"github.com/mavlabs/read/core/session"
	"github.com/mavlabs/read/core/user"
	emailsvc "github.com/mavlabs/read/services/email"
	logsvc "github.com/mavlabs/read/services/logger"
	"github.com/mavlabs/read/storage/database"
	sqlxrepos "github.com/mavlabs/read/storage/database/sqlx"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	academicSvc := academic.NewService(sqlxrepos.NewAcademicYearRepository(db))
	schoolRepo := sqlxrepos.NewSchoolRepository(db)
	catalogRepo := sqlxrepos.NewCatalogRepository(db)
	sessionSvc := session.NewService(
		sqlxrepos.NewTransactor(db),
		sqlxrepos.NewSessionRepository(db),
		schoolRepo,
		catalogRepo,
		sqlxrepos.NewDirectory(db),
		mailSvc,
		logger,
	)
	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address:     core.Conf.Server.Host + ":" + core.Conf.Server.Port,
			Logger:      logger,
			UserSvc:     usrSvc,
			SessionSvc:  sessionSvc,
			AcademicSvc: academicSvc,
		},
	)

	go app.Start()

	// graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = app.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB() (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB, core.Conf); err != nil {
		return nil, err
	}
	return db, nil
}
