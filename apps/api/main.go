package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/somaedu/soma-backend/apps/api/echo"
	"github.com/somaedu/soma-backend/core"
	"github.com/somaedu/soma-backend/core/chapter"
	"github.com/somaedu/soma-backend/core/identity"
	"github.com/somaedu/soma-backend/core/learning"
	"github.com/somaedu/soma-backend/core/notification"
	aisvc "github.com/somaedu/soma-backend/services/ai"
	emailsvc "github.com/somaedu/soma-backend/services/email"
	logsvc "github.com/somaedu/soma-backend/services/logger"
	"github.com/somaedu/soma-backend/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.LoadConfig()

	// set up logger
	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewStdLogger(conf)
	} else {
		logger = logsvc.NewRollbarLogger(
			log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
			conf,
		)
	}

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up database: %v", err), err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	sdb := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf)
	}

	idFunc := func() string { return uuid.New().String() }

	identitySvc := identity.NewService(
		database.NewParentRepository(sdb),
		database.NewChildRepository(sdb),
		idFunc,
	)
	notifSvc := notification.NewService(database.NewNotificationRepository(sdb), idFunc)

	generator, verifier, repairer, err := aisvc.NewCapabilities(conf.AI)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up AI capabilities: %v", err), err)
		os.Exit(1)
	}
	pipeline := chapter.NewPipeline(generator, verifier, repairer, conf.AI, logger)

	chapterSvc := chapter.NewService(
		database.NewChapterRepository(sdb),
		database.NewParentRepository(sdb),
		pipeline,
		notifSvc,
		mailSvc,
		logger,
		idFunc,
	)
	learningSvc := learning.NewService(
		database.NewLearningSessionRepository(sdb),
		database.NewResultRepository(sdb),
		idFunc,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			IdentitySvc: identitySvc,
			ChapterSvc:  chapterSvc,
			LearningSvc: learningSvc,
			NotifSvc:    notifSvc,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)
		os.Exit(1)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				os.Exit(1)
			}
		}

		// let in-flight generation runs write their terminal status
		chapterSvc.Wait()
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
