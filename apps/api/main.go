package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/access"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/progression"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/session"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	"github.com/trezcool/elimu/storage/database/records"
	"github.com/trezcool/elimu/storage/kv"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger, err := logsvc.New("API : ", conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	dbLogger, err := logsvc.New("DB : ", conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	bootstrap := user.BootstrapAdmin{
		Name:     conf.Bootstrap.Name,
		Email:    conf.Bootstrap.Email,
		Password: conf.Bootstrap.Password,
	}

	// set up records
	db, err := setUpDB(conf, bootstrap, validate, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up records: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()
	usrRepo := records.NewUserRepository(db)
	modRepo := records.NewModuleRepository(db)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(usrRepo, bootstrap, validate, logger)
	crsSvc := course.NewService(modRepo, validate, logger)
	codes := access.NewEngine(modRepo, usrSvc, logger)
	quizzes := quiz.NewEngine(usrSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if _, err = usrSvc.EnsureBootstrapAdmin(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("ensuring bootstrap admin: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			UserSvc:     usrSvc,
			CourseSvc:   crsSvc,
			Codes:       codes,
			Quizzes:     quizzes,
			Progression: progression.NewOrchestrator(usrSvc, crsSvc, codes, quizzes, logger),
			Sessions:    session.NewManager(),
			MailSvc:     mailSvc,
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
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config, bootstrap user.BootstrapAdmin, validate *validator.Validate, logger core.Logger) (*records.DB, error) {
	if conf.Store.Engine == "postgres" {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
	}

	store, err := kv.Open(conf)
	if err != nil {
		return nil, err
	}

	db := records.Open(store, bootstrap, validate, logger)
	if err = db.Init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
