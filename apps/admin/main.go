package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/access"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	"github.com/trezcool/elimu/storage/database/records"
	"github.com/trezcool/elimu/storage/kv"
)

func main() {
	conf := core.NewConfig()

	logger, err := logsvc.New("ADMIN : ", conf)
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
	var sqlDB *sql.DB
	if conf.Store.Engine == "postgres" {
		errAndDie(logger, database.CreateIfNotExist(conf))
		sqlDB, err = database.Open(conf)
		errAndDie(logger, err)
		defer sqlDB.Close()
	}
	store, err := kv.Open(conf)
	errAndDie(logger, err)
	db := records.Open(store, bootstrap, validate, logger)
	defer db.Close()
	errAndDie(logger, db.Init(context.Background()))

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(records.NewUserRepository(db), bootstrap, validate, logger)

	// start CLI
	cli := commandLine{
		db:      db,
		sqlDB:   sqlDB,
		usrSvc:  usrSvc,
		codes:   access.NewEngine(records.NewModuleRepository(db), usrSvc, logger),
		mailSvc: mailSvc,
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
