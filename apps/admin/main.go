package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/unlock"
	lmssvc "github.com/trezcool/coursetrack/services/lms"
	logsvc "github.com/trezcool/coursetrack/services/logger"
	"github.com/trezcool/coursetrack/storage"
	"github.com/trezcool/coursetrack/storage/database"
	sqlxrepos "github.com/trezcool/coursetrack/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(false)

	// set up storage; migrations must not auto-run here
	var db *sql.DB
	var repo unlock.Repository
	if conf.Storage.Driver == core.StoragePostgres {
		errAndDie(logger, database.CreateIfNotExist(conf))
		dbx, err := database.OpenX(conf)
		errAndDie(logger, err)
		defer func() { _ = dbx.Close() }()
		db = dbx.DB
		repo = sqlxrepos.NewUnlockRepository(dbx)
	} else {
		r, closeStore, err := storage.NewUnlockRepository(conf, logger)
		errAndDie(logger, err)
		defer func() { _ = closeStore() }()
		repo = r
	}

	remote, err := lmssvc.NewClient(conf.LMS.BaseURL, conf.LMS.Timeout, logger)
	errAndDie(logger, err)

	// start CLI
	cli := commandLine{
		db:      db,
		unlocks: unlock.NewService(repo, conf.Quiz.UnlockTTL, logger),
		remote:  remote,
		out:     os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger *logsvc.RollbarLogger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
