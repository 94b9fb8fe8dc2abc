package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/coursetrack/apps/api/echo"
	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/progress"
	"github.com/trezcool/coursetrack/core/unlock"
	emailsvc "github.com/trezcool/coursetrack/services/email"
	lmssvc "github.com/trezcool/coursetrack/services/lms"
	logsvc "github.com/trezcool/coursetrack/services/logger"
	"github.com/trezcool/coursetrack/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!(conf.Debug || conf.TestMode))

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!(conf.Debug || conf.TestMode))

	// set up storage
	unlockRepo, closeStore, err := storage.NewUnlockRepository(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = closeStore(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Email.Enabled {
		if conf.Debug {
			mailSvc = emailsvc.NewConsoleService(conf, logger)
		} else {
			mailSvc = emailsvc.NewSendgridService(conf, logger)
		}
	}
	remote, err := lmssvc.NewClient(conf.LMS.BaseURL, conf.LMS.Timeout, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up remote API client: %v", err), err)
	}
	unlocks := unlock.NewService(unlockRepo, conf.Quiz.UnlockTTL, dbLogger)
	tracker := progress.NewTracker(remote, unlocks, mailSvc, logger, progress.NewOptions(conf))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	translators, err := core.NewTranslators()
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading translations: %v", err), err)
	}
	validate := validator.New()
	core.InitValidators(validate, translators.Default)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go tracker.Run(janitorCtx)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage.Driver)
	expvar.Publish("pendingMarks", expvar.Func(func() interface{} { return tracker.Pending() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		&echoapi.Deps{
			Conf:        conf,
			Logger:      logger,
			Tracker:     tracker,
			Translators: translators,
			Validate:    validate,
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
		stopJanitor()

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
