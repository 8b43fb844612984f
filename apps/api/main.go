package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	echoapi "github.com/aquatrack/aquatrack/apps/api/echo"
	"github.com/aquatrack/aquatrack/core"
	"github.com/aquatrack/aquatrack/core/notification"
	"github.com/aquatrack/aquatrack/core/org"
	"github.com/aquatrack/aquatrack/core/pool"
	"github.com/aquatrack/aquatrack/core/schedule"
	"github.com/aquatrack/aquatrack/core/task"
	"github.com/aquatrack/aquatrack/core/user"
	emailsvc "github.com/aquatrack/aquatrack/services/email"
	logsvc "github.com/aquatrack/aquatrack/services/logger"
	"github.com/aquatrack/aquatrack/storage/database"
)

func main() {
	conf := core.Conf

	// set up loggers
	var logger core.Logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer db.Close()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrRepo := database.NewUserRepository(db)
	orgRepo := database.NewOrgRepository(db)
	poolRepo := database.NewPoolRepository(db)
	schedRepo := database.NewVisitPlanRepository(db)
	taskRepo := database.NewTaskRepository(db)
	notifRepo := database.NewNotificationRepository(db)

	usrSvc := user.NewService(usrRepo, mailSvc)
	orgSvc := org.NewService(orgRepo)
	poolSvc := pool.NewService(poolRepo)
	taskSvc := task.NewService(taskRepo)
	schedSvc := schedule.NewService(schedRepo, poolRepo, orgSvc, taskSvc)
	notifSvc := notification.NewService(notifRepo)
	notifGen := notification.NewGenerator(logger, notifSvc, poolRepo, orgRepo)

	// in-process notification generator
	if conf.NotifySchedule != "" {
		runner := cron.New()
		if _, err := runner.AddFunc(conf.NotifySchedule, func() {
			if err := notifGen.Run(context.Background(), schedule.NowFunc().UTC()); err != nil {
				logger.Error(fmt.Sprintf("notification run: %v", err), err)
			}
		}); err != nil {
			logger.Fatal(fmt.Sprintf("scheduling notification run: %v", err), err)
		}
		runner.Start()
		defer runner.Stop()
	}

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:        fmt.Sprintf(":%d", conf.Server.Port),
			Logger:      logger,
			UserSvc:     usrSvc,
			OrgSvc:      orgSvc,
			PoolSvc:     poolSvc,
			ScheduleSvc: schedSvc,
			TaskSvc:     taskSvc,
			NotifSvc:    notifSvc,
			NotifGen:    notifGen,
		},
	)

	go app.Start()

	select {
	case err := <-app.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-app.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = app.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
