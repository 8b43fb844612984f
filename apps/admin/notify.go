package main

import (
	"context"
	"time"

	"github.com/aquatrack/aquatrack/core/notification"
	logsvc "github.com/aquatrack/aquatrack/services/logger"
)

// notify runs one notification generation pass, as the cron entrypoint does.
func (cli *commandLine) notify() error {
	notifSvc := notification.NewService(cli.notifRepo)
	gen := notification.NewGenerator(logsvc.NewStdLogger(logger), notifSvc, cli.poolRepo, cli.orgRepo)
	return gen.Run(context.Background(), time.Now().UTC())
}
