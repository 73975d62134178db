package main

import (
	"context"
	"log"
	"os"

	"github.com/fatih/color"

	"github.com/trezcool/elimu/apps/shared"
	"github.com/trezcool/elimu/core"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	var store shared.Store
	cli := commandLine{
		out:         os.Stdout,
		migrateFunc: runGoose(conf),
		connect: func(ctx context.Context) (shared.Services, error) {
			var err error
			if store, err = shared.OpenStore(ctx, conf); err != nil {
				return shared.Services{}, err
			}
			validate, _ := shared.NewValidator()
			return shared.NewServices(store, shared.ServiceDeps{
				Mailer:   emailsvc.New(conf, logger),
				Logger:   logger,
				Validate: validate,
			}), nil
		},
	}

	err := cli.run(os.Args)
	if cerr := store.Close(); cerr != nil {
		logger.Error("closing database", cerr)
	}
	if err != nil {
		if err != errHelp {
			color.New(color.FgRed).Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
