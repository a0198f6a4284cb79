package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/hkrishnan/superlifter/internal/api"
	"github.com/hkrishnan/superlifter/internal/server"
	"github.com/hkrishnan/superlifter/pkg/fetch"
	"github.com/hkrishnan/superlifter/pkg/logger"
	"github.com/hkrishnan/superlifter/pkg/superlifter"
)

var (
	listenAddr string
	logFile    string
	verbose    bool
)

var serveFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "listen, l",
		Usage:       "address to listen on",
		Value:       DefaultListenAddr,
		Destination: &listenAddr,
	},
	cli.StringFlag{
		Name:        "log-file",
		Usage:       "append logs to this file in addition to the console",
		Destination: &logFile,
	},
	cli.BoolFlag{
		Name:        "verbose",
		Usage:       "enable debug logging",
		Destination: &verbose,
	},
}

// serve starts the daemon with a default manual bucket plus a debounced
// bucket, and blocks until interrupted.
func serve(ctx *cli.Context) error {
	var l logger.Logger = logger.NewStandardLogger(log.Default(), verbose)
	if logFile != "" {
		fl, err := logger.NewFileLogger(logFile, verbose)
		if err != nil {
			return err
		}
		l = logger.NewMultiLogger(l, fl)
	}
	defer l.Close()

	lifter, err := superlifter.Start(superlifter.Config{
		Buckets: map[string]superlifter.BucketConfig{
			"debounced": {
				Trigger:  superlifter.TriggerDebounce,
				Interval: 100 * time.Millisecond,
			},
		},
		EngineOptions: fetch.Options{Cache: fetch.NewCache()},
		Logger:        l,
	})
	if err != nil {
		return err
	}
	defer lifter.Stop()

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := api.NewApi(l, lifter, VERSION)
	srv := server.NewServer(l, listenAddr, a.Methods())
	return srv.Start(runCtx)
}
