// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/roundel-labs/roundel/api"
	"github.com/roundel-labs/roundel/kv"
	"github.com/roundel-labs/roundel/log"
	"github.com/roundel-labs/roundel/lvldb"
	"github.com/roundel-labs/roundel/metrics"
	"github.com/roundel-labs/roundel/node"
	"github.com/roundel-labs/roundel/state"
)

var (
	version   string
	gitCommit string
)

func fullVersion() string {
	if gitCommit == "" {
		return version + "-dev"
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "Roundel",
		Usage:   "round-based participation accounting and reward distribution",
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			apiAddrFlag,
			apiCorsFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logLevel(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelError
	case verbosity == 1:
		return slog.LevelWarn
	case verbosity == 2:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func openMainDB(ctx *cli.Context) (kv.GetPutCloser, error) {
	if dir := ctx.String(dataDirFlag.Name); dir != "" {
		return lvldb.New(dir, lvldb.Options{})
	}
	return lvldb.NewMem()
}

func defaultAction(ctx *cli.Context) error {
	log.Setup(logLevel(ctx.Int(verbosityFlag.Name)), ctx.Bool(jsonLogsFlag.Name))
	logger := log.WithContext("pkg", "main")
	defer func() { logger.Info("exited") }()

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	cfg, err := node.LoadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	mainDB, err := openMainDB(ctx)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	n, err := node.New(state.New(mainDB), cfg)
	if err != nil {
		return err
	}

	handler := api.New(n, api.Options{
		AllowedOrigins: ctx.String(apiCorsFlag.Name),
		EnableMetrics:  ctx.Bool(enableMetricsFlag.Name),
	})
	srv := &http.Server{
		Addr:              ctx.String(apiAddrFlag.Name),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		logger.Info("API service started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
