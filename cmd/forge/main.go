package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/pipeforge/forge/cmd/forge/command"
	"github.com/pipeforge/forge/internal/engine"
	"github.com/pipeforge/forge/pkg/logger"
	"go.uber.org/zap"
)

// version is set at build time via -ldflags; "dev" otherwise.
var version = "dev"

func main() {
	log, err := logger.New("FORGE")
	if err != nil {
		stdlog.Fatalf("setting up logger: %v", err)
	}
	defer log.Sync()

	exitCode, err := run(log)
	if err != nil {
		log.Errorw("run failed", "error", err)
	}
	os.Exit(exitCode)
}

func run(log *zap.SugaredLogger) (int, error) {
	cmd, err := command.NewCommand(os.Args[1:])
	if err != nil {
		fmt.Println(command.Usage)
		return 2, err
	}
	if cmd.HelpWanted {
		fmt.Print(command.Usage)
		return 0, nil
	}
	if cmd.VersionWanted {
		fmt.Printf("forge %s\n", version)
		return 0, nil
	}

	// ===============================================================================
	// Load Environment Variables
	// github.com/ardanlabs/conf/v3 loads these settings from environment variables.
	// Its command flags and --help output are not reachable here: command.NewCommand
	// has already rejected any flag it does not know and handled --help itself.

	log.Infow("starting run", "configuration", "parsing")
	cfg := struct {
		Run struct {
			MaxParallel  int           `conf:"env:FORGE_MAX_PARALLEL,default:0"`
			TickInterval time.Duration `conf:"env:FORGE_TICK_INTERVAL,default:1s"`
		}
	}{}

	help, err := conf.Parse("FORGE", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return 0, nil
		}
		return 2, fmt.Errorf("parsing config: %w", err)
	}
	cfgString, err := conf.String(&cfg)
	if err != nil {
		return 1, fmt.Errorf("config to string: %w", err)
	}
	log.Infow("starting run", "configuration\n", cfgString)

	settings := engine.Settings{
		MaxParallel:  cfg.Run.MaxParallel,
		TickInterval: cfg.Run.TickInterval,
	}

	// ===============================================================================
	// Graceful Shutdown

	ctx, cancel := context.WithCancel(context.Background())

	runErr := make(chan error, 1)
	var tracker *engine.Tracker
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		tracker, err = command.Run(ctx, log, cmd, settings)
		runErr <- err
	}()

	terminate := make(chan os.Signal, 1)
	signal.Notify(terminate, syscall.SIGINT, syscall.SIGTERM)

	var runResult error
	select {
	case <-terminate:
		log.Infow("shutdown signal received")
		cancel()
		runResult = <-runErr
	case runResult = <-runErr:
		cancel()
	}

	wg.Wait()

	if runResult != nil {
		return 1, runResult
	}
	if tracker != nil && tracker.HasFailed() {
		return 1, nil
	}
	return 0, nil
}
