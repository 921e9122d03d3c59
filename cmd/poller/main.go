// The poller waits for a submitted job to finish from outside the service:
// it polls the API server's progress endpoint with backoff until the record
// turns terminal, then reports the outcome through its exit code.
//
//	beacon-poller <progress-key>
//
// Exit codes: 0 job completed (result JSON on stdout), 1 job failed (message
// on stderr), 2 deadline elapsed before a terminal state, 3 anything else.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/config"
	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/poll"
	"github.com/harborai/beacon/internal/query"
)

const (
	exitCompleted = 0
	exitFailed    = 1
	exitTimeout   = 2
	exitError     = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <progress-key>\n", os.Args[0])
		return exitError
	}
	key := domain.ProgressKey(os.Args[1])

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		return exitError
	}

	// Ctrl-C aborts at the next backoff boundary.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := query.NewHTTPClient(cfg.Poll.TargetURL, nil)
	waiter := poll.NewWaiter(client, nil, logger)

	rec, err := waiter.Wait(ctx, key, poll.Options{
		InitialWait: cfg.Poll.InitialWait,
		MaxWait:     cfg.Poll.MaxWait,
		Verbose:     cfg.Poll.Verbose,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return outcomeCode(err)
	}

	if len(rec.Data) > 0 {
		fmt.Println(string(rec.Data))
	}
	return exitCompleted
}

// outcomeCode maps a polling error to the process exit code. A job failure
// and an elapsed deadline are distinct outcomes: only the former means the
// job itself went wrong.
func outcomeCode(err error) int {
	var jobErr *poll.JobError
	switch {
	case errors.As(err, &jobErr):
		return exitFailed
	case errors.Is(err, poll.ErrTimeout):
		return exitTimeout
	default:
		return exitError
	}
}
