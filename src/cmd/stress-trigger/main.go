package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"screen-qr-scan/src/singleinstance"
)

type stressOptions struct {
	n        int
	deadline time.Duration
}

type scanClient interface {
	TryScan(ctx context.Context) (bool, error)
}

type tally struct {
	ok, busy, absent, err int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-trigger",
		Short:         "Stress test scan delegation to a running resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := runWithOptions(*opts, singleinstance.NewClient)
			report(cmd.OutOrStdout(), opts.n, t)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func runWithOptions(opts stressOptions, newClient func() singleinstance.Client) *tally {
	var wg sync.WaitGroup
	t := &tally{}

	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			classify(ctx, t, newClient())
		}()
	}
	wg.Wait()
	return t
}

func classify(ctx context.Context, t *tally, client scanClient) {
	delegated, err := client.TryScan(ctx)
	switch {
	case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
		atomic.AddInt32(&t.busy, 1)
	case err != nil:
		atomic.AddInt32(&t.err, 1)
	case delegated:
		atomic.AddInt32(&t.ok, 1)
	default:
		atomic.AddInt32(&t.absent, 1)
	}
}

func report(w io.Writer, n int, t *tally) {
	fmt.Fprintf(w, "launched=%d ok=%d busy=%d absent=%d err=%d\n",
		n, atomic.LoadInt32(&t.ok), atomic.LoadInt32(&t.busy), atomic.LoadInt32(&t.absent), atomic.LoadInt32(&t.err))
}
