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

	"circle-search/src/singleinstance"
)

type stressOptions struct {
	n        int
	mode     string
	deadline time.Duration
}

type summary struct {
	launched   int
	ok         int32
	busy       int32
	noResident int32
	errs       int32
	elapsed    time.Duration
}

func (s summary) String() string {
	return fmt.Sprintf("launched=%d ok=%d busy=%d no-resident=%d err=%d elapsed=%s",
		s.launched, s.ok, s.busy, s.noResident, s.errs, s.elapsed)
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
		Use:           "stress-runonce",
		Short:         "Stress test run-once delegation against a resident circle-search",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseMode(opts.mode)
			if err != nil {
				return err
			}
			s := stress(cmd.Context(), singleinstance.NewClient(), mode, opts.n, opts.deadline)
			return report(cmd.OutOrStdout(), s)
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", "print", "print|open: ask the resident to print or open the search link")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func parseMode(s string) (singleinstance.Mode, error) {
	switch strings.ToLower(s) {
	case "print":
		return singleinstance.ModePrint, nil
	case "open":
		return singleinstance.ModeOpen, nil
	}
	return 0, fmt.Errorf("unknown mode %q (want print or open)", s)
}

// stress fires n concurrent delegations. The resident accepts at most one
// session, so all but one client are expected to come back busy.
func stress(ctx context.Context, client singleinstance.Client, mode singleinstance.Mode, n int, deadline time.Duration) summary {
	if ctx == nil {
		ctx = context.Background()
	}
	s := summary{launched: n}
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, deadline)
			defer cancel()
			delegated, _, err := client.TryRunOnce(cctx, mode)
			switch {
			case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
				atomic.AddInt32(&s.busy, 1)
			case err != nil:
				atomic.AddInt32(&s.errs, 1)
			case !delegated:
				atomic.AddInt32(&s.noResident, 1)
			default:
				atomic.AddInt32(&s.ok, 1)
			}
		}()
	}
	wg.Wait()
	s.elapsed = time.Since(start)
	return s
}

func report(w io.Writer, s summary) error {
	_, err := fmt.Fprintln(w, s.String())
	return err
}
