package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/doeshing/tasq/internal/infrastructure/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args, verboseFlag := extractVerbose(os.Args[1:])
	opts := cli.Options{Verbose: verboseFlag || isVerbose()}

	root, cleanup, err := cli.NewRootCmd(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer func() {
		if err := cleanup(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}()

	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func isVerbose() bool {
	return strings.EqualFold(os.Getenv("TASQ_DEBUG"), "1") || strings.EqualFold(os.Getenv("TASQ_DEBUG"), "true")
}

// extractVerbose removes --verbose ahead of cobra, since the logger is built
// before flags are parsed. Arguments after "--" are left alone.
func extractVerbose(args []string) ([]string, bool) {
	out := make([]string, 0, len(args))
	verbose := false
	for i, arg := range args {
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}
		if arg == "--verbose" {
			verbose = true
			continue
		}
		out = append(out, arg)
	}
	return out, verbose
}
