package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"audiosummary/internal/apperror"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// exitUnresolved is returned when a quote cannot be grounded in the transcript
const exitUnresolved = 2

// exitError carries a specific process exit code out of a command
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultAppFactory)
	stop()
	os.Exit(code)
}

// run executes the command line and maps failures to exit codes
func run(ctx context.Context, args []string, stdout, stderr io.Writer, factory appFactory) int {
	root := newRootCmd(factory)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.msg != "" {
			fmt.Fprintln(stderr, exitErr.msg)
		}
		return exitErr.code
	}

	if apperror.KindOf(err) != apperror.KindUnknown {
		fmt.Fprintf(stderr, "Error: %s\n", apperror.UserMessage(err))
		fmt.Fprintf(stderr, "Detail: %v\n", err)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}
