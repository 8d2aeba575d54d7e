// vaultboot loads an application's configuration from the store into the
// environment and then runs the application:
//
//	vaultboot --app billing --env production -- ./billing-server --port 8080
//
// Settings are layered: environment variables (APP_NAME, APP_ENV,
// VAULT_URL, ...), then the --config file, then flags. Variables already
// set in the environment are never overwritten.
//
// The check subcommand reports store reachability and cache state as JSON
// and exits non-zero when unhealthy.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/vaultboot/bootstrap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		env:    bootstrap.OSEnvironment{},
	}

	if err := c.run(ctx, os.Args[1:]); err != nil {
		stop()
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "vaultboot: %v\n", err)
		os.Exit(1)
	}
}

// cli holds the process surfaces so tests can substitute them.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	env    bootstrap.Environment
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "check":
			return c.runCheck(ctx, args[1:])
		case "version", "--version":
			fmt.Fprintf(c.stdout, "vaultboot %s\n", version)
			return nil
		}
	}
	return c.runBootstrap(ctx, args)
}

// exitError carries a child's exit status, or a failed check, without an
// extra message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// ExitCode returns the process exit code.
func (e *exitError) ExitCode() int {
	return e.code
}
