package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jonwraymond/vaultboot/bootstrap"
	"github.com/jonwraymond/vaultboot/observe"
)

// Exit codes for a child that could not be started or was killed by a
// signal, as in POSIX shells.
const (
	exitCannotExecute = 126
	exitNotFound      = 127
	exitSignalBase    = 128
)

func (c *cli) runBootstrap(ctx context.Context, args []string) error {
	var f flags
	fs := pflag.NewFlagSet("vaultboot", pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.SetInterspersed(false)
	fs.Usage = func() { printUsage(fs, c.stderr) }
	f.registerSettings(fs)
	f.registerTelemetry(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	settings, err := f.settings(fs, c.env)
	if err != nil {
		return err
	}

	obs, runner, err := c.newObserver(ctx, &f, settings.AppName)
	if err != nil {
		return err
	}

	result, err := c.load(ctx, settings, runner)

	// Telemetry is flushed before the child starts; nothing after this point is traced.
	if shutdownErr := obs.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
		fmt.Fprintf(c.stderr, "vaultboot: telemetry shutdown: %v\n", shutdownErr)
	}
	if err != nil {
		return err
	}

	command := fs.Args()
	if len(command) == 0 {
		return c.printResult(result)
	}
	return c.runChild(command)
}

func (c *cli) load(ctx context.Context, settings bootstrap.Settings, runner *observe.Runner) (bootstrap.Result, error) {
	o, err := bootstrap.New(settings, bootstrap.Options{
		Environment: c.env,
		Runner:      runner,
	})
	if err != nil {
		return bootstrap.Result{State: bootstrap.StateFailed}, err
	}
	return o.Load(ctx)
}

// newObserver builds telemetry that writes to stderr only; stdout belongs
// to the child.
func (c *cli) newObserver(ctx context.Context, f *flags, appName string) (observe.Observer, *observe.Runner, error) {
	enabled := func(exporter string) bool {
		return exporter != "" && exporter != "none"
	}

	serviceName := "vaultboot"
	if appName != "" {
		serviceName += "." + appName
	}

	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: serviceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   enabled(f.traceExporter),
			Exporter:  f.traceExporter,
			SamplePct: observe.MaxSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  enabled(f.metricsExporter),
			Exporter: f.metricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   strings.ToLower(f.logLevel),
			Format:  f.logFormat,
		},
		Output: c.stderr,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: %w", err)
	}

	runner, err := observe.RunnerFromObserver(obs)
	if err != nil {
		return nil, nil, err
	}
	return obs, runner, nil
}

// printResult reports what was injected. Key names only, never values.
func (c *cli) printResult(result bootstrap.Result) error {
	keys := result.Keys
	if keys == nil {
		keys = []string{}
	}

	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		State  bootstrap.State  `json:"state"`
		Source bootstrap.Source `json:"source,omitempty"`
		Keys   []string         `json:"keys"`
	}{result.State, result.Source, keys})
}

// runChild runs command with the bootstrapped environment, forwarding
// termination signals, and returns its exit status as an *exitError.
func (c *cli) runChild(command []string) error {
	child := exec.Command(command[0], command[1:]...) // #nosec G204 - the command is the operator's
	child.Stdin = c.stdin
	child.Stdout = c.stdout
	child.Stderr = c.stderr
	child.Env = environ(c.env.Snapshot())

	if err := child.Start(); err != nil {
		fmt.Fprintf(c.stderr, "vaultboot: starting %s: %v\n", command[0], err)
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return &exitError{code: exitNotFound}
		}
		return &exitError{code: exitCannotExecute}
	}

	signals := make(chan os.Signal, 4)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	done := make(chan struct{})
	defer func() {
		signal.Stop(signals)
		close(done)
	}()
	go forwardSignals(done, signals, child.Process)

	if err := child.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &exitError{code: childExitCode(exitErr)}
		}
		return fmt.Errorf("waiting for %s: %w", command[0], err)
	}
	return nil
}

// childExitCode maps a child's exit status to ours. A child killed by a
// signal reports 128+signal, as in POSIX shells.
func childExitCode(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return exitSignalBase + int(status.Signal())
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

// forwardSignals relays signals to the child until done is closed. Delivery
// errors mean the child already exited and are ignored.
func forwardSignals(done <-chan struct{}, signals <-chan os.Signal, process *os.Process) {
	for {
		select {
		case <-done:
			return
		case sig := <-signals:
			_ = process.Signal(sig)
		}
	}
}

func environ(vars map[string]string) []string {
	out := make([]string, 0, len(vars))
	for key, value := range vars {
		out = append(out, key+"="+value)
	}
	slices.Sort(out)
	return out
}
