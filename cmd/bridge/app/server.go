// Package app wires the bridge's cobra command: flag binding, signal
// handling, and the graceful-shutdown sequence around a single supervised
// run().
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"finsbridge/cmd/bridge/options"
	"finsbridge/pkg/acquisition"
	"finsbridge/pkg/config"
	"finsbridge/pkg/fins"
	"finsbridge/pkg/statusserver"
	"finsbridge/pkg/supervisor"
)

const componentName = "fins-bridge"

// NewBridgeCmd builds the root cobra command.
func NewBridgeCmd() *cobra.Command {
	o := options.NewDefaultOptions()

	cmd := &cobra.Command{
		Use:   componentName,
		Short: "Bridges OMRON FINS/UDP PLC tags to OPC UA, with a CSV fallback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o)
		},
	}

	fs := pflag.NewFlagSet(componentName, pflag.ExitOnError)
	o.AddFlags(fs)
	cmd.Flags().AddFlagSet(fs)

	return cmd
}

// run loads configuration, starts one acquisition.Loop per PLC under the
// Supervisor, and blocks until either every loop exits on its own or an
// operator signal cancels the shared context (Shutdown Coordinator, C8).
func run(o *options.Options) error {
	plcs, err := config.Load(o.ConfigFile)
	if err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	klog.InfoS("configuration loaded", "plcs", len(plcs), "file", o.ConfigFile)

	loops := make([]*acquisition.Loop, 0, len(plcs))
	for _, plc := range plcs {
		conn := fins.NewUDPConnection(plc.IP, 9600)
		loops = append(loops, acquisition.New(plc, conn, o.CSV))
	}

	sup := supervisor.New(loops)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup.Start(ctx)

	if o.StatusPort != 0 {
		status := statusserver.New(o.StatusPort, sup)
		status.Serve()
		klog.InfoS("status server started", "port", o.StatusPort)
	}

	failures := waitForCompletion(sup, cancel, o)
	code := supervisor.ExitCode(failures)
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// waitForCompletion blocks until every loop has terminated, whichever comes
// first: an operator signal (which cancels ctx to start every loop
// draining) or every loop exiting on its own, e.g. a single-PLC
// FINS-unreachable or failure-threshold exit with no operator present
// (§4.7(c) - the Supervisor exits once all loops are done, independent of
// any signal). A second signal forces an immediate process exit rather than
// waiting for the loops to finish draining, matching §5's
// operator-impatience escape hatch; o.Wait is only logged, not enforced.
func waitForCompletion(sup *supervisor.Supervisor, cancel context.CancelFunc, o *options.Options) []acquisition.Failure {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan []acquisition.Failure, 1)
	go func() { done <- sup.Wait() }()

	select {
	case failures := <-done:
		return failures
	case <-sigCh:
		klog.InfoS("shutdown signal received, draining acquisition loops", "grace_period", o.Wait)
		cancel()
	}

	go func() {
		<-sigCh
		klog.InfoS("second shutdown signal received, exiting immediately")
		os.Exit(supervisor.ExitOperatorSignal)
	}()

	return <-done
}
