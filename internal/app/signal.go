package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/blackwell-systems/logs2eca/internal/config"
	"github.com/blackwell-systems/logs2eca/internal/watcher"
)

func newReloadCmd() *cobra.Command {
	return newSignalCmd(
		"reload",
		"Make a running logs2eca reopen its log file",
		`Send SIGHUP to the logs2eca process recorded in the PID file. The process
closes its log file handle, reopens the file and scans it from the start.`,
		unix.SIGHUP,
	)
}

func newStopCmd() *cobra.Command {
	return newSignalCmd(
		"stop",
		"Stop a running logs2eca",
		`Send SIGTERM to the logs2eca process recorded in the PID file. The process
exits after the current command run, removing its PID file.`,
		unix.SIGTERM,
	)
}

func newSignalCmd(use, short, long string, sig unix.Signal) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Example: fmt.Sprintf(`  logs2eca %s --pid-file /run/logs2eca.pid

  # PID file taken from the environment
  %s=/run/logs2eca.pid logs2eca %s`, use, config.EnvPIDFile, use),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pidFile, _ := cmd.Flags().GetString("pid-file")
			if pidFile == "" {
				pidFile = os.Getenv(config.EnvPIDFile)
			}
			if pidFile == "" {
				return &config.MissingRequiredError{Names: []string{"pid-file"}}
			}

			if err := watcher.SignalProcess(pidFile, sig); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to logs2eca (PID file: %s)\n", unix.SignalName(sig), pidFile)
			return nil
		},
	}
	cmd.Flags().String("pid-file", "", "PID file written by the running instance")
	return cmd
}
