// Package cli wires the enginecrane commands: configuration, logging, and
// the transplant pipeline behind a cobra front end.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/enginecrane/enginecrane/internal/config"
	"github.com/enginecrane/enginecrane/internal/logging"
)

// RootOptions holds global flags and the session-wide logging state.
type RootOptions struct {
	Verbose   bool
	ConfigDir string

	slogManager *logging.SlogManager
	logFile     *os.File
}

// LogSink returns the session log file as an io.Writer, or nil when logging
// fell back to stdout. A typed *os.File nil would defeat downstream nil checks.
func (o *RootOptions) LogSink() io.Writer {
	if o.logFile == nil {
		return nil
	}
	return o.logFile
}

// Logger returns the session logger.
func (o *RootOptions) Logger() *slog.Logger {
	if o.slogManager == nil {
		return slog.Default()
	}
	return o.slogManager.Logger()
}

// NewRootCommand creates the root command for the enginecrane CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "enginecrane",
		Short: "Transplant donor engines into a racing sim's cars",
		Long: `enginecrane takes a donor engine (a sandbox direct export or an
intermediate mod bundle) and installs it into a target car's data folder,
rewriting curves, limits, fuel and drivetrain fields in one atomic commit.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(opts.ConfigDir); err != nil {
				return err
			}
			level := viper.GetString("logLevel")
			if opts.Verbose {
				level = "debug"
			}
			opts.setupLogging(level)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logFile != nil {
				opts.logFile.Close()
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", ".", "directory containing enginecrane.cfg.json")

	cmd.AddCommand(NewTransplantCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewProvenanceCommand(opts))
	cmd.AddCommand(NewListCommand(opts))

	return cmd
}

// setupLogging routes records to a session log file under logsDir, falling
// back to stdout when the directory cannot be created.
func (o *RootOptions) setupLogging(level string) {
	o.slogManager = logging.NewSlogManager()

	sessionStart := time.Now()
	session := sessionStart.Format("20060102_150405")
	provider := func() []slog.Attr {
		return []slog.Attr{slog.String("session", session)}
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		o.slogManager.Setup(nil, level, provider)
		return
	}
	path := logging.LogFilePath(logsDir, "enginecrane", sessionStart)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		o.slogManager.Setup(nil, level, provider)
		return
	}
	o.logFile = f
	o.slogManager.Setup(f, level, provider)
	fmt.Fprintln(os.Stderr, "logging to", path)
}
